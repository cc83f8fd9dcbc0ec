package providers

// unsupportedSchemaKeys are JSON Schema keywords tool authors sometimes
// include (carried over from OpenAPI-derived generators) that Anthropic and
// Gemini reject outright rather than ignore.
var unsupportedSchemaKeys = map[string]bool{
	"$schema":              true,
	"$id":                  true,
	"title":                true,
	"additionalProperties": true,
	"examples":             true,
}

// CleanSchemaForProvider strips JSON Schema keywords a given provider's tool
// schema validator rejects, recursing into "properties", "items", and the
// schema-composition keywords. schema is not mutated; a cleaned copy is
// returned. provider is currently unused beyond documenting intent at the
// call site — every provider in this package rejects the same keyword set
// today, but the parameter keeps room for a provider-specific exception
// without changing every call site's signature.
func CleanSchemaForProvider(provider string, schema map[string]interface{}) map[string]interface{} {
	if schema == nil {
		return nil
	}
	out := make(map[string]interface{}, len(schema))
	for k, v := range schema {
		if unsupportedSchemaKeys[k] {
			continue
		}
		switch k {
		case "properties":
			if props, ok := v.(map[string]interface{}); ok {
				cleaned := make(map[string]interface{}, len(props))
				for name, raw := range props {
					if sub, ok := raw.(map[string]interface{}); ok {
						cleaned[name] = CleanSchemaForProvider(provider, sub)
					} else {
						cleaned[name] = raw
					}
				}
				out[k] = cleaned
				continue
			}
		case "items":
			if sub, ok := v.(map[string]interface{}); ok {
				out[k] = CleanSchemaForProvider(provider, sub)
				continue
			}
		case "anyOf", "oneOf", "allOf":
			if list, ok := v.([]interface{}); ok {
				cleaned := make([]interface{}, len(list))
				for i, raw := range list {
					if sub, ok := raw.(map[string]interface{}); ok {
						cleaned[i] = CleanSchemaForProvider(provider, sub)
					} else {
						cleaned[i] = raw
					}
				}
				out[k] = cleaned
				continue
			}
		}
		out[k] = v
	}
	if _, ok := out["type"]; !ok {
		out["type"] = "object"
	}
	return out
}

// CleanToolSchemas cleans every tool definition's parameter schema for
// providerName and returns the OpenAI wire format (type: "function" wrapper)
// openai.go's buildRequestBody sends as the "tools" field.
func CleanToolSchemas(providerName string, tools []ToolDefinition) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(tools))
	for _, t := range tools {
		out = append(out, map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        t.Function.Name,
				"description": t.Function.Description,
				"parameters":  CleanSchemaForProvider(providerName, t.Function.Parameters),
			},
		})
	}
	return out
}
