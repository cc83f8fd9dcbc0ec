package runtimectx

import (
	"github.com/prizm-dev/prizm/internal/config"
	"github.com/prizm-dev/prizm/internal/providers"
)

// registerProviders populates reg from cfg, mirroring the teacher's
// cmd/gateway_providers.go registerProviders: one Register call per
// provider with a non-empty API key, each OpenAI-compatible provider
// pointed at its own base URL and default model.
func registerProviders(reg *providers.Registry, cfg *config.Config) {
	p := cfg.Providers

	if p.Anthropic.APIKey != "" {
		var opts []providers.AnthropicOption
		if p.Anthropic.APIBase != "" {
			opts = append(opts, providers.WithAnthropicBaseURL(p.Anthropic.APIBase))
		}
		reg.Register(providers.NewAnthropicProvider(p.Anthropic.APIKey, opts...))
	}

	type openAISpec struct {
		name       string
		apiKey     string
		apiBase    string
		defModel   string
		chatPath   string
	}
	specs := []openAISpec{
		{"openai", p.OpenAI.APIKey, firstNonEmpty(p.OpenAI.APIBase, "https://api.openai.com/v1"), "gpt-4o", ""},
		{"openrouter", p.OpenRouter.APIKey, firstNonEmpty(p.OpenRouter.APIBase, "https://openrouter.ai/api/v1"), "anthropic/claude-sonnet-4-5-20250929", ""},
		{"groq", p.Groq.APIKey, firstNonEmpty(p.Groq.APIBase, "https://api.groq.com/openai/v1"), "llama-3.3-70b-versatile", ""},
		{"deepseek", p.DeepSeek.APIKey, firstNonEmpty(p.DeepSeek.APIBase, "https://api.deepseek.com/v1"), "deepseek-chat", ""},
		{"gemini", p.Gemini.APIKey, firstNonEmpty(p.Gemini.APIBase, "https://generativelanguage.googleapis.com/v1beta/openai"), "gemini-2.0-flash", ""},
		{"mistral", p.Mistral.APIKey, firstNonEmpty(p.Mistral.APIBase, "https://api.mistral.ai/v1"), "mistral-large-latest", ""},
		{"xai", p.XAI.APIKey, firstNonEmpty(p.XAI.APIBase, "https://api.x.ai/v1"), "grok-2-latest", ""},
		{"minimax", p.MiniMax.APIKey, firstNonEmpty(p.MiniMax.APIBase, "https://api.minimax.chat/v1"), "abab6.5s-chat", "/text/chatcompletion_v2"},
		{"cohere", p.Cohere.APIKey, firstNonEmpty(p.Cohere.APIBase, "https://api.cohere.ai/compatibility/v1"), "command-r-plus", ""},
		{"perplexity", p.Perplexity.APIKey, firstNonEmpty(p.Perplexity.APIBase, "https://api.perplexity.ai"), "sonar", ""},
	}
	for _, s := range specs {
		if s.apiKey == "" {
			continue
		}
		prov := providers.NewOpenAIProvider(s.name, s.apiKey, s.apiBase, s.defModel)
		if s.chatPath != "" {
			prov = prov.WithChatPath(s.chatPath)
		}
		reg.Register(prov)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
