package config

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Agents: AgentsConfig{
			Defaults: AgentDefaults{
				Workspace:           "~/.prizm/workspace",
				RestrictToWorkspace: true,
				Provider:            "anthropic",
				Model:               "claude-sonnet-4-5-20250929",
				MaxTokens:           8192,
				Temperature:         0.7,
				MaxToolIterations:   20,
				ContextWindow:       200000,
				Subagents: &SubagentsConfig{
					MaxConcurrent: 20,
					MaxSpawnDepth: 1,
				},
			},
		},
		Gateway: GatewayConfig{
			Host:             "0.0.0.0",
			Port:             18790,
			MaxMessageChars:  32000,
			RateLimitRPM:     20,
			WebsocketEnabled: true,
			WebsocketPath:    "/ws",
		},
		DataDir:  "~/.prizm/data",
		LogLevel: "info",
		Tools: ToolsConfig{
			Web: WebToolsConfig{
				DuckDuckGo: DuckDuckGoConfig{Enabled: true, MaxResults: 5},
			},
			Browser: BrowserToolConfig{
				Enabled:  true,
				Headless: true,
			},
			ExecApproval: ExecApprovalCfg{
				Security: "full",
				Ask:      "off",
			},
		},
		Sessions: SessionsConfig{
			Storage: "~/.prizm/sessions",
		},
	}
}

// Load reads config from a JSON file, then overlays env vars.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			cfg.applyContextPruningDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyContextPruningDefaults()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr("PRIZM_ANTHROPIC_API_KEY", &c.Providers.Anthropic.APIKey)
	envStr("PRIZM_ANTHROPIC_BASE_URL", &c.Providers.Anthropic.APIBase)
	envStr("PRIZM_OPENAI_API_KEY", &c.Providers.OpenAI.APIKey)
	envStr("PRIZM_OPENROUTER_API_KEY", &c.Providers.OpenRouter.APIKey)
	envStr("PRIZM_GROQ_API_KEY", &c.Providers.Groq.APIKey)
	envStr("PRIZM_DEEPSEEK_API_KEY", &c.Providers.DeepSeek.APIKey)
	envStr("PRIZM_GEMINI_API_KEY", &c.Providers.Gemini.APIKey)
	envStr("PRIZM_MISTRAL_API_KEY", &c.Providers.Mistral.APIKey)
	envStr("PRIZM_XAI_API_KEY", &c.Providers.XAI.APIKey)
	envStr("PRIZM_MINIMAX_API_KEY", &c.Providers.MiniMax.APIKey)
	envStr("PRIZM_COHERE_API_KEY", &c.Providers.Cohere.APIKey)
	envStr("PRIZM_PERPLEXITY_API_KEY", &c.Providers.Perplexity.APIKey)
	envStr("PRIZM_GATEWAY_TOKEN", &c.Gateway.Token)

	// Allow overriding default provider/model
	envStr("PRIZM_PROVIDER", &c.Agents.Defaults.Provider)
	envStr("PRIZM_MODEL", &c.Agents.Defaults.Model)

	// Workspace & sessions
	envStr("PRIZM_WORKSPACE", &c.Agents.Defaults.Workspace)
	envStr("PRIZM_SESSIONS_STORAGE", &c.Sessions.Storage)

	// Gateway host/port
	envStr("PRIZM_HOST", &c.Gateway.Host)
	if v := os.Getenv("PRIZM_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Gateway.Port = port
		}
	}

	// Database
	envStr("PRIZM_DB_PATH", &c.Database.Path)

	// Data directory, logging, and transport toggles
	envStr("PRIZM_DATA_DIR", &c.DataDir)
	envStr("PRIZM_LOG_LEVEL", &c.LogLevel)
	envStr("PRIZM_MCP_SCOPE", &c.Gateway.McpScope)
	if v := os.Getenv("PRIZM_AUTH_DISABLED"); v != "" {
		c.Gateway.AuthDisabled = v == "true" || v == "1"
	}
	if v := os.Getenv("PRIZM_CORS_ENABLED"); v != "" {
		c.Gateway.CorsEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("PRIZM_WEBSOCKET_ENABLED"); v != "" {
		c.Gateway.WebsocketEnabled = v == "true" || v == "1"
	}
	envStr("PRIZM_WEBSOCKET_PATH", &c.Gateway.WebsocketPath)

	// Embedding provider overrides for the memory subsystem
	if c.Agents.Defaults.Memory == nil {
		c.Agents.Defaults.Memory = &MemoryConfig{}
	}
	envStr("PRIZM_EMBEDDING_PROVIDER", &c.Agents.Defaults.Memory.EmbeddingProvider)
	envStr("PRIZM_EMBEDDING_MODEL", &c.Agents.Defaults.Memory.EmbeddingModel)
	envStr("PRIZM_EMBEDDING_API_BASE", &c.Agents.Defaults.Memory.EmbeddingAPIBase)

	// Telemetry
	envStr("PRIZM_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("PRIZM_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("PRIZM_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	if v := os.Getenv("PRIZM_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("PRIZM_TELEMETRY_INSECURE"); v != "" {
		c.Telemetry.Insecure = v == "true" || v == "1"
	}

	// Owner IDs from env (comma-separated)
	if v := os.Getenv("PRIZM_OWNER_IDS"); v != "" {
		c.Gateway.OwnerIDs = strings.Split(v, ",")
	}

}

// applyContextPruningDefaults auto-enables context pruning when the Anthropic
// provider is configured, matching TS applyContextPruningDefaults() in
// src/config/defaults.ts.
//
// Go port does not have OAuth vs API-key distinction. Only the
// context-pruning mode is set here; heartbeat settings are left untouched.
func (c *Config) applyContextPruningDefaults() {
	// Only apply when Anthropic is configured.
	if c.Providers.Anthropic.APIKey == "" {
		return
	}

	defaults := &c.Agents.Defaults

	// Auto-enable context pruning if mode not explicitly set.
	if defaults.ContextPruning == nil {
		defaults.ContextPruning = &ContextPruningConfig{
			Mode: "cache-ttl",
		}
	} else if defaults.ContextPruning.Mode == "" {
		defaults.ContextPruning.Mode = "cache-ttl"
	}
}

// Save writes the config to a JSON file.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Hash returns a SHA-256 hash of the config for optimistic concurrency.
func (c *Config) Hash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, _ := json.Marshal(c)
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:8])
}

// WorkspacePath returns the expanded workspace path.
func (c *Config) WorkspacePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ExpandHome(c.Agents.Defaults.Workspace)
}

// DataDirPath returns the expanded data directory path.
func (c *Config) DataDirPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ExpandHome(c.DataDir)
}

// ResolveAgent returns the effective config for a given agent ID,
// merging defaults with per-agent overrides.
func (c *Config) ResolveAgent(agentID string) AgentDefaults {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d := c.Agents.Defaults
	if spec, ok := c.Agents.List[agentID]; ok {
		if spec.Provider != "" {
			d.Provider = spec.Provider
		}
		if spec.Model != "" {
			d.Model = spec.Model
		}
		if spec.MaxTokens > 0 {
			d.MaxTokens = spec.MaxTokens
		}
		if spec.Temperature > 0 {
			d.Temperature = spec.Temperature
		}
		if spec.MaxToolIterations > 0 {
			d.MaxToolIterations = spec.MaxToolIterations
		}
		if spec.ContextWindow > 0 {
			d.ContextWindow = spec.ContextWindow
		}
		if spec.Workspace != "" {
			d.Workspace = spec.Workspace
		}
		if spec.AgentType != "" {
			d.AgentType = spec.AgentType
		}
	}

	return d
}

// ResolveDefaultAgentID returns the ID of the agent marked as default,
// or "default" if none is explicitly marked.
func (c *Config) ResolveDefaultAgentID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for id, spec := range c.Agents.List {
		if spec.Default {
			return id
		}
	}
	return DefaultAgentID
}

// ResolveDisplayName returns the display name for an agent.
// Falls back to "prizm" if not configured.
func (c *Config) ResolveDisplayName(agentID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if spec, ok := c.Agents.List[agentID]; ok && spec.DisplayName != "" {
		return spec.DisplayName
	}
	return "prizm"
}

// ApplyEnvOverrides re-applies environment variable overrides onto the config.
// Call this after modifying config to restore runtime secrets from env vars.
func (c *Config) ApplyEnvOverrides() {
	c.applyEnvOverrides()
	c.applyContextPruningDefaults()
}

// ExpandHome replaces leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
