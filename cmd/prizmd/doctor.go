package prizmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/prizm-dev/prizm/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("prizmd doctor")
	fmt.Printf("  Version:  %s (protocol %d)\n", Version, protocolVersion)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (not found, defaults + env vars will be used)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Providers:")
	checkProvider("Anthropic", cfg.Providers.Anthropic.APIKey)
	checkProvider("OpenAI", cfg.Providers.OpenAI.APIKey)
	checkProvider("OpenRouter", cfg.Providers.OpenRouter.APIKey)
	checkProvider("Gemini", cfg.Providers.Gemini.APIKey)
	checkProvider("Groq", cfg.Providers.Groq.APIKey)
	checkProvider("DeepSeek", cfg.Providers.DeepSeek.APIKey)
	checkProvider("Mistral", cfg.Providers.Mistral.APIKey)
	checkProvider("XAI", cfg.Providers.XAI.APIKey)
	checkProvider("MiniMax", cfg.Providers.MiniMax.APIKey)
	checkProvider("Cohere", cfg.Providers.Cohere.APIKey)
	checkProvider("Perplexity", cfg.Providers.Perplexity.APIKey)

	fmt.Println()
	fmt.Println("  Storage:")
	checkWritable("Data dir", cfg.DataDirPath())
	checkWritable("Workspace", cfg.WorkspacePath())

	fmt.Println()
	fmt.Println("  Gateway:")
	fmt.Printf("    %-18s %s:%d\n", "Listen:", cfg.Gateway.Host, cfg.Gateway.Port)
	fmt.Printf("    %-18s %v\n", "Auth disabled:", cfg.Gateway.AuthDisabled)
	fmt.Printf("    %-18s %v\n", "Websocket:", cfg.Gateway.WebsocketEnabled)
	fmt.Printf("    %-18s %d\n", "Rate limit (rpm):", cfg.Gateway.RateLimitRPM)

	if !cfg.HasAnyProvider() {
		fmt.Println()
		fmt.Println("  No provider API key configured — chat turns will fail.")
		fmt.Println("  Set one of PRIZM_ANTHROPIC_API_KEY, PRIZM_OPENAI_API_KEY, etc.")
	}
}

func checkProvider(name, apiKey string) {
	status := "not configured"
	if apiKey != "" {
		status = "configured"
	}
	fmt.Printf("    %-18s %s\n", name+":", status)
}

func checkWritable(label, dir string) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Printf("    %-18s %s (NOT WRITABLE: %s)\n", label+":", dir, err)
		return
	}
	probe := dir + "/.prizmd-doctor-probe"
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		fmt.Printf("    %-18s %s (NOT WRITABLE: %s)\n", label+":", dir, err)
		return
	}
	_ = os.Remove(probe)
	fmt.Printf("    %-18s %s (OK)\n", label+":", dir)
}
