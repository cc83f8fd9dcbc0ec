package terminal

import (
	"os"
	"regexp"
	"runtime"
	"strings"
)

// sensitiveEnvPattern matches env var names that must never reach a spawned
// PTY or exec worker, per §4.7's sanitization rule.
var sensitiveEnvPattern = regexp.MustCompile(`(?i)(KEY|SECRET|TOKEN|PASSWORD|CREDENTIAL|PRIVATE)`)

// sanitizedEnv returns the process environment with any variable whose name
// matches sensitiveEnvPattern removed.
func sanitizedEnv() []string {
	base := os.Environ()
	out := make([]string, 0, len(base))
	for _, kv := range base {
		name, _, found := strings.Cut(kv, "=")
		if found && sensitiveEnvPattern.MatchString(name) {
			continue
		}
		out = append(out, kv)
	}
	return out
}

// allowedShells lists the shell binaries a terminal may launch. Anything
// else is rejected rather than silently falling back, so a misconfigured
// client can't be tricked into running an arbitrary binary as a "shell".
func allowedShells() []string {
	if runtime.GOOS == "windows" {
		return []string{"powershell.exe", "cmd.exe"}
	}
	return []string{"/bin/bash", "/bin/sh", "/bin/zsh", "/usr/bin/bash", "/usr/bin/zsh", "bash", "sh", "zsh"}
}

func isAllowedShell(shell string) bool {
	for _, s := range allowedShells() {
		if s == shell {
			return true
		}
	}
	return false
}

func defaultShell() string {
	if runtime.GOOS == "windows" {
		return "powershell.exe"
	}
	if sh := os.Getenv("SHELL"); sh != "" && isAllowedShell(sh) {
		return sh
	}
	return "/bin/sh"
}
