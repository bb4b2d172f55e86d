// Package config loads the control plane's process configuration from
// environment variables. Lookups are case-insensitive, matching spec.md §6's
// "env-prefixed, any case" requirement; everything but the three
// infrastructure secrets has a default, following the same default/validate
// split as the teacher's per-component config structs (e.g.
// internal/docker.ParseConfig/ValidateConfig in volaticloud).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// environ is a seam for tests to inject a fake environment.
var environ = os.Environ

const envPrefix = "OPENCLAW_"

// CustomizerConfig describes the dev-environment customizer step embedded in
// every bot's cloud-init payload. Its values are opaque to this system — they
// are exported as shell variables and never interpreted here.
type CustomizerConfig struct {
	RepoURL       string
	GitRef        string
	WorkspaceDir  string
	AgentName     string
	OwnerName     string
	SkipLint      bool
	SkipTests     bool
	SkipDocs      bool
	SkipTelemetry bool
}

// ToolchainConfig describes the language toolchains installed inside the VM
// before the bootstrap script runs. Also opaque payload data.
type ToolchainConfig struct {
	NodeMajor         int
	InstallPnpm       bool
	PnpmVersion       string
	InstallRust       bool
	RustToolchain     string
	ExtraAptPackages  []string
	GlobalNpmPackages []string
	CargoCrates       []string
}

// Config is the complete process configuration.
type Config struct {
	DatabaseURL       string // required, no default
	DigitalOceanToken string // required, no default
	EncryptionKey     string // required, no default — base64 32 bytes

	ServerHost      string
	ServerPort      int
	OpenclawImage   string
	ControlPlaneURL string

	Customizer CustomizerConfig
	Toolchain  ToolchainConfig

	// AdminToken gates every /accounts and /bots admin endpoint. Per
	// spec.md §9, admin auth is closed by default: if this is empty, admin
	// endpoints refuse all requests rather than running unauthenticated.
	AdminToken string

	// StaleBotTimeoutSeconds is how old a heartbeat may be before
	// check_stale_bots marks the bot errored. spec.md §5 suggests 2-5 min.
	StaleBotTimeoutSeconds int

	// SweepIntervalSeconds is how often the background sweeper runs
	// check_stale_bots.
	SweepIntervalSeconds int
}

// Load reads Config from the process environment, applying defaults for
// everything but the three required fields, then validates.
func Load() (*Config, error) {
	env := buildCaseInsensitiveEnv()

	cfg := &Config{
		DatabaseURL:       env["DATABASE_URL"],
		DigitalOceanToken: env["DIGITALOCEAN_TOKEN"],
		EncryptionKey:     env["ENCRYPTION_KEY"],

		ServerHost:      getOrDefault(env, "SERVER_HOST", "0.0.0.0"),
		ServerPort:      getIntOrDefault(env, "SERVER_PORT", 8080),
		OpenclawImage:   getOrDefault(env, "OPENCLAW_IMAGE", "ubuntu-22-04-x64"),
		ControlPlaneURL: getOrDefault(env, "CONTROL_PLANE_URL", "http://localhost:8080"),

		Customizer: CustomizerConfig{
			RepoURL:       getOrDefault(env, "CUSTOMIZER_REPO_URL", "https://github.com/openclaw/customizer"),
			GitRef:        getOrDefault(env, "CUSTOMIZER_GIT_REF", "main"),
			WorkspaceDir:  getOrDefault(env, "CUSTOMIZER_WORKSPACE_DIR", "/workspace"),
			AgentName:     getOrDefault(env, "CUSTOMIZER_AGENT_NAME", "openclaw-agent"),
			OwnerName:     getOrDefault(env, "CUSTOMIZER_OWNER_NAME", "openclaw"),
			SkipLint:      getBoolOrDefault(env, "CUSTOMIZER_SKIP_LINT", false),
			SkipTests:     getBoolOrDefault(env, "CUSTOMIZER_SKIP_TESTS", false),
			SkipDocs:      getBoolOrDefault(env, "CUSTOMIZER_SKIP_DOCS", false),
			SkipTelemetry: getBoolOrDefault(env, "CUSTOMIZER_SKIP_TELEMETRY", false),
		},
		Toolchain: ToolchainConfig{
			NodeMajor:         getIntOrDefault(env, "TOOLCHAIN_NODE_MAJOR", 20),
			InstallPnpm:       getBoolOrDefault(env, "TOOLCHAIN_INSTALL_PNPM", true),
			PnpmVersion:       getOrDefault(env, "TOOLCHAIN_PNPM_VERSION", "9"),
			InstallRust:       getBoolOrDefault(env, "TOOLCHAIN_INSTALL_RUST", false),
			RustToolchain:     getOrDefault(env, "TOOLCHAIN_RUST_TOOLCHAIN", "stable"),
			ExtraAptPackages:  getListOrDefault(env, "TOOLCHAIN_EXTRA_APT_PACKAGES", nil),
			GlobalNpmPackages: getListOrDefault(env, "TOOLCHAIN_GLOBAL_NPM_PACKAGES", nil),
			CargoCrates:       getListOrDefault(env, "TOOLCHAIN_CARGO_CRATES", nil),
		},

		AdminToken:             env["ADMIN_TOKEN"],
		StaleBotTimeoutSeconds: getIntOrDefault(env, "STALE_BOT_TIMEOUT_SECONDS", 180),
		SweepIntervalSeconds:   getIntOrDefault(env, "SWEEP_INTERVAL_SECONDS", 30),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields with no usable default.
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "database_url")
	}
	if c.DigitalOceanToken == "" {
		missing = append(missing, "digitalocean_token")
	}
	if c.EncryptionKey == "" {
		missing = append(missing, "encryption_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("config: server_port out of range: %d", c.ServerPort)
	}
	return nil
}

// buildCaseInsensitiveEnv scans the process environment for OPENCLAW_-
// prefixed variables (any case) and returns a map keyed by the upper-cased
// suffix, e.g. "Openclaw_Database_Url=x" and "OPENCLAW_DATABASE_URL=x" both
// land under "DATABASE_URL".
func buildCaseInsensitiveEnv() map[string]string {
	out := make(map[string]string)
	for _, kv := range environ() {
		idx := strings.IndexByte(kv, '=')
		if idx < 0 {
			continue
		}
		key, val := kv[:idx], kv[idx+1:]
		upper := strings.ToUpper(key)
		if !strings.HasPrefix(upper, envPrefix) {
			continue
		}
		out[strings.TrimPrefix(upper, envPrefix)] = val
	}
	return out
}

func getOrDefault(env map[string]string, key, def string) string {
	if v, ok := env[key]; ok && v != "" {
		return v
	}
	return def
}

func getIntOrDefault(env map[string]string, key string, def int) int {
	v, ok := env[key]
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getBoolOrDefault(env map[string]string, key string, def bool) bool {
	v, ok := env[key]
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getListOrDefault(env map[string]string, key string, def []string) []string {
	v, ok := env[key]
	if !ok || v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
