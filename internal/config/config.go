// Package config loads the layered configuration: built-in defaults,
// user and project .forgerc.json files, FORGE_* environment overrides
// and finally explicit runtime flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/neurabytelabs/modus-forge/internal/pkg/options"
	"github.com/neurabytelabs/modus-forge/pkg/logger"
)

// RCName is the config file name looked up in the user home and the
// project directory.
const RCName = ".forgerc.json"

// Config is the resolved runtime configuration.
type Config struct {
	Server   *options.ServerRunOptions `json:"server" mapstructure:"server"`
	Models   *options.ModelOptions     `json:"models" mapstructure:"models"`
	Pipeline *options.PipelineOptions  `json:"pipeline" mapstructure:"pipeline"`
	Security *options.SecurityOptions  `json:"security" mapstructure:"security"`
	Plugins  *options.PluginsOptions   `json:"plugins" mapstructure:"plugins"`
	Watch    *options.WatchOptions     `json:"watch" mapstructure:"watch"`

	// DataDir is the user-local persistence root.
	DataDir string `json:"data-dir" mapstructure:"data-dir"`
	// OutputDir receives rendered applications.
	OutputDir string `json:"output-dir" mapstructure:"output-dir"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Server:    options.NewServerRunOptions(),
		Models:    options.NewModelOptions(),
		Pipeline:  options.NewPipelineOptions(),
		Security:  options.NewSecurityOptions(),
		Plugins:   options.NewPluginsOptions(),
		Watch:     options.NewWatchOptions(),
		DataDir:   dataDir,
		OutputDir: ".",
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".forge-data"
	}
	return filepath.Join(home, ".modus-forge")
}

// Load resolves the configuration. Precedence, highest first:
// explicit flag overrides (applied by the caller after Load) >
// FORGE_* env vars > project rc > user rc > defaults.
func Load(projectDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")

	// Environment: FORGE_SECURITY_SANITIZE=false → security.sanitize.
	v.SetEnvPrefix("FORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, key := range envOverrideKeys {
		_ = v.BindEnv(key)
	}

	// Layer 1: user rc.
	if home, err := os.UserHomeDir(); err == nil {
		mergeFile(v, filepath.Join(home, RCName))
	}
	// Layer 2: project rc (wins over user rc).
	if projectDir != "" {
		mergeFile(v, filepath.Join(projectDir, RCName))
	}

	cfg := NewConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// AutomaticEnv does not surface env-only keys through Unmarshal;
	// pull the documented overrides explicitly.
	applyEnvOverrides(cfg, v)

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %v", errs)
	}
	return cfg, nil
}

func mergeFile(v *viper.Viper, path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	if err := v.MergeConfig(f); err != nil {
		logger.Warn("[Config] skipping malformed %s: %v", path, err)
	}
}

// envOverrideKeys are the documented FORGE_* dot-path overrides.
var envOverrideKeys = []string{
	"server.auth-token",
	"server.bind-port",
	"server.rate-limit-max",
	"security.sanitize",
	"models.default-provider",
	"models.default-model",
	"pipeline.threshold",
	"data-dir",
	"output-dir",
}

func applyEnvOverrides(cfg *Config, v *viper.Viper) {
	if v.IsSet("server.auth-token") {
		cfg.Server.AuthToken = v.GetString("server.auth-token")
	}
	if v.IsSet("server.bind-port") {
		cfg.Server.BindPort = v.GetInt("server.bind-port")
	}
	if v.IsSet("server.rate-limit-max") {
		cfg.Server.RateLimitMax = v.GetInt("server.rate-limit-max")
	}
	if v.IsSet("security.sanitize") {
		cfg.Security.Sanitize = v.GetBool("security.sanitize")
	}
	if v.IsSet("models.default-provider") {
		cfg.Models.DefaultProvider = v.GetString("models.default-provider")
	}
	if v.IsSet("models.default-model") {
		cfg.Models.DefaultModel = v.GetString("models.default-model")
	}
	if v.IsSet("pipeline.threshold") {
		cfg.Pipeline.Threshold = v.GetFloat64("pipeline.threshold")
	}
	if v.IsSet("data-dir") {
		cfg.DataDir = v.GetString("data-dir")
	}
	if v.IsSet("output-dir") {
		cfg.OutputDir = v.GetString("output-dir")
	}
}

// Validate aggregates every option group's validation.
func (c *Config) Validate() []error {
	var errs []error
	errs = append(errs, c.Server.Validate()...)
	errs = append(errs, c.Models.Validate()...)
	errs = append(errs, c.Pipeline.Validate()...)
	errs = append(errs, c.Security.Validate()...)
	errs = append(errs, c.Plugins.Validate()...)
	errs = append(errs, c.Watch.Validate()...)
	return errs
}

// StoreDir returns the KV store root under the data dir.
func (c *Config) StoreDir() string { return filepath.Join(c.DataDir, "store") }

// TelemetryDir returns the telemetry root under the data dir.
func (c *Config) TelemetryDir() string { return filepath.Join(c.DataDir, "telemetry") }

// PluginStatePath returns the plugin enable-state sidecar path.
func (c *Config) PluginStatePath() string { return filepath.Join(c.DataDir, "plugin-state.json") }
