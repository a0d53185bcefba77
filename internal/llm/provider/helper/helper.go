package helper

import (
	"os"
	"strings"

	"github.com/neurabytelabs/modus-forge/internal/pkg/options"
)

// BasePlugin provides the pieces of the provider contract shared by all
// providers. Concrete plugins embed it and supply BuildChatModel.
type BasePlugin struct {
	PluginName string
	// KeyEnv is the environment variable carrying the provider token.
	KeyEnv string
}

func (b *BasePlugin) Name() string {
	return b.PluginName
}

// Available reports whether a usable API key can be resolved. Providers
// without a key requirement override this.
func (b *BasePlugin) Available(cfg *options.ProviderConfig) bool {
	if cfg != nil && ResolveEnvValue(cfg.APIKey) != "" {
		return true
	}
	return b.KeyEnv != "" && os.Getenv(b.KeyEnv) != ""
}

// ResolveAPIKey returns the effective API key for cfg, falling back to
// the plugin's well-known environment variable.
func (b *BasePlugin) ResolveAPIKey(cfg *options.ProviderConfig) string {
	if cfg != nil {
		if key := ResolveEnvValue(cfg.APIKey); key != "" {
			return key
		}
	}
	return os.Getenv(b.KeyEnv)
}

// ResolveEnvValue resolves "${ENV_VAR}" references in a string.
func ResolveEnvValue(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}
	return s
}

// FindModel looks a model id up in cfg's model table.
func FindModel(cfg *options.ProviderConfig, modelID string) (options.ModelDefinition, bool) {
	if cfg == nil {
		return options.ModelDefinition{}, false
	}
	for _, m := range cfg.Models {
		if m.ID == modelID {
			return m, true
		}
	}
	return options.ModelDefinition{}, false
}
