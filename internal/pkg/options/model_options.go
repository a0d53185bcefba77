package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

// ModelOptions configures the provider router: which providers are
// active, their connection details and the default routing target.
type ModelOptions struct {
	DefaultProvider string                     `json:"default-provider" mapstructure:"default-provider"`
	DefaultModel    string                     `json:"default-model" mapstructure:"default-model"`
	MaxTokens       int                        `json:"max-tokens" mapstructure:"max-tokens"`
	Temperature     float64                    `json:"temperature" mapstructure:"temperature"`
	Providers       map[string]*ProviderConfig `json:"providers" mapstructure:"providers"`
}

// ProviderConfig holds the connection settings for one provider. An
// APIKey of the form "${ENV_VAR}" is resolved from the environment.
type ProviderConfig struct {
	BaseURL string            `json:"base-url" mapstructure:"base-url"`
	APIKey  string            `json:"api-key" mapstructure:"api-key"`
	Models  []ModelDefinition `json:"models" mapstructure:"models"`
	Aliases map[string]string `json:"aliases" mapstructure:"aliases"`
}

// ModelDefinition describes one model exposed by a provider.
type ModelDefinition struct {
	ID            string    `json:"id" mapstructure:"id"`
	Name          string    `json:"name" mapstructure:"name"`
	ContextWindow int       `json:"context-window" mapstructure:"context-window"`
	MaxTokens     int       `json:"max-tokens" mapstructure:"max-tokens"`
	Cost          ModelCost `json:"cost" mapstructure:"cost"`
}

// ModelCost is the per-million-token price of a model.
type ModelCost struct {
	Input  float64 `json:"input" mapstructure:"input"`
	Output float64 `json:"output" mapstructure:"output"`
}

func NewModelOptions() *ModelOptions {
	return &ModelOptions{
		DefaultProvider: "gemini",
		DefaultModel:    "gemini-2.0-flash",
		MaxTokens:       8192,
		Temperature:     0.7,
		Providers:       make(map[string]*ProviderConfig),
	}
}

func (o *ModelOptions) Validate() []error {
	var errs []error
	if o.DefaultProvider == "" {
		errs = append(errs, fmt.Errorf("models.default-provider is required"))
	}
	if o.Temperature < 0 || o.Temperature > 2 {
		errs = append(errs, fmt.Errorf("models.temperature %v out of range [0,2]", o.Temperature))
	}
	for id, p := range o.Providers {
		for _, m := range p.Models {
			if m.ID == "" {
				errs = append(errs, fmt.Errorf("provider %q: model id is required", id))
			}
		}
	}
	return errs
}

func (o *ModelOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.DefaultProvider, "models.default-provider", o.DefaultProvider, "Default provider ID for unknown aliases.")
	fs.StringVar(&o.DefaultModel, "models.default-model", o.DefaultModel, "Default model ID.")
	fs.IntVar(&o.MaxTokens, "models.max-tokens", o.MaxTokens, "Default max output tokens per generation.")
	fs.Float64Var(&o.Temperature, "models.temperature", o.Temperature, "Default sampling temperature.")
}
