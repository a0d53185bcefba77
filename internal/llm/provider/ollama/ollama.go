package ollama

import (
	"context"

	einoOllama "github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino/components/model"

	"github.com/neurabytelabs/modus-forge/internal/llm/provider/helper"
	"github.com/neurabytelabs/modus-forge/internal/llm/provider/spi"
	"github.com/neurabytelabs/modus-forge/internal/pkg/options"
)

const Name = "ollama"

// Timeout is the per-request ceiling for local inference; local models
// are slower than hosted APIs, so it is generous.
const Timeout = 300

var _ spi.ChatModelPlugin = (*Plugin)(nil)

type Plugin struct {
	helper.BasePlugin
}

func New() spi.ProviderPlugin {
	return &Plugin{
		BasePlugin: helper.BasePlugin{PluginName: Name},
	}
}

// Available always holds: a local daemon needs no token. Reachability
// is discovered at request time.
func (p *Plugin) Available(_ *options.ProviderConfig) bool { return true }

func (p *Plugin) BuildChatModel(ctx context.Context, modelID string, cfg *options.ProviderConfig, params *spi.Params) (model.BaseChatModel, error) {
	conf := &einoOllama.ChatModelConfig{
		BaseURL: "http://127.0.0.1:11434",
		Model:   modelID,
		Options: &einoOllama.Options{},
	}
	if cfg != nil && cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	applyParams(conf, params)

	return einoOllama.NewChatModel(ctx, conf)
}

func applyParams(conf *einoOllama.ChatModelConfig, params *spi.Params) {
	if params == nil {
		return
	}
	if params.Temperature != nil {
		conf.Options.Temperature = *params.Temperature
	}
	if params.MaxTokens != 0 {
		conf.Options.NumPredict = params.MaxTokens
	}
}

func (p *Plugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{
		BaseURL: "http://127.0.0.1:11434",
		Aliases: map[string]string{
			"local": "llama3.2",
		},
		Models: []options.ModelDefinition{
			{ID: "llama3.2", Name: "Llama 3.2", ContextWindow: 131072, MaxTokens: 8192},
		},
	}
}
