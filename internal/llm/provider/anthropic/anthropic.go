package anthropic

import (
	"context"
	"fmt"

	einoClaude "github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"

	"github.com/neurabytelabs/modus-forge/internal/llm/provider/helper"
	"github.com/neurabytelabs/modus-forge/internal/llm/provider/spi"
	"github.com/neurabytelabs/modus-forge/internal/pkg/options"
)

const Name = "anthropic"

var _ spi.ChatModelPlugin = (*Plugin)(nil)

type Plugin struct {
	helper.BasePlugin
}

func New() spi.ProviderPlugin {
	return &Plugin{
		BasePlugin: helper.BasePlugin{PluginName: Name, KeyEnv: "ANTHROPIC_API_KEY"},
	}
}

func (p *Plugin) BuildChatModel(ctx context.Context, modelID string, cfg *options.ProviderConfig, params *spi.Params) (model.BaseChatModel, error) {
	apiKey := p.ResolveAPIKey(cfg)
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: no API key configured")
	}

	conf := &einoClaude.Config{
		APIKey:    apiKey,
		Model:     modelID,
		MaxTokens: 8192,
	}
	if def, ok := helper.FindModel(cfg, modelID); ok && def.MaxTokens > 0 {
		conf.MaxTokens = def.MaxTokens
	}
	if cfg != nil && cfg.BaseURL != "" {
		conf.BaseURL = &cfg.BaseURL
	}
	applyParams(conf, params)

	return einoClaude.NewChatModel(ctx, conf)
}

func applyParams(conf *einoClaude.Config, params *spi.Params) {
	if params == nil {
		return
	}
	if params.Temperature != nil {
		conf.Temperature = params.Temperature
	}
	if params.MaxTokens != 0 {
		conf.MaxTokens = params.MaxTokens
	}
}

func (p *Plugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{
		BaseURL: "https://api.anthropic.com/v1",
		APIKey:  "${ANTHROPIC_API_KEY}",
		Aliases: map[string]string{
			"claude":       "claude-sonnet-4-5",
			"claude-opus":  "claude-opus-4-6",
			"claude-haiku": "claude-haiku-4-5",
		},
		Models: []options.ModelDefinition{
			{ID: "claude-opus-4-6", Name: "Claude Opus 4.6", ContextWindow: 200000, MaxTokens: 128000, Cost: options.ModelCost{Input: 5, Output: 25}},
			{ID: "claude-sonnet-4-5", Name: "Claude Sonnet 4.5", ContextWindow: 200000, MaxTokens: 64000, Cost: options.ModelCost{Input: 3, Output: 15}},
			{ID: "claude-haiku-4-5", Name: "Claude Haiku 4.5", ContextWindow: 200000, MaxTokens: 64000, Cost: options.ModelCost{Input: 1, Output: 5}},
		},
	}
}
