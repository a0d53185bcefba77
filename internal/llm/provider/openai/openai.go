package openai

import (
	"context"
	"fmt"

	einoOpenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/neurabytelabs/modus-forge/internal/llm/provider/helper"
	"github.com/neurabytelabs/modus-forge/internal/llm/provider/spi"
	"github.com/neurabytelabs/modus-forge/internal/pkg/options"
)

const Name = "openai"

var _ spi.ChatModelPlugin = (*Plugin)(nil)

type Plugin struct {
	helper.BasePlugin
}

func New() spi.ProviderPlugin {
	return &Plugin{
		BasePlugin: helper.BasePlugin{PluginName: Name, KeyEnv: "OPENAI_API_KEY"},
	}
}

// BuildChatModel also serves any OpenAI-compatible endpoint: point
// BaseURL elsewhere and the same wire shape applies.
func (p *Plugin) BuildChatModel(ctx context.Context, modelID string, cfg *options.ProviderConfig, params *spi.Params) (model.BaseChatModel, error) {
	apiKey := p.ResolveAPIKey(cfg)
	if apiKey == "" {
		return nil, fmt.Errorf("openai: no API key configured")
	}

	conf := &einoOpenai.ChatModelConfig{
		APIKey: apiKey,
		Model:  modelID,
	}
	if cfg != nil && cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	applyParams(conf, params)

	return einoOpenai.NewChatModel(ctx, conf)
}

func applyParams(conf *einoOpenai.ChatModelConfig, params *spi.Params) {
	if params == nil {
		return
	}
	if params.Temperature != nil {
		conf.Temperature = params.Temperature
	}
	if params.MaxTokens != 0 {
		mt := params.MaxTokens
		conf.MaxTokens = &mt
	}
}

func (p *Plugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{
		BaseURL: "https://api.openai.com/v1",
		APIKey:  "${OPENAI_API_KEY}",
		Aliases: map[string]string{
			"gpt":      "gpt-4o",
			"gpt-mini": "gpt-4o-mini",
		},
		Models: []options.ModelDefinition{
			{ID: "gpt-4o", Name: "GPT-4o", ContextWindow: 128000, MaxTokens: 16384, Cost: options.ModelCost{Input: 2.5, Output: 10}},
			{ID: "gpt-4o-mini", Name: "GPT-4o mini", ContextWindow: 128000, MaxTokens: 16384, Cost: options.ModelCost{Input: 0.15, Output: 0.6}},
		},
	}
}
