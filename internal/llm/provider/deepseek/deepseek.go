package deepseek

import (
	"context"
	"fmt"

	einoDeepseek "github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino/components/model"

	"github.com/neurabytelabs/modus-forge/internal/llm/provider/helper"
	"github.com/neurabytelabs/modus-forge/internal/llm/provider/spi"
	"github.com/neurabytelabs/modus-forge/internal/pkg/options"
)

const Name = "deepseek"

var _ spi.ChatModelPlugin = (*Plugin)(nil)

type Plugin struct {
	helper.BasePlugin
}

func New() spi.ProviderPlugin {
	return &Plugin{
		BasePlugin: helper.BasePlugin{PluginName: Name, KeyEnv: "DEEPSEEK_API_KEY"},
	}
}

func (p *Plugin) BuildChatModel(ctx context.Context, modelID string, cfg *options.ProviderConfig, params *spi.Params) (model.BaseChatModel, error) {
	apiKey := p.ResolveAPIKey(cfg)
	if apiKey == "" {
		return nil, fmt.Errorf("deepseek: no API key configured")
	}

	conf := &einoDeepseek.ChatModelConfig{
		APIKey: apiKey,
		Model:  modelID,
	}
	if cfg != nil && cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	applyParams(conf, params)

	return einoDeepseek.NewChatModel(ctx, conf)
}

func applyParams(conf *einoDeepseek.ChatModelConfig, params *spi.Params) {
	if params == nil {
		return
	}
	if params.Temperature != nil {
		conf.Temperature = *params.Temperature
	}
	if params.MaxTokens != 0 {
		conf.MaxTokens = params.MaxTokens
	}
}

func (p *Plugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{
		BaseURL: "https://api.deepseek.com",
		APIKey:  "${DEEPSEEK_API_KEY}",
		Aliases: map[string]string{
			"deepseek": "deepseek-chat",
		},
		Models: []options.ModelDefinition{
			{ID: "deepseek-chat", Name: "DeepSeek V3", ContextWindow: 65536, MaxTokens: 8192, Cost: options.ModelCost{Input: 0.27, Output: 1.1}},
			{ID: "deepseek-reasoner", Name: "DeepSeek R1", ContextWindow: 65536, MaxTokens: 8192, Cost: options.ModelCost{Input: 0.55, Output: 2.19}},
		},
	}
}
