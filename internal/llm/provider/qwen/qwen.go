package qwen

import (
	"context"
	"fmt"

	einoQwen "github.com/cloudwego/eino-ext/components/model/qwen"
	"github.com/cloudwego/eino/components/model"

	"github.com/neurabytelabs/modus-forge/internal/llm/provider/helper"
	"github.com/neurabytelabs/modus-forge/internal/llm/provider/spi"
	"github.com/neurabytelabs/modus-forge/internal/pkg/options"
)

const Name = "qwen"

var _ spi.ChatModelPlugin = (*Plugin)(nil)

type Plugin struct {
	helper.BasePlugin
}

func New() spi.ProviderPlugin {
	return &Plugin{
		BasePlugin: helper.BasePlugin{PluginName: Name, KeyEnv: "DASHSCOPE_API_KEY"},
	}
}

func (p *Plugin) BuildChatModel(ctx context.Context, modelID string, cfg *options.ProviderConfig, params *spi.Params) (model.BaseChatModel, error) {
	apiKey := p.ResolveAPIKey(cfg)
	if apiKey == "" {
		return nil, fmt.Errorf("qwen: no API key configured")
	}

	conf := &einoQwen.ChatModelConfig{
		APIKey:  apiKey,
		Model:   modelID,
		BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
	}
	if cfg != nil && cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	applyParams(conf, params)

	return einoQwen.NewChatModel(ctx, conf)
}

func applyParams(conf *einoQwen.ChatModelConfig, params *spi.Params) {
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
		BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
		APIKey:  "${DASHSCOPE_API_KEY}",
		Aliases: map[string]string{
			"qwen": "qwen-plus",
		},
		Models: []options.ModelDefinition{
			{ID: "qwen-plus", Name: "Qwen Plus", ContextWindow: 131072, MaxTokens: 8192, Cost: options.ModelCost{Input: 0.4, Output: 1.2}},
			{ID: "qwen-turbo", Name: "Qwen Turbo", ContextWindow: 131072, MaxTokens: 8192, Cost: options.ModelCost{Input: 0.05, Output: 0.2}},
		},
	}
}
