package gemini

import (
	"context"
	"fmt"

	einoGemini "github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/neurabytelabs/modus-forge/internal/llm/provider/helper"
	"github.com/neurabytelabs/modus-forge/internal/llm/provider/spi"
	"github.com/neurabytelabs/modus-forge/internal/pkg/options"
)

const Name = "gemini"

// Compile-time check: Plugin implements ChatModelPlugin.
var _ spi.ChatModelPlugin = (*Plugin)(nil)

type Plugin struct {
	helper.BasePlugin
}

func New() spi.ProviderPlugin {
	return &Plugin{
		BasePlugin: helper.BasePlugin{PluginName: Name, KeyEnv: "GOOGLE_API_KEY"},
	}
}

// BuildChatModel goes through Google's generative AI API rather than an
// OpenAI-compatible endpoint.
func (p *Plugin) BuildChatModel(ctx context.Context, modelID string, cfg *options.ProviderConfig, params *spi.Params) (model.BaseChatModel, error) {
	apiKey := p.ResolveAPIKey(cfg)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: no API key configured")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: "https://generativelanguage.googleapis.com/",
		},
	}
	if cfg != nil && cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client for %s/%s: %w", Name, modelID, err)
	}

	conf := &einoGemini.Config{
		Client: client,
		Model:  modelID,
	}
	applyParams(conf, params)

	return einoGemini.NewChatModel(ctx, conf)
}

func applyParams(conf *einoGemini.Config, params *spi.Params) {
	if params == nil {
		return
	}
	if params.Temperature != nil {
		t := *params.Temperature
		conf.Temperature = &t
	}
	if params.MaxTokens != 0 {
		mt := params.MaxTokens
		conf.MaxTokens = &mt
	}
}

func (p *Plugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{
		BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		APIKey:  "${GOOGLE_API_KEY}",
		Aliases: map[string]string{
			"gemini":       "gemini-2.0-flash",
			"gemini-pro":   "gemini-2.5-pro-preview-06-05",
			"gemini-flash": "gemini-2.5-flash-preview-05-20",
		},
		Models: []options.ModelDefinition{
			{ID: "gemini-2.5-pro-preview-06-05", Name: "Gemini 2.5 Pro", ContextWindow: 1048576, MaxTokens: 65536, Cost: options.ModelCost{Input: 1.25, Output: 10}},
			{ID: "gemini-2.5-flash-preview-05-20", Name: "Gemini 2.5 Flash", ContextWindow: 1048576, MaxTokens: 65536, Cost: options.ModelCost{Input: 0.15, Output: 0.6}},
			{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash", ContextWindow: 1048576, MaxTokens: 8192, Cost: options.ModelCost{Input: 0.1, Output: 0.4}},
		},
	}
}
