// Package spi defines the provider plugin contract. Each provider hides
// one heterogeneous LLM backend behind the shared BaseChatModel surface.
package spi

import (
	"context"

	"github.com/cloudwego/eino/components/model"

	"github.com/neurabytelabs/modus-forge/internal/pkg/options"
)

// Params carries the runtime generation parameters a caller may override.
type Params struct {
	MaxTokens   int
	Temperature *float32
}

// ProviderPlugin is the base interface every provider implements.
type ProviderPlugin interface {
	// Name returns the provider identifier ("gemini", "anthropic", ...).
	Name() string
	// DefaultConfig returns the provider's built-in configuration,
	// including its model table and alias map.
	DefaultConfig() *options.ProviderConfig
	// Available reports whether the provider can take requests. A
	// missing API token makes a provider unavailable, never a startup
	// failure.
	Available(cfg *options.ProviderConfig) bool
}

// ChatModelPlugin extends ProviderPlugin with the ability to build a
// BaseChatModel for actual inference. The returned model supports both
// Generate and Stream.
type ChatModelPlugin interface {
	ProviderPlugin
	BuildChatModel(ctx context.Context, modelID string, cfg *options.ProviderConfig, params *Params) (model.BaseChatModel, error)
}

// PluginFactory creates a ProviderPlugin instance.
type PluginFactory func() ProviderPlugin
