package provider

import (
	"github.com/neurabytelabs/modus-forge/internal/llm/provider/anthropic"
	"github.com/neurabytelabs/modus-forge/internal/llm/provider/deepseek"
	"github.com/neurabytelabs/modus-forge/internal/llm/provider/gemini"
	"github.com/neurabytelabs/modus-forge/internal/llm/provider/ollama"
	"github.com/neurabytelabs/modus-forge/internal/llm/provider/openai"
	"github.com/neurabytelabs/modus-forge/internal/llm/provider/qwen"
)

// NewDefaultRegistry returns a Registry with every built-in provider.
// The registration order is the alias-detection order.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(gemini.Name, gemini.New)
	r.MustRegister(openai.Name, openai.New)
	r.MustRegister(anthropic.Name, anthropic.New)
	r.MustRegister(deepseek.Name, deepseek.New)
	r.MustRegister(qwen.Name, qwen.New)
	r.MustRegister(ollama.Name, ollama.New)
	return r
}
