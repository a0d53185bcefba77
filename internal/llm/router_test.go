package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neurabytelabs/modus-forge/internal/llm/provider"
	"github.com/neurabytelabs/modus-forge/internal/pkg/options"
)

func newTestRouter() *Router {
	return NewRouter(provider.NewDefaultRegistry(), options.NewModelOptions())
}

func TestDetectProviderAliases(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		alias    string
		provider string
		model    string
	}{
		{"gemini", "gemini", "gemini-2.0-flash"},
		{"claude", "anthropic", "claude-sonnet-4-5"},
		{"gpt", "openai", "gpt-4o"},
		{"deepseek", "deepseek", "deepseek-chat"},
		{"qwen", "qwen", "qwen-plus"},
		{"local", "ollama", "llama3.2"},
		// Concrete model ids resolve to their owning provider.
		{"claude-opus-4-6", "anthropic", "claude-opus-4-6"},
		{"gpt-4o-mini", "openai", "gpt-4o-mini"},
		// Family prefixes.
		{"gemini-exp-1206", "gemini", "gemini-exp-1206"},
		{"claude-next", "anthropic", "claude-next"},
		// Tagged names route to local inference.
		{"mistral:7b", "ollama", "mistral:7b"},
	}
	for _, tt := range tests {
		p, m := r.DetectProvider(tt.alias)
		assert.Equal(t, tt.provider, p, "alias %q", tt.alias)
		assert.Equal(t, tt.model, m, "alias %q", tt.alias)
	}
}

func TestDetectProviderIsTotal(t *testing.T) {
	r := newTestRouter()

	// An alias nobody claims falls through to the default provider
	// with the alias passed along unchanged.
	p, m := r.DetectProvider("some-future-model")
	assert.Equal(t, "gemini", p)
	assert.Equal(t, "some-future-model", m)

	// Empty alias resolves to the configured defaults.
	p, m = r.DetectProvider("")
	assert.Equal(t, "gemini", p)
	assert.Equal(t, "gemini-2.0-flash", m)
}

func TestPostProcessStripsFences(t *testing.T) {
	in := "```html\n<!DOCTYPE html><html><body>hi</body></html>\n```"
	out, err := PostProcess(in)
	assert.NoError(t, err)
	assert.Equal(t, "<!DOCTYPE html><html><body>hi</body></html>", out)
}

func TestPostProcessAcceptsBareHTMLTag(t *testing.T) {
	out, err := PostProcess("  <html><body></body></html>  ")
	assert.NoError(t, err)
	assert.Equal(t, "<html><body></body></html>", out)
}

func TestPostProcessRejectsNonHTML(t *testing.T) {
	_, err := PostProcess("Here is your app: it tracks cardio.")
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestPostProcessRejectsEmpty(t *testing.T) {
	_, err := PostProcess("   ")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = PostProcess("```\n```")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestHashPromptStable(t *testing.T) {
	a := HashPrompt("build a tracker")
	b := HashPrompt("build a tracker")
	c := HashPrompt("build a tracker!")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 3, EstimateTokens("hello, world"))
}
