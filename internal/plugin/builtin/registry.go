// Package builtin registers the in-tree plugins with a Framework.
package builtin

import (
	"github.com/neurabytelabs/modus-forge/internal/plugin"
	"github.com/neurabytelabs/modus-forge/internal/plugin/builtin/guardrail"
	"github.com/neurabytelabs/modus-forge/internal/plugin/builtin/watermark"
)

// Apply registers every built-in plugin factory. Per-plugin config
// comes from the entries map keyed by plugin id.
func Apply(f *plugin.Framework, entries map[string]map[string]interface{}) error {
	builtins := []struct {
		def     plugin.Definition
		factory plugin.Factory
	}{
		{
			def: plugin.Definition{
				ID:          watermark.ID,
				Version:     "1.0.0",
				Description: "Stamp generated documents with a generator meta tag.",
				Priority:    50,
			},
			factory: watermark.New,
		},
		{
			def: plugin.Definition{
				ID:          guardrail.ID,
				Version:     "1.0.0",
				Description: "Scan documents for unsafe patterns before persistence.",
				Priority:    10,
			},
			factory: guardrail.New,
		},
	}

	for _, b := range builtins {
		if err := f.RegisterFactory(b.def, b.factory, entries[b.def.ID]); err != nil {
			return err
		}
	}
	return nil
}
