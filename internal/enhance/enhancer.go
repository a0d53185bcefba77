// Package enhance assembles the enhanced prompt: a deterministic,
// layered expansion of the raw intent. No I/O happens here; context
// hints arrive pre-gathered in the options.
package enhance

import (
	"fmt"
	"sort"
	"strings"
)

// Options carry everything Enhance folds into the prompt besides the
// intent itself. Identical Options and intent produce identical output.
type Options struct {
	// Style selects a visual preset: cyberpunk, minimal or terminal.
	Style string
	// Language, when set, asks for UI copy in that language.
	Language string
	// ContextBlock is the newline-joined probe bundle.
	ContextBlock string
	// ProfileHint summarizes the user's past preferences.
	ProfileHint string
	// Persona flavors the app's voice ("strict coach", "cozy librarian").
	Persona string
	// Theme forces a light/dark preference when set.
	Theme string
}

// Section is one layer of the enhanced prompt. Sections render in
// priority order; an empty render is skipped.
type Section struct {
	Name     string
	Priority int
	Render   func(intent string, opts Options) string
}

var styleDirectives = map[string]string{
	"cyberpunk": "Neon-on-dark palette, glow accents, angular shapes, monospace-adjacent display type.",
	"minimal":   "Generous whitespace, few colors, quiet typography, no ornamentation.",
	"terminal":  "Monospace everything, green-or-amber on near-black, blocky cursor motifs.",
}

// sections is the fixed layer set, ordered by priority at init.
var sections = []Section{
	{
		Name:     "task",
		Priority: 100,
		Render: func(intent string, _ Options) string {
			return fmt.Sprintf("Build a complete, self-contained HTML application for this intent:\n\n%s", strings.TrimSpace(intent))
		},
	},
	{
		Name:     "style",
		Priority: 200,
		Render: func(_ string, opts Options) string {
			directive, ok := styleDirectives[opts.Style]
			if !ok {
				return ""
			}
			return fmt.Sprintf("Visual style — %s: %s", opts.Style, directive)
		},
	},
	{
		Name:     "theme",
		Priority: 250,
		Render: func(_ string, opts Options) string {
			if opts.Theme == "" {
				return ""
			}
			return fmt.Sprintf("Color scheme preference: %s.", opts.Theme)
		},
	},
	{
		Name:     "language",
		Priority: 300,
		Render: func(_ string, opts Options) string {
			if opts.Language == "" {
				return ""
			}
			return fmt.Sprintf("All user-facing copy must be written in %s.", opts.Language)
		},
	},
	{
		Name:     "persona",
		Priority: 400,
		Render: func(_ string, opts Options) string {
			if opts.Persona == "" {
				return ""
			}
			return fmt.Sprintf("The app speaks to its user as: %s.", opts.Persona)
		},
	},
	{
		Name:     "context",
		Priority: 500,
		Render: func(_ string, opts Options) string {
			if opts.ContextBlock == "" {
				return ""
			}
			return fmt.Sprintf("Ambient context (use it for sensible defaults, do not display it verbatim):\n%s", opts.ContextBlock)
		},
	},
	{
		Name:     "profile",
		Priority: 600,
		Render: func(_ string, opts Options) string {
			if opts.ProfileHint == "" {
				return ""
			}
			return fmt.Sprintf("User profile hint: %s", opts.ProfileHint)
		},
	},
	{
		Name:     "quality",
		Priority: 900,
		Render: func(_ string, _ Options) string {
			return strings.Join([]string{
				"Quality bar:",
				"- the app must DO something: inputs, handlers, state that persists in localStorage",
				"- structure must be sound: doctype, closed tags, error handling in scripts",
				"- it should be beautiful: embedded CSS, transitions, considered color",
				"- and humane: semantic elements, ARIA where relevant, placeholders, a title",
			}, "\n")
		},
	},
}

func init() {
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Priority < sections[j].Priority
	})
}

// Enhance renders the enhanced prompt for intent. It is a pure
// function of its arguments.
func Enhance(intent string, opts Options) string {
	var parts []string
	for _, s := range sections {
		if text := s.Render(intent, opts); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}
