package enhance

import (
	"fmt"
	"strings"
)

// BuildSystemInstruction returns the system prompt enforcing the output
// contract. The instruction is independent of the intent; providers all
// receive the same contract.
func BuildSystemInstruction(opts Options) string {
	var buf strings.Builder

	buf.WriteString("You are an expert front-end engineer generating single-file HTML applications.\n\n")
	buf.WriteString("Hard rules:\n")
	buf.WriteString("- Reply with ONE complete HTML document and nothing else. No prose, no markdown fences.\n")
	buf.WriteString("- The document starts with <!DOCTYPE html> and is fully self-contained: all CSS in <style>, all JS in <script>.\n")
	buf.WriteString("- No external dependencies: no CDN links, no remote fonts, no network calls at runtime.\n")
	buf.WriteString("- Persist user data with localStorage so the app survives a reload.\n")

	if opts.Style != "" {
		if directive, ok := styleDirectives[opts.Style]; ok {
			buf.WriteString(fmt.Sprintf("- Follow the %s visual style: %s\n", opts.Style, directive))
		}
	}

	buf.WriteString("\nAim for an app that is effective (real interactivity), ")
	buf.WriteString("well-built (valid structure, guarded scripts), ")
	buf.WriteString("beautiful (deliberate styling, motion where it helps) ")
	buf.WriteString("and natural to use (semantics, accessibility, sensible copy).")

	return buf.String()
}
