// Package sanitize statically scans generated HTML for dangerous
// patterns and can rewrite them away. It is a best-effort textual
// filter, not a parser.
package sanitize

import (
	"regexp"
	"sort"
	"strings"
)

// Severity ranks an issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// Issue is one matched pattern.
type Issue struct {
	Name     string   `json:"name"`
	Severity Severity `json:"severity"`
	Match    string   `json:"match"`
	Line     int      `json:"line"`
}

// Report is the outcome of a scan. Safe is true iff no issue reaches
// high or critical severity.
type Report struct {
	Safe   bool    `json:"safe"`
	Issues []Issue `json:"issues"`
}

type pattern struct {
	name     string
	severity Severity
	re       *regexp.Regexp
}

var patterns = []pattern{
	{"javascript-uri", SeverityCritical, regexp.MustCompile(`(?i)(href|src)\s*=\s*["']javascript:`)},
	{"inline-eval", SeverityCritical, regexp.MustCompile(`(?i)\bon[a-z]+\s*=\s*["'][^"']*\beval\s*\(`)},
	{"iframe-embed", SeverityHigh, regexp.MustCompile(`(?i)<iframe\b`)},
	{"document-write", SeverityHigh, regexp.MustCompile(`(?i)document\.write\s*\(`)},
	{"remote-script", SeverityMedium, regexp.MustCompile(`(?i)<script[^>]+src\s*=\s*["']https?://`)},
	{"outbound-fetch", SeverityMedium, regexp.MustCompile(`(?i)\b(fetch|XMLHttpRequest)\s*\(`)},
	{"cookie-access", SeverityLow, regexp.MustCompile(`(?i)document\.cookie`)},
}

// Options tune Sanitize.
type Options struct {
	// StripScripts removes <script> blocks entirely.
	StripScripts bool
	// StripStyles removes inline style attributes.
	StripStyles bool
}

// Scan reports every dangerous pattern in code, ordered by severity.
func Scan(code string) Report {
	var issues []Issue
	for _, p := range patterns {
		for _, loc := range p.re.FindAllStringIndex(code, -1) {
			issues = append(issues, Issue{
				Name:     p.name,
				Severity: p.severity,
				Match:    snippet(code[loc[0]:loc[1]]),
				Line:     1 + strings.Count(code[:loc[0]], "\n"),
			})
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return severityRank[issues[i].Severity] < severityRank[issues[j].Severity]
	})

	safe := true
	for _, issue := range issues {
		if issue.Severity == SeverityCritical || issue.Severity == SeverityHigh {
			safe = false
			break
		}
	}
	return Report{Safe: safe, Issues: issues}
}

var (
	jsURIRe       = regexp.MustCompile(`(?i)((?:href|src)\s*=\s*["'])javascript:[^"']*`)
	inlineEvalRe  = regexp.MustCompile(`(?i)(\bon[a-z]+\s*=\s*["'])[^"']*\beval\s*\([^"']*`)
	iframeRe      = regexp.MustCompile(`(?is)<iframe\b.*?(?:</iframe>|/>)`)
	scriptBlockRe = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	styleAttrRe   = regexp.MustCompile(`(?i)\sstyle\s*=\s*("[^"]*"|'[^']*')`)
)

// Sanitize rewrites dangerous constructs out of code and returns the
// cleaned text plus the names of applied rewrites. Applying Sanitize
// to its own output changes nothing.
func Sanitize(code string, opts Options) (string, []string) {
	var removed []string

	if jsURIRe.MatchString(code) {
		code = jsURIRe.ReplaceAllString(code, `${1}#`)
		removed = append(removed, "javascript-uri")
	}
	if inlineEvalRe.MatchString(code) {
		code = inlineEvalRe.ReplaceAllString(code, `${1}`)
		removed = append(removed, "inline-eval")
	}
	if iframeRe.MatchString(code) {
		code = iframeRe.ReplaceAllString(code, "")
		removed = append(removed, "iframe-embed")
	}
	if opts.StripScripts && scriptBlockRe.MatchString(code) {
		code = scriptBlockRe.ReplaceAllString(code, "")
		removed = append(removed, "script-block")
	}
	if opts.StripStyles && styleAttrRe.MatchString(code) {
		code = styleAttrRe.ReplaceAllString(code, "")
		removed = append(removed, "style-attr")
	}

	return code, removed
}

func snippet(s string) string {
	if len(s) > 60 {
		return s[:60]
	}
	return s
}
