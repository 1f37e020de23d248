package conversation

import (
	"regexp"
	"strings"

	"github.com/devpilot-io/devpilot/internal/event"
)

// PatternRule binds an ordered list of expressions to one event type. The
// first expression that matches a message fires the rule; a rule fires at
// most once per message.
type PatternRule struct {
	Type        event.Type
	Description string
	Patterns    []*regexp.Regexp
}

// DefaultRules is the ordered pattern table the monitor evaluates against
// every message. Rules are independent: several rules may fire on the same
// message, each at most once.
func DefaultRules() []PatternRule {
	return []PatternRule{
		{
			Type:        event.TypeFeatureComplete,
			Description: "Feature implementation reported",
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(?:implemented|finished|completed|shipped)\b.*\b(?:feature|functionality)\b`),
				regexp.MustCompile(`(?i)\bfeature\b.*\b(?:implemented|completed?|finished|done|ready|working)\b`),
			},
		},
		{
			Type:        event.TypeBugFixed,
			Description: "Bug fix reported",
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(?:fixed|resolved|patched)\b.*\b(?:bug|issue|error|problem|crash)\b`),
				regexp.MustCompile(`(?i)\b(?:bug|issue|error|crash)\b.*\b(?:fixed|resolved|solved|gone)\b`),
			},
		},
		{
			Type:        event.TypeTestsPassing,
			Description: "Tests reported passing",
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\btests?\b.*\b(?:pass(?:ing|ed)?|green|succeed(?:ed)?)\b`),
				regexp.MustCompile(`(?i)\btest suite\b.*\b(?:green|clean)\b`),
			},
		},
		{
			Type:        event.TypeTestsFailing,
			Description: "Tests reported failing",
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\btests?\b.*\b(?:fail(?:ing|ed|s)?|broken|red)\b`),
				regexp.MustCompile(`(?i)\bfail(?:ing|ed)?\b.*\btests?\b`),
			},
		},
		{
			Type:        event.TypeRefactorComplete,
			Description: "Refactor reported complete",
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\brefactor(?:ed|ing)?\b.*\b(?:done|completed?|finished)\b`),
				regexp.MustCompile(`(?i)\b(?:finished|completed|done)\b.*\brefactor(?:ing)?\b`),
			},
		},
		{
			Type:        event.TypeDocsUpdated,
			Description: "Documentation update reported",
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(?:updated|wrote|added|improved)\b.*\b(?:docs|documentation|readme|changelog)\b`),
				regexp.MustCompile(`(?i)\b(?:docs|documentation|readme)\b.*\b(?:updated|written|done|current)\b`),
			},
		},
	}
}

var (
	backtickRe = regexp.MustCompile("`([^`\\s]+)`")
	dotExtRe   = regexp.MustCompile(`\.[A-Za-z][A-Za-z0-9]*$`)
)

// extractFiles pulls file-path-like tokens out of a message: backtick-quoted
// single tokens plus bare words. A token qualifies when it contains a slash
// or ends in a dot-extension and has at least one letter. Paths are returned
// de-duplicated in first-mention order.
func extractFiles(content string) []string {
	var (
		files []string
		seen  = map[string]bool{}
	)
	add := func(tok string) {
		tok = strings.Trim(tok, "`.,;:!?()[]{}\"'")
		if tok == "" || seen[tok] {
			return
		}
		if !strings.ContainsAny(tok, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ") {
			return
		}
		if !strings.Contains(tok, "/") && !dotExtRe.MatchString(tok) {
			return
		}
		seen[tok] = true
		files = append(files, tok)
	}

	for _, m := range backtickRe.FindAllStringSubmatch(content, -1) {
		add(m[1])
	}
	for _, tok := range strings.Fields(content) {
		add(tok)
	}
	return files
}
