package decision

import (
	"log/slog"
	"regexp"
	"strings"
)

// compileGlobs turns protected-file patterns into anchored matchers, once at
// construction. `**` crosses directory separators, `*` and `?` do not.
// Invalid patterns are logged and skipped; config is validated upstream.
func compileGlobs(patterns []string, logger *slog.Logger) []*regexp.Regexp {
	globs := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(globToRegexp(p))
		if err != nil {
			logger.Warn("invalid protected file pattern", "pattern", p, "error", err)
			continue
		}
		globs = append(globs, re)
	}
	return globs
}

func globToRegexp(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(pattern[i])))
		}
	}
	b.WriteString("$")
	return b.String()
}

func matchesAny(globs []*regexp.Regexp, files []string) bool {
	for _, f := range files {
		for _, g := range globs {
			if g.MatchString(f) {
				return true
			}
		}
	}
	return false
}
