package recorder

import (
	"regexp"

	"github.com/m-mizutani/goerr/v2"
)

// DefaultRedactionPatterns are key names whose values are hidden in saved logs.
var DefaultRedactionPatterns = []string{"password", "token", "secret", "key", "credential"}

// DefaultRedactionReplacement replaces redacted values.
const DefaultRedactionReplacement = "***REDACTED***"

// Redactor hides "key: value" and "key=value" pairs whose key matches one of its patterns.
type Redactor struct {
	rules       []*regexp.Regexp
	replacement string
}

// NewRedactor compiles patterns. An empty replacement uses DefaultRedactionReplacement.
func NewRedactor(patterns []string, replacement string) (*Redactor, error) {
	if replacement == "" {
		replacement = DefaultRedactionReplacement
	}

	r := &Redactor{replacement: replacement}
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)(["']?\b` + p + `["']?\s*[:=]\s*["']?)([^"'}\s,]+)`)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid redaction pattern", goerr.V("pattern", p))
		}
		r.rules = append(r.rules, re)
	}
	return r, nil
}

// Redact returns s with sensitive values replaced.
func (r *Redactor) Redact(s string) string {
	if r == nil {
		return s
	}
	for _, re := range r.rules {
		s = re.ReplaceAllString(s, "${1}"+r.replacement)
	}
	return s
}

// RedactEntry returns a copy of e with its message redacted.
func (r *Redactor) RedactEntry(e Entry) Entry {
	e.Message = r.Redact(e.Message)
	return e
}
