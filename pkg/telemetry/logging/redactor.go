package logging

import (
	"regexp"

	"meridian-hq/vega/pkg/config"
)

// Redactor masks sensitive values in log fields.
type Redactor struct {
	patterns []*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternCardPAN     = "card_pan"
	PatternAPIKey      = "api_key"
	PatternBearerToken = "bearer_token"
	PatternEmail       = "email"
)

// NewRedactor creates a Redactor with the built-in patterns plus any
// custom patterns. Custom patterns that fail to compile are skipped.
func NewRedactor(custom []config.RedactPattern) *Redactor {
	r := &Redactor{}
	r.addDefaultPatterns()

	for _, p := range custom {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}
	return r
}

func (r *Redactor) addDefaultPatterns() {
	defaults := []struct {
		name        string
		regex       string
		replacement string
	}{
		// Full card numbers, 13 to 19 digits with optional separators.
		// Six-digit BINs are below the minimum length and pass through.
		{
			PatternCardPAN,
			`\b(?:\d[ -]?){12,18}\d\b`,
			"****[PAN]",
		},
		{
			PatternAPIKey,
			`(sk-[a-zA-Z0-9]+|api[-_]?key[-_:=]\s*[a-zA-Z0-9]+)`,
			"[API_KEY]",
		},
		{
			PatternBearerToken,
			`(?i)bearer\s+[a-zA-Z0-9._\-]+`,
			"Bearer [TOKEN]",
		},
		{
			PatternEmail,
			`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`,
			"[EMAIL]",
		},
	}

	for _, d := range defaults {
		r.patterns = append(r.patterns, &redactPattern{
			name:        d.name,
			regex:       regexp.MustCompile(d.regex),
			replacement: d.replacement,
		})
	}
}

// RedactString applies all patterns to s and returns the masked result.
func (r *Redactor) RedactString(s string) string {
	for _, p := range r.patterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}
