// Package sanitize strips markup from user supplied text before it is stored.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer removes every HTML tag and attribute; safe for concurrent use
type Sanitizer struct {
	policy *bluemonday.Policy
}

func New() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Text returns s without markup and with whitespace trimmed. Entities are
// decoded before the policy runs so encoded tags are stripped like literal
// ones. The result is decoded back to plain text only when that cannot
// produce an angle bracket; otherwise it stays escaped.
func (s *Sanitizer) Text(in string) string {
	if in == "" {
		return ""
	}
	clean := s.policy.Sanitize(html.UnescapeString(in))
	if plain := html.UnescapeString(clean); !strings.ContainsAny(plain, "<>") {
		clean = plain
	}
	return strings.TrimSpace(clean)
}
