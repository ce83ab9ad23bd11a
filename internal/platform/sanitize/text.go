// Package sanitize strips markup from free text written by patients and doctors.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxPasses bounds how many layers of entity encoding are peeled off.
const maxPasses = 5

// Text removes every HTML element and attribute, keeping only the text content.
// The policy is safe for concurrent use.
type Text struct {
	policy *bluemonday.Policy
}

func NewText() *Text {
	return &Text{policy: bluemonday.StrictPolicy()}
}

// Clean returns plain text: markup removed, entities decoded, surrounding space trimmed.
// Decoding repeats until the policy has nothing left to strip, so entity-encoded markup
// never comes back as live tags. Input that is still changing after maxPasses keeps the
// policy's escaped form.
func (t *Text) Clean(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	out := raw
	for i := 0; i < maxPasses; i++ {
		next := html.UnescapeString(t.policy.Sanitize(out))
		if next == out {
			return strings.TrimSpace(out)
		}
		out = next
	}
	return strings.TrimSpace(t.policy.Sanitize(out))
}
