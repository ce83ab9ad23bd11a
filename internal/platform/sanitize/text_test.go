package sanitize

import (
	"html"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	s := NewText()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  take 2 tablets daily  ", "take 2 tablets daily"},
		{"script removed", `hello<script>alert(1)</script>`, "hello"},
		{"tags stripped", `<b>urgent</b> <a href="http://x">call me</a>`, "urgent call me"},
		{"entities decoded", "BP &lt; 120", "BP < 120"},
		{"blank", "   ", ""},
		{"encoded markup", "&lt;script&gt;alert(1)&lt;/script&gt; &lt;img src=x onerror=alert(1)&gt;", ""},
		{"double encoded", "&amp;lt;b&amp;gt;note&amp;lt;/b&amp;gt;", "note"},
		{"encoded tag in text", "see &lt;img src=x onerror=alert(1)&gt;results", "see results"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := s.Clean(tc.in)
			assert.Equal(t, tc.want, got)
			assert.NotContains(t, got, "<script")
			assert.NotContains(t, got, "<img")
		})
	}
}

func TestCleanDeepEncodingStaysEscaped(t *testing.T) {
	in := "<b>x</b>"
	for i := 0; i < maxPasses+2; i++ {
		in = html.EscapeString(in)
	}

	got := NewText().Clean(in)
	assert.NotContains(t, got, "<")
}
