package device

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	cases := []struct {
		name     string
		ua       string
		contains []string
	}{
		{
			name:     "desktop chrome",
			ua:       "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			contains: []string{"Chrome on ", "Mac OS X"},
		},
		{
			name:     "mobile safari reports the platform",
			ua:       "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			contains: []string{"Safari on iPhone"},
		},
		{
			name:     "firefox on linux",
			ua:       "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			contains: []string{"Firefox on ", "Linux"},
		},
		{
			name:     "crawler",
			ua:       "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
			contains: []string{"Bot: "},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Name(tc.ua)
			for _, want := range tc.contains {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestName_Blank(t *testing.T) {
	assert.Equal(t, UnknownDevice, Name(""))
	assert.Equal(t, UnknownDevice, Name(" \t "))
}

func TestName_IsPrintableAndBounded(t *testing.T) {
	for _, ua := range []string{
		"Mozilla/5.0 (X11;\r\n Linux x86_64) Firefox/121.0",
		strings.Repeat("X", 4096),
		strings.Repeat("é", 200),
	} {
		got := Name(ua)
		assert.LessOrEqual(t, len(got), maxNameLength)
		assert.True(t, utf8.ValidString(got))
		assert.NotContains(t, got, "\n")
		assert.NotContains(t, got, "  ")
	}
}

func TestClean(t *testing.T) {
	assert.Equal(t, "Chrome on Linux", clean(" Chrome\x00 on\tLinux "))
	assert.Equal(t, strings.Repeat("é", maxNameLength/2), clean(strings.Repeat("é", 100)))
}
