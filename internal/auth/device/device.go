package device

import (
	"strings"
	"unicode"

	"github.com/mssola/useragent"
)

// UnknownDevice is recorded when the client sent no User-Agent.
const UnknownDevice = "Unknown Device"

const maxNameLength = 96

// Name labels a session by the client that opened it, e.g. "Chrome on
// Intel Mac OS X 10_15_7", "Safari on iPhone" or "Bot: Googlebot".
// The result is printable and at most 96 bytes.
func Name(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return UnknownDevice
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	if ua.Bot() {
		if browser == "" {
			browser = "unknown"
		}
		return clean("Bot: " + browser)
	}

	platform := ua.OS()
	if ua.Mobile() && ua.Platform() != "" {
		platform = ua.Platform()
	}
	if browser == "" {
		browser = "Unknown Browser"
	}
	if platform == "" {
		platform = "Unknown OS"
	}
	return clean(browser + " on " + platform)
}

// clean drops control characters, collapses runs of spaces and clips to
// maxNameLength without splitting a rune.
func clean(name string) string {
	name = strings.Join(strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}), " ")
	if len(name) <= maxNameLength {
		return name
	}
	cut := maxNameLength
	for cut > 0 && !isRuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
