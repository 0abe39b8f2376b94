package domain

import (
	"net/url"
	"strings"
	"unicode"
)

// MakeSafe returns candidate when it is a same-origin path, otherwise fallback.
// Absolute URLs, protocol-relative URLs ("//evil.example.com"), backslash
// tricks and control characters are all rejected.
func MakeSafe(candidate string, fallback string) string {
	if isSafeRedirect(candidate) {
		return candidate
	}
	return fallback
}

func isSafeRedirect(candidate string) bool {
	if candidate == "" || !strings.HasPrefix(candidate, "/") {
		return false
	}
	if strings.HasPrefix(candidate, "//") || strings.Contains(candidate, `\`) {
		return false
	}
	for _, r := range candidate {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return false
		}
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && u.User == nil
}
