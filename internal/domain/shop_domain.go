package domain

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// DefaultMyshopifyDomain is the platform suffix every shop host ends with
const DefaultMyshopifyDomain = "myshopify.com"

// ErrInvalidShopDomain is returned when a raw shop value cannot be turned into a shop host
var ErrInvalidShopDomain = errors.New("invalid shop domain")

var schemePrefix = regexp.MustCompile(`https?://`)

// ShopDomain is a sanitized shop host such as "example.myshopify.com"
type ShopDomain string

// String returns the host
func (s ShopDomain) String() string {
	return string(s)
}

// SanitizeShopDomain normalizes raw user or query input into a ShopDomain.
// A bare name without any dot gets the platform suffix appended, so "example"
// becomes "example.myshopify.com". Scheme, path, query and port are dropped.
func SanitizeShopDomain(raw string, myshopifyDomain string) (ShopDomain, error) {
	if myshopifyDomain == "" {
		myshopifyDomain = DefaultMyshopifyDomain
	}

	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return "", ErrInvalidShopDomain
	}
	if !strings.Contains(name, myshopifyDomain) && !strings.Contains(name, ".") {
		name += "." + myshopifyDomain
	}
	name = schemePrefix.ReplaceAllString(name, "")

	u, err := url.Parse("http://" + name)
	if err != nil {
		return "", ErrInvalidShopDomain
	}

	host := u.Hostname()
	if !shopHostPattern(myshopifyDomain).MatchString(host) {
		return "", ErrInvalidShopDomain
	}

	return ShopDomain(host), nil
}

func shopHostPattern(myshopifyDomain string) *regexp.Regexp {
	if myshopifyDomain == DefaultMyshopifyDomain {
		return defaultShopHost
	}
	return regexp.MustCompile(`^[a-z0-9][a-z0-9\-]*[a-z0-9]\.` + regexp.QuoteMeta(myshopifyDomain) + `$`)
}

var defaultShopHost = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]*[a-z0-9]\.` + regexp.QuoteMeta(DefaultMyshopifyDomain) + `$`)
