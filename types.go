package crumbs

import "time"

// Browser identifies a supported cookie store backend.
type Browser string

const (
	// BrowserChrome is Google Chrome.
	BrowserChrome Browser = "chrome"
	// BrowserChromium is Chromium.
	BrowserChromium Browser = "chromium"
	// BrowserEdge is Microsoft Edge.
	BrowserEdge Browser = "edge"
	// BrowserBrave is Brave Browser.
	BrowserBrave Browser = "brave"

	// BrowserFirefox is Mozilla Firefox.
	BrowserFirefox Browser = "firefox"
)

// DefaultBrowserOrder returns the canonical backend order used when no
// preference is given. The order is an explicit list, not an artifact of
// declaration order, so callers can rely on it staying stable.
func DefaultBrowserOrder() []Browser {
	return []Browser{
		BrowserChrome,
		BrowserEdge,
		BrowserBrave,
		BrowserChromium,
		BrowserFirefox,
	}
}

// supportedBrowser reports whether b is in the closed set of backends this
// package can read.
func supportedBrowser(b Browser) bool {
	switch b {
	case BrowserChrome, BrowserChromium, BrowserEdge, BrowserBrave, BrowserFirefox:
		return true
	default:
		return false
	}
}

// SameSite is the cookie SameSite attribute.
type SameSite string

const (
	// SameSiteNone is SameSite=None.
	SameSiteNone SameSite = "None"
	// SameSiteLax is SameSite=Lax.
	SameSiteLax SameSite = "Lax"
	// SameSiteStrict is SameSite=Strict.
	SameSiteStrict SameSite = "Strict"
)

// Source describes which store a cookie was read from.
type Source struct {
	Browser   Browser
	Profile   string
	StorePath string
}

// Cookie is one browser cookie after decryption. Value is always plaintext;
// callers never see ciphertext. A Cookie is constructed fresh on every query
// and never mutated afterwards.
type Cookie struct {
	Name     string
	Value    string
	Domain   string // host as stored; a leading dot means "applies to subdomains"
	Path     string
	Secure   bool
	HTTPOnly bool
	SameSite SameSite

	// Expires is nil for session cookies.
	Expires *time.Time
	Source  Source
}

// IsExpired reports whether the cookie carries an expiry in the past.
// Session cookies (no expiry) are never expired.
func (c Cookie) IsExpired() bool {
	return c.Expires != nil && c.Expires.Before(time.Now().UTC())
}
