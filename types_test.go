package crumbs

import (
	"testing"
	"time"
)

func TestCookieIsExpired(t *testing.T) {
	past := time.Now().Add(-time.Hour).UTC()
	future := time.Now().Add(time.Hour).UTC()

	tests := []struct {
		name    string
		expires *time.Time
		want    bool
	}{
		{"past expiry", &past, true},
		{"future expiry", &future, false},
		{"session cookie", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Cookie{Name: "sid", Value: "v", Expires: tt.expires}
			if got := c.IsExpired(); got != tt.want {
				t.Fatalf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultBrowserOrderIsStableAndComplete(t *testing.T) {
	order := DefaultBrowserOrder()
	seen := map[Browser]bool{}
	for _, b := range order {
		if seen[b] {
			t.Fatalf("browser %q listed twice", b)
		}
		if !supportedBrowser(b) {
			t.Fatalf("browser %q in default order but not supported", b)
		}
		seen[b] = true
	}
	for _, b := range []Browser{BrowserChrome, BrowserChromium, BrowserEdge, BrowserBrave, BrowserFirefox} {
		if !seen[b] {
			t.Fatalf("browser %q missing from default order", b)
		}
	}
}
