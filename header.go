package crumbs

import "strings"

// FormatHeader renders cookies as an HTTP Cookie header value, "a=1; b=2",
// suitable for http.Request.Header.Set("Cookie", ...). Expired cookies are
// dropped; the order of the remaining cookies is preserved.
func FormatHeader(cookies []Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		if c.IsExpired() {
			continue
		}
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// foldName normalizes a cookie name for case-insensitive comparison.
func foldName(name string) string { return strings.ToLower(name) }
