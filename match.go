package crumbs

import "strings"

// normalizeDomain canonicalizes a caller-supplied domain for store queries:
// whitespace and any leading dot are dropped, case is folded.
func normalizeDomain(domain string) string {
	domain = strings.TrimSpace(domain)
	domain = strings.TrimPrefix(domain, ".")
	return strings.ToLower(domain)
}

// hostMatchClause builds the WHERE fragment matching a cookie host column
// against domain: the bare host, its dotted form, and any dotted-subdomain
// suffix. A cookie scoped to ".example.com" must come back for a query on
// "example.com".
func hostMatchClause(column, domain string) (string, []any) {
	return "(" + column + " = ? OR " + column + " = ? OR " + column + " LIKE ?)",
		[]any{domain, "." + domain, "%." + domain}
}

// hostMatchesDomain is the in-memory equivalent of hostMatchClause, used
// where rows arrive from somewhere other than a SQL query.
func hostMatchesDomain(host, domain string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" || domain == "" {
		return false
	}
	if host == domain || host == "."+domain {
		return true
	}
	return strings.HasSuffix(host, "."+domain)
}
