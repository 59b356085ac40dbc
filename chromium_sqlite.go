package crumbs

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
)

type chromiumCookieRow struct {
	hostKey        string
	name           string
	path           string
	value          string
	encryptedValue []byte
	expiresUTC     int64
	isSecure       bool
	isHTTPOnly     bool
	sameSite       int64
}

// chromiumMetaVersion reads the store's schema version. Plaintexts in stores
// at version 24 or later carry a leading host-key hash that must be stripped
// after decryption. Missing meta table reads as 0.
func chromiumMetaVersion(ctx context.Context, db *sql.DB) int64 {
	if db == nil {
		return 0
	}
	var value string
	if err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'version'`).Scan(&value); err != nil {
		return 0
	}
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// chromiumQueryCookies selects the rows matching domain. Rows come back
// longest path first so callers that format headers emit more specific
// cookies before less specific ones.
func chromiumQueryCookies(ctx context.Context, db *sql.DB, domain string) ([]chromiumCookieRow, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}

	where, args := hostMatchClause("host_key", domain)
	//nolint:gosec // `where` is generated with placeholders; the domain is passed via args.
	query := `SELECT host_key, name, path, value, encrypted_value, expires_utc, is_secure, is_httponly, samesite ` +
		`FROM cookies WHERE ` + where + ` ORDER BY path DESC, name ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []chromiumCookieRow
	for rows.Next() {
		var r chromiumCookieRow
		var encrypted []byte
		var expires sql.NullInt64
		var secure sql.NullInt64
		var httpOnly sql.NullInt64
		var sameSite sql.NullInt64

		if err := rows.Scan(&r.hostKey, &r.name, &r.path, &r.value, &encrypted, &expires, &secure, &httpOnly, &sameSite); err != nil {
			return nil, err
		}

		r.encryptedValue = encrypted
		if expires.Valid {
			r.expiresUTC = expires.Int64
		}
		r.isSecure = secure.Valid && secure.Int64 == 1
		r.isHTTPOnly = httpOnly.Valid && httpOnly.Int64 == 1
		if sameSite.Valid {
			r.sameSite = sameSite.Int64
		}

		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
