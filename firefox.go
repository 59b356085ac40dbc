package crumbs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"
)

// FirefoxReader reads the cookie store of the user's default Firefox
// profile. Values are stored in plaintext, so no key material is involved.
// The zero value is not usable; construct through NewReader.
type FirefoxReader struct {
	cfg readerConfig
	log *slog.Logger

	// store memoizes the resolved profile on first success, same policy as
	// the Chromium reader: no lock, failed probes are re-run next call.
	store atomic.Pointer[firefoxStore]
}

type firefoxStore struct {
	path    string
	profile string
}

func newFirefoxReader(cfg readerConfig) *FirefoxReader {
	return &FirefoxReader{cfg: cfg, log: cfg.logger}
}

// Browser implements StoreReader.
func (r *FirefoxReader) Browser() Browser { return BrowserFirefox }

// IsInstalled implements StoreReader.
func (r *FirefoxReader) IsInstalled() bool {
	_, ok := r.resolveStore()
	return ok
}

// ListCookies implements StoreReader. Reads go against a private snapshot of
// cookies.sqlite so a running Firefox keeps its lock undisturbed.
func (r *FirefoxReader) ListCookies(ctx context.Context, domain string) ([]Cookie, error) {
	domain = normalizeDomain(domain)
	if domain == "" {
		return nil, errors.New("crumbs: empty domain")
	}

	store, ok := r.resolveStore()
	if !ok {
		return nil, nil
	}

	snap, cleanup, err := snapshotStore(store.path)
	if err != nil {
		return nil, fmt.Errorf("crumbs: snapshot Firefox cookie store: %w", err)
	}
	defer cleanup()

	db, err := openSnapshot(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("crumbs: open Firefox cookie store: %w", err)
	}
	defer func() { _ = db.Close() }()

	rows, err := firefoxQueryCookies(ctx, db, domain)
	if err != nil {
		return nil, fmt.Errorf("crumbs: read Firefox cookies: %w", err)
	}

	out := make([]Cookie, 0, len(rows))
	for _, row := range rows {
		c, ok := firefoxCookieFromRow(store, row)
		if !ok {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// GetCookie implements StoreReader.
func (r *FirefoxReader) GetCookie(ctx context.Context, domain, name string) (Cookie, bool, error) {
	cookies, err := r.ListCookies(ctx, domain)
	if err != nil {
		return Cookie{}, false, err
	}
	for _, c := range cookies {
		if c.Name == name {
			return c, true, nil
		}
	}
	return Cookie{}, false, nil
}

func (r *FirefoxReader) resolveStore() (firefoxStore, bool) {
	if s := r.store.Load(); s != nil {
		return *s, true
	}
	store, ok := r.locateStore()
	if !ok {
		return firefoxStore{}, false
	}
	r.store.Store(&store)
	return store, true
}

func (r *FirefoxReader) locateStore() (firefoxStore, bool) {
	if r.cfg.storePath != "" {
		if fileExists(r.cfg.storePath) {
			return firefoxStore{path: r.cfg.storePath, profile: filepath.Base(filepath.Dir(r.cfg.storePath))}, true
		}
		return firefoxStore{}, false
	}

	roots := firefoxRoots()
	if r.cfg.profilesDir != "" {
		roots = []string{r.cfg.profilesDir}
	}
	for _, root := range roots {
		profileDir, ok := firefoxDefaultProfileDir(root)
		if !ok {
			continue
		}
		dbPath := filepath.Join(profileDir, "cookies.sqlite")
		if !fileExists(dbPath) {
			continue
		}
		return firefoxStore{path: dbPath, profile: filepath.Base(profileDir)}, true
	}
	return firefoxStore{}, false
}

type firefoxRow struct {
	host     string
	name     string
	value    string
	path     string
	expiry   int64
	isSecure bool
	httpOnly bool
	sameSite int64
}

func firefoxQueryCookies(ctx context.Context, db *sql.DB, domain string) ([]firefoxRow, error) {
	where, args := hostMatchClause("host", domain)
	//nolint:gosec // `where` is generated with placeholders; the domain is passed via args.
	query := `SELECT host, name, value, path, expiry, isSecure, isHttpOnly, sameSite FROM moz_cookies WHERE ` + where + ` ORDER BY path DESC, name ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []firefoxRow
	for rows.Next() {
		var r firefoxRow
		var expiry sql.NullInt64
		var secure sql.NullInt64
		var httpOnly sql.NullInt64
		var sameSite sql.NullInt64

		if err := rows.Scan(&r.host, &r.name, &r.value, &r.path, &expiry, &secure, &httpOnly, &sameSite); err != nil {
			return nil, err
		}
		if expiry.Valid {
			r.expiry = expiry.Int64
		}
		r.isSecure = secure.Valid && secure.Int64 == 1
		r.httpOnly = httpOnly.Valid && httpOnly.Int64 == 1
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

func firefoxCookieFromRow(store firefoxStore, r firefoxRow) (Cookie, bool) {
	if r.name == "" || r.host == "" || r.value == "" {
		return Cookie{}, false
	}
	if r.path == "" {
		r.path = "/"
	}

	var expires *time.Time
	if r.expiry > 0 {
		t := time.Unix(r.expiry, 0).UTC()
		expires = &t
	}

	return Cookie{
		Name:     r.name,
		Value:    r.value,
		Domain:   r.host,
		Path:     r.path,
		Secure:   r.isSecure,
		HTTPOnly: r.httpOnly,
		SameSite: sameSiteFromInt(r.sameSite),
		Expires:  expires,
		Source: Source{
			Browser:   BrowserFirefox,
			Profile:   store.profile,
			StorePath: store.path,
		},
	}, true
}
