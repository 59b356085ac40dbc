package crumbs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"
)

// chromiumVendor carries the per-browser constants that differ across the
// Chromium family: display label and the "Safe Storage" secret identity used
// by the macOS Keychain and Linux Secret Service.
type chromiumVendor struct {
	browser Browser
	label   string

	safeStorageService string
	safeStorageAccount string
}

func chromiumVendorFor(b Browser) chromiumVendor {
	switch b {
	case BrowserChrome:
		return chromiumVendor{browser: b, label: "Chrome", safeStorageService: "Chrome Safe Storage", safeStorageAccount: "Chrome"}
	case BrowserChromium:
		return chromiumVendor{browser: b, label: "Chromium", safeStorageService: "Chromium Safe Storage", safeStorageAccount: "Chromium"}
	case BrowserEdge:
		return chromiumVendor{browser: b, label: "Microsoft Edge", safeStorageService: "Microsoft Edge Safe Storage", safeStorageAccount: "Microsoft Edge"}
	case BrowserBrave:
		return chromiumVendor{browser: b, label: "Brave", safeStorageService: "Brave Safe Storage", safeStorageAccount: "Brave"}
	default:
		return chromiumVendor{browser: b, label: string(b), safeStorageService: fmt.Sprintf("%s Safe Storage", b), safeStorageAccount: string(b)}
	}
}

// chromiumDecryptFunc decrypts one encrypted_value blob. A false return means
// that single cookie is unrecoverable; the rest of the listing proceeds.
type chromiumDecryptFunc func(encrypted []byte, metaVersion int64) ([]byte, bool)

// ChromiumReader reads the encrypted cookie store of one Chromium-family
// browser. The zero value is not usable; construct through NewReader.
//
// The resolved store path and the per-value decryptor are memoized on first
// success. Neither cache takes a lock: concurrent first calls may each
// resolve or derive redundantly, and whichever equivalent result lands in the
// cell wins. Failed attempts are never cached, so a cancelled or failing
// first call leaves the reader clean for the next one.
type ChromiumReader struct {
	vendor chromiumVendor
	cfg    readerConfig
	log    *slog.Logger

	storePath atomic.Pointer[string]
	decrypt   atomic.Pointer[chromiumDecryptFunc]

	// newDecryptor is the platform key loader; tests swap it out.
	newDecryptor func(ctx context.Context) (chromiumDecryptFunc, error)
}

func newChromiumReader(b Browser, cfg readerConfig) *ChromiumReader {
	r := &ChromiumReader{vendor: chromiumVendorFor(b), cfg: cfg, log: cfg.logger}
	r.newDecryptor = r.platformDecryptor
	return r
}

// Browser implements StoreReader.
func (r *ChromiumReader) Browser() Browser { return r.vendor.browser }

// IsInstalled implements StoreReader. It stats candidate store locations and
// nothing else.
func (r *ChromiumReader) IsInstalled() bool {
	_, ok := r.resolveStorePath()
	return ok
}

// ListCookies implements StoreReader. The live store is snapshotted to a
// private temp copy before opening so the browser's own lock is never
// contended; the copy is removed on every exit path.
func (r *ChromiumReader) ListCookies(ctx context.Context, domain string) ([]Cookie, error) {
	domain = normalizeDomain(domain)
	if domain == "" {
		return nil, errors.New("crumbs: empty domain")
	}

	storePath, ok := r.resolveStorePath()
	if !ok {
		return nil, nil
	}

	snap, cleanup, err := snapshotStore(storePath)
	if err != nil {
		return nil, fmt.Errorf("crumbs: snapshot %s cookie store: %w", r.vendor.label, err)
	}
	defer cleanup()

	db, err := openSnapshot(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("crumbs: open %s cookie store: %w", r.vendor.label, err)
	}
	defer func() { _ = db.Close() }()

	metaVersion := chromiumMetaVersion(ctx, db)

	rows, err := chromiumQueryCookies(ctx, db, domain)
	if err != nil {
		return nil, fmt.Errorf("crumbs: read %s cookies: %w", r.vendor.label, err)
	}

	decrypt := r.decryptorFor(ctx)

	out := make([]Cookie, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		c, ok := r.cookieFromRow(row, metaVersion, decrypt)
		if !ok {
			dropped++
			continue
		}
		out = append(out, c)
	}
	if dropped > 0 {
		r.log.Debug("skipped undecryptable cookies",
			"browser", r.vendor.browser, "domain", domain, "dropped", dropped)
	}
	return out, nil
}

// GetCookie implements StoreReader.
func (r *ChromiumReader) GetCookie(ctx context.Context, domain, name string) (Cookie, bool, error) {
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

// resolveStorePath locates the cookie database, preferring an explicit
// override. Memoize-on-first-success: failures are re-probed on the next
// call, a success is published once and reused.
func (r *ChromiumReader) resolveStorePath() (string, bool) {
	if p := r.storePath.Load(); p != nil {
		return *p, true
	}
	path, ok := r.locateStore()
	if !ok {
		return "", false
	}
	r.storePath.Store(&path)
	return path, true
}

func (r *ChromiumReader) locateStore() (string, bool) {
	if r.cfg.storePath != "" {
		if fileExists(r.cfg.storePath) {
			return r.cfg.storePath, true
		}
		return "", false
	}
	for _, root := range chromiumUserDataDirs(r.vendor.browser) {
		// Newer stores live under Network/, older ones at the profile root.
		for _, p := range []string{
			filepath.Join(root, "Default", "Network", "Cookies"),
			filepath.Join(root, "Default", "Cookies"),
		} {
			if fileExists(p) {
				return p, true
			}
		}
	}
	return "", false
}

// localStatePath finds the browser's Local State file, which holds the
// wrapped master key. Derived from the store path unless overridden.
func (r *ChromiumReader) localStatePath() (string, bool) {
	if r.cfg.localStatePath != "" {
		if fileExists(r.cfg.localStatePath) {
			return r.cfg.localStatePath, true
		}
		return "", false
	}
	storePath, ok := r.resolveStorePath()
	if !ok {
		return "", false
	}
	p := filepath.Join(chromiumUserDataDirFromStore(storePath), "Local State")
	if !fileExists(p) {
		return "", false
	}
	return p, true
}

// chromiumUserDataDirFromStore walks from <user data>/<profile>[/Network]/Cookies
// back up to the user-data root.
func chromiumUserDataDirFromStore(storePath string) string {
	dir := filepath.Dir(storePath)
	if filepath.Base(dir) == "Network" {
		dir = filepath.Dir(dir)
	}
	return filepath.Dir(dir)
}

// chromiumProfileFromStore names the profile directory a store belongs to.
func chromiumProfileFromStore(storePath string) string {
	dir := filepath.Dir(storePath)
	if filepath.Base(dir) == "Network" {
		dir = filepath.Dir(dir)
	}
	return filepath.Base(dir)
}

// decryptorFor returns the cached per-value decryptor, deriving it on first
// use. Derivation failure (no Local State, keychain refused, unsupported OS)
// is returned as nil without being cached, so encrypted values are skipped
// now and a later call may try again.
func (r *ChromiumReader) decryptorFor(ctx context.Context) chromiumDecryptFunc {
	if p := r.decrypt.Load(); p != nil {
		return *p
	}
	fn, err := r.newDecryptor(ctx)
	if err != nil {
		r.log.Debug("master key unavailable, encrypted values will be skipped",
			"browser", r.vendor.browser, "error", err)
		return nil
	}
	r.decrypt.Store(&fn)
	return fn
}

func (r *ChromiumReader) cookieFromRow(row chromiumCookieRow, metaVersion int64, decrypt chromiumDecryptFunc) (Cookie, bool) {
	if row.name == "" || row.hostKey == "" {
		return Cookie{}, false
	}

	value := row.value
	if value == "" && len(row.encryptedValue) > 0 {
		if decrypt == nil {
			return Cookie{}, false
		}
		plain, ok := decrypt(row.encryptedValue, metaVersion)
		if !ok {
			return Cookie{}, false
		}
		decoded, ok := chromiumDecodeValue(plain)
		if !ok {
			return Cookie{}, false
		}
		value = decoded
	}
	if value == "" {
		return Cookie{}, false
	}

	var expires *time.Time
	if t, ok := chromiumTimeFromExpiresUTC(row.expiresUTC); ok {
		expires = &t
	}
	if row.path == "" {
		row.path = "/"
	}

	return Cookie{
		Name:     row.name,
		Value:    value,
		Domain:   row.hostKey,
		Path:     row.path,
		Secure:   row.isSecure,
		HTTPOnly: row.isHTTPOnly,
		SameSite: sameSiteFromInt(row.sameSite),
		Expires:  expires,
		Source: Source{
			Browser:   r.vendor.browser,
			Profile:   chromiumProfileFromStore(r.storeForSource()),
			StorePath: r.storeForSource(),
		},
	}, true
}

func (r *ChromiumReader) storeForSource() string {
	if p := r.storePath.Load(); p != nil {
		return *p
	}
	return r.cfg.storePath
}

func sameSiteFromInt(v int64) SameSite {
	switch v {
	case 2:
		return SameSiteStrict
	case 1:
		return SameSiteLax
	case 0:
		return SameSiteNone
	default:
		return ""
	}
}

// windowsToUnixEpochSeconds separates 1601-01-01 from 1970-01-01.
const windowsToUnixEpochSeconds int64 = 11_644_473_600

// chromiumTimeFromExpiresUTC converts the store's expires_utc column
// (microseconds since the Windows epoch) to a UTC instant: divide by 1e6 for
// seconds since 1601, then rebase onto the Unix epoch. Zero or negative means
// the row is a session cookie.
func chromiumTimeFromExpiresUTC(expiresUTC int64) (time.Time, bool) {
	if expiresUTC <= 0 {
		return time.Time{}, false
	}
	unixSeconds := expiresUTC/1_000_000 - windowsToUnixEpochSeconds
	if unixSeconds <= 0 {
		return time.Time{}, false
	}
	return time.Unix(unixSeconds, 0).UTC(), true
}
