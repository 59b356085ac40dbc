package crumbs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// ErrUnsupportedBrowser is returned when a reader is requested for a browser
// this package has no store implementation for. It is the only hard failure
// in the package; everything past construction degrades to empty results.
var ErrUnsupportedBrowser = errors.New("crumbs: unsupported browser")

// StoreReader reads cookies out of one browser's on-disk store.
//
// ListCookies and GetCookie absorb per-row and per-store failures: a store
// that cannot be copied, opened, or decrypted yields an empty result (plus a
// non-nil error describing why, which callers are free to discard). They
// never panic. "No cookies" and "backend unusable" are both plain values so
// an aggregator can fall through to the next backend.
type StoreReader interface {
	// Browser identifies the backend.
	Browser() Browser

	// IsInstalled reports whether the browser's cookie store exists on this
	// machine. It only stats files; it never opens or copies the store.
	IsInstalled() bool

	// ListCookies returns every cookie whose host matches domain, either
	// exactly or as a dotted-subdomain suffix (".example.com" rows match a
	// query for "example.com").
	ListCookies(ctx context.Context, domain string) ([]Cookie, error)

	// GetCookie returns the first cookie matching domain and name, if any.
	GetCookie(ctx context.Context, domain, name string) (Cookie, bool, error)
}

// defaultSecretTimeout bounds OS keychain/keyring helper calls.
const defaultSecretTimeout = 3 * time.Second

type readerConfig struct {
	storePath      string
	localStatePath string
	profilesDir    string
	secretTimeout  time.Duration
	logger         *slog.Logger
}

// ReaderOption configures a store reader.
type ReaderOption func(*readerConfig)

// WithStorePath points the reader at an explicit cookie database instead of
// the browser's default location. Useful for tests and for stores copied off
// another machine.
func WithStorePath(path string) ReaderOption {
	return func(c *readerConfig) { c.storePath = path }
}

// WithLocalStatePath points a Chromium-family reader at an explicit
// "Local State" file for master-key retrieval. Ignored by Firefox.
func WithLocalStatePath(path string) ReaderOption {
	return func(c *readerConfig) { c.localStatePath = path }
}

// WithProfilesDir points a Firefox reader at an explicit profiles root
// (the directory containing profiles.ini). Ignored by Chromium-family.
func WithProfilesDir(dir string) ReaderOption {
	return func(c *readerConfig) { c.profilesDir = dir }
}

// WithSecretTimeout bounds OS keychain/keyring lookups during master-key
// retrieval. Defaults to 3 seconds.
func WithSecretTimeout(d time.Duration) ReaderOption {
	return func(c *readerConfig) { c.secretTimeout = d }
}

// WithReaderLogger attaches a logger for reader diagnostics. Cookie values
// are never logged. Defaults to a no-op logger.
func WithReaderLogger(l *slog.Logger) ReaderOption {
	return func(c *readerConfig) { c.logger = l }
}

func newReaderConfig(opts []ReaderOption) readerConfig {
	cfg := readerConfig{secretTimeout: defaultSecretTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return cfg
}

// NewReader constructs the store reader for b. Requesting a browser outside
// the supported set fails with ErrUnsupportedBrowser.
func NewReader(b Browser, opts ...ReaderOption) (StoreReader, error) {
	switch b {
	case BrowserChrome, BrowserChromium, BrowserEdge, BrowserBrave:
		return newChromiumReader(b, newReaderConfig(opts)), nil
	case BrowserFirefox:
		return newFirefoxReader(newReaderConfig(opts)), nil
	default:
		return nil, unsupportedBrowserError(b)
	}
}

func unsupportedBrowserError(b Browser) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedBrowser, b)
}
