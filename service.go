package crumbs

import (
	"context"
	"io"
	"log/slog"
)

// Service aggregates cookie stores across every supported browser. Backends
// are tried in a fixed priority order; one browser missing, locked, or
// undecryptable never fails a query, the service just moves to the next.
type Service struct {
	readers []StoreReader
	log     *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceConfig)

type serviceConfig struct {
	readers    []StoreReader
	readerOpts []ReaderOption
	logger     *slog.Logger
}

// WithReaders replaces the constructed backends with an explicit ordered
// list. The list is the priority order; the preferred browser passed to
// NewService is ignored.
func WithReaders(readers ...StoreReader) ServiceOption {
	return func(c *serviceConfig) { c.readers = readers }
}

// WithReaderOptions forwards options to every reader the service constructs.
func WithReaderOptions(opts ...ReaderOption) ServiceOption {
	return func(c *serviceConfig) { c.readerOpts = append(c.readerOpts, opts...) }
}

// WithServiceLogger attaches a logger for fallback diagnostics. Cookie values
// are never logged. Defaults to a no-op logger.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(c *serviceConfig) { c.logger = l }
}

// NewService builds a service whose priority order is preferred first, then
// the remaining supported browsers in canonical order, each exactly once. An
// empty preferred browser means no preference. A browser outside the
// supported set is the one construction-time failure.
func NewService(preferred Browser, opts ...ServiceOption) (*Service, error) {
	cfg := serviceConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if cfg.readers == nil {
		order, err := browserOrder(preferred)
		if err != nil {
			return nil, err
		}
		readerOpts := cfg.readerOpts
		if len(readerOpts) == 0 {
			readerOpts = []ReaderOption{WithReaderLogger(cfg.logger)}
		}
		for _, b := range order {
			r, err := NewReader(b, readerOpts...)
			if err != nil {
				return nil, err
			}
			cfg.readers = append(cfg.readers, r)
		}
	}

	return &Service{readers: cfg.readers, log: cfg.logger}, nil
}

// browserOrder prepends preferred to the canonical order without duplicating
// it. Preferred must be a supported browser or empty.
func browserOrder(preferred Browser) ([]Browser, error) {
	if preferred == "" {
		return DefaultBrowserOrder(), nil
	}
	if !supportedBrowser(preferred) {
		return nil, unsupportedBrowserError(preferred)
	}
	order := make([]Browser, 0, len(DefaultBrowserOrder()))
	order = append(order, preferred)
	for _, b := range DefaultBrowserOrder() {
		if b != preferred {
			order = append(order, b)
		}
	}
	return order, nil
}

// ListCookies returns the first non-empty cookie listing for domain across
// the backends in priority order. Backends that are not installed are
// skipped; backends that fail are logged and skipped. An empty slice means
// no backend had cookies. Cancelling ctx abandons the remaining backends.
func (s *Service) ListCookies(ctx context.Context, domain string) []Cookie {
	for _, r := range s.readers {
		if ctx.Err() != nil {
			return nil
		}
		if !r.IsInstalled() {
			continue
		}
		cookies, err := r.ListCookies(ctx, domain)
		if err != nil {
			s.log.Debug("backend read failed, trying next",
				"browser", r.Browser(), "domain", domain, "error", err)
			continue
		}
		if len(cookies) > 0 {
			return cookies
		}
	}
	return nil
}

// GetCookie returns the first unexpired cookie named name for domain across
// the backends in priority order. An expired match disqualifies its backend
// and the search moves on.
func (s *Service) GetCookie(ctx context.Context, domain, name string) (Cookie, bool) {
	for _, r := range s.readers {
		if ctx.Err() != nil {
			return Cookie{}, false
		}
		if !r.IsInstalled() {
			continue
		}
		c, found, err := r.GetCookie(ctx, domain, name)
		if err != nil {
			s.log.Debug("backend read failed, trying next",
				"browser", r.Browser(), "domain", domain, "error", err)
			continue
		}
		if !found || c.IsExpired() {
			continue
		}
		return c, true
	}
	return Cookie{}, false
}

// CookieHeader builds a Cookie header from the unexpired cookies for domain
// whose names are in names (case-insensitive). The bool is false when
// nothing matched.
func (s *Service) CookieHeader(ctx context.Context, domain string, names []string) (string, bool) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[foldName(n)] = true
	}

	var matched []Cookie
	for _, c := range s.ListCookies(ctx, domain) {
		if !wanted[foldName(c.Name)] || c.IsExpired() {
			continue
		}
		matched = append(matched, c)
	}
	if len(matched) == 0 {
		return "", false
	}
	return FormatHeader(matched), true
}

// CookieHeaderFromBrowser builds a Cookie header from exactly one backend,
// with no fallback. It returns "" when that browser is not configured, not
// installed, or has no cookies for domain.
func (s *Service) CookieHeaderFromBrowser(ctx context.Context, b Browser, domain string) string {
	for _, r := range s.readers {
		if r.Browser() != b {
			continue
		}
		if !r.IsInstalled() {
			return ""
		}
		cookies, err := r.ListCookies(ctx, domain)
		if err != nil {
			s.log.Debug("backend read failed",
				"browser", b, "domain", domain, "error", err)
			return ""
		}
		return FormatHeader(cookies)
	}
	return ""
}

// InstalledBrowsers reports which configured backends are present on this
// machine, in priority order.
func (s *Service) InstalledBrowsers() []Browser {
	var out []Browser
	for _, r := range s.readers {
		if r.IsInstalled() {
			out = append(out, r.Browser())
		}
	}
	return out
}
