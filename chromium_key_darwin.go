//go:build darwin && !ios

package crumbs

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// platformDecryptor builds the macOS decryptor: the Safe Storage password
// from the login keychain, stretched to an AES-128-CBC key. The keychain may
// prompt the user, so the lookup runs under the configured secret timeout.
func (r *ChromiumReader) platformDecryptor(ctx context.Context) (chromiumDecryptFunc, error) {
	password, err := macosKeychainPassword(ctx, r.cfg.secretTimeout, r.vendor.safeStorageService, r.vendor.safeStorageAccount)
	if err != nil {
		return nil, fmt.Errorf("crumbs: macOS keychain read failed (%s): %w", r.vendor.safeStorageService, err)
	}
	if password == "" {
		return nil, fmt.Errorf("crumbs: macOS keychain returned an empty %s password", r.vendor.safeStorageService)
	}

	key := chromiumDeriveCBCKey(password, chromiumCBCIterationsMacOS)
	fn := chromiumDecryptFunc(func(encrypted []byte, metaVersion int64) ([]byte, bool) {
		plain, err := chromiumDecryptCBC(encrypted, key, metaVersion, true)
		return plain, err == nil
	})
	return fn, nil
}

func macosKeychainPassword(ctx context.Context, timeout time.Duration, service string, account string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout, stderr, err := execCapture(ctx, "security", []string{
		"find-generic-password",
		"-w",
		"-a", account,
		"-s", service,
	})
	if err != nil {
		if s := strings.TrimSpace(stderr); s != "" {
			return "", fmt.Errorf("%w: %s", err, s)
		}
		return "", err
	}
	return strings.TrimSpace(stdout), nil
}
