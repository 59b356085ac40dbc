//go:build linux && !android

package crumbs

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
)

type linuxKeyringBackend string

const (
	linuxKeyringGnome   linuxKeyringBackend = "gnome"
	linuxKeyringKWallet linuxKeyringBackend = "kwallet"
	linuxKeyringBasic   linuxKeyringBackend = "basic"
)

// platformDecryptor builds the Linux decryptor. v10 values use the fixed
// "peanuts" password, v11 values the per-browser Safe Storage password from
// the desktop keyring; an empty-password key is tried as well because some
// distributions ship the basic (plaintext) backend.
func (r *ChromiumReader) platformDecryptor(ctx context.Context) (chromiumDecryptFunc, error) {
	password := r.linuxSafeStoragePassword(ctx)

	v10Key := chromiumDeriveCBCKey("peanuts", chromiumCBCIterationsLinux)
	emptyKey := chromiumDeriveCBCKey("", chromiumCBCIterationsLinux)
	v11Key := chromiumDeriveCBCKey(password, chromiumCBCIterationsLinux)

	fn := chromiumDecryptFunc(func(encrypted []byte, metaVersion int64) ([]byte, bool) {
		if len(encrypted) < chromiumVersionLen {
			return nil, false
		}
		var keys [][]byte
		switch string(encrypted[:chromiumVersionLen]) {
		case "v10":
			keys = [][]byte{v10Key, emptyKey}
		case "v11":
			keys = [][]byte{v11Key, emptyKey}
		default:
			return nil, false
		}
		for _, key := range keys {
			if plain, err := chromiumDecryptCBC(encrypted, key, metaVersion, false); err == nil {
				return plain, true
			}
		}
		return nil, false
	})
	return fn, nil
}

// linuxSafeStoragePassword resolves the v11 password. An empty return is not
// fatal: v10 values still decrypt, v11 values are skipped.
func (r *ChromiumReader) linuxSafeStoragePassword(ctx context.Context) string {
	// Escape hatch for deterministic tooling/CI.
	if override := strings.TrimSpace(os.Getenv(envKeySafeStoragePassword(r.vendor.browser))); override != "" {
		return override
	}

	backend := parseLinuxKeyringBackend()
	if backend == "" {
		backend = chooseLinuxKeyringBackend()
	}

	switch backend {
	case linuxKeyringBasic:
		return ""
	case linuxKeyringGnome:
		if pw, err := keyring.Get(r.vendor.safeStorageService, r.vendor.safeStorageAccount); err == nil && strings.TrimSpace(pw) != "" {
			return strings.TrimSpace(pw)
		}
		pw, err := linuxSecretToolLookup(ctx, r.cfg.secretTimeout, r.vendor.safeStorageService, r.vendor.safeStorageAccount)
		if err != nil {
			r.log.Debug("secret-tool lookup failed, v11 values will be skipped",
				"browser", r.vendor.browser, "error", err)
			return ""
		}
		return pw
	case linuxKeyringKWallet:
		pw, err := linuxKWalletLookup(ctx, r.cfg.secretTimeout, r.vendor.safeStorageService, r.vendor.safeStorageAccount)
		if err != nil {
			r.log.Debug("kwallet lookup failed, v11 values will be skipped",
				"browser", r.vendor.browser, "error", err)
			return ""
		}
		return pw
	default:
		r.log.Debug("unknown keyring backend", "backend", string(backend))
		return ""
	}
}

func envKeySafeStoragePassword(b Browser) string {
	return "CRUMBS_" + strings.ToUpper(string(b)) + "_SAFE_STORAGE_PASSWORD"
}

func parseLinuxKeyringBackend() linuxKeyringBackend {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("CRUMBS_LINUX_KEYRING")))
	switch raw {
	case "gnome":
		return linuxKeyringGnome
	case "kwallet":
		return linuxKeyringKWallet
	case "basic":
		return linuxKeyringBasic
	default:
		return ""
	}
}

func chooseLinuxKeyringBackend() linuxKeyringBackend {
	xdg := strings.ToLower(os.Getenv("XDG_CURRENT_DESKTOP"))
	for _, p := range strings.Split(xdg, ":") {
		if strings.TrimSpace(p) == "kde" {
			return linuxKeyringKWallet
		}
	}
	if os.Getenv("KDE_FULL_SESSION") != "" {
		return linuxKeyringKWallet
	}
	return linuxKeyringGnome
}

func linuxSecretToolLookup(ctx context.Context, timeout time.Duration, service string, account string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout, _, err := execCapture(ctx, "secret-tool", []string{"lookup", "service", service, "account", account})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stdout), nil
}

func linuxKWalletLookup(ctx context.Context, timeout time.Duration, service string, account string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	wallet := "kdewallet"
	serviceName, walletPath := linuxKWalletServiceNameAndPath()
	if serviceName != "" && walletPath != "" {
		stdout, _, err := execCapture(ctx, "dbus-send", []string{
			"--session",
			"--print-reply=literal",
			"--dest=" + serviceName,
			walletPath,
			"org.kde.KWallet.networkWallet",
		})
		if err == nil {
			if w := strings.TrimSpace(strings.ReplaceAll(stdout, "\"", "")); w != "" {
				wallet = w
			}
		}
	}

	folder := account + " Keys"
	stdout, _, err := execCapture(ctx, "kwallet-query", []string{"--read-password", service, "--folder", folder, wallet})
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(stdout)
	if strings.HasPrefix(strings.ToLower(out), "failed to read") {
		return "", fmt.Errorf("kwallet-query failed")
	}
	return out, nil
}

func linuxKWalletServiceNameAndPath() (serviceName string, walletPath string) {
	switch strings.TrimSpace(os.Getenv("KDE_SESSION_VERSION")) {
	case "6":
		return "org.kde.kwalletd6", "/modules/kwalletd6"
	case "5":
		return "org.kde.kwalletd5", "/modules/kwalletd5"
	default:
		return "org.kde.kwalletd", "/modules/kwalletd"
	}
}
