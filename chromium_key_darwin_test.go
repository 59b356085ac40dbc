//go:build darwin && !ios

package crumbs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// stubSecurityTool puts a fake `security` binary on PATH so keychain tests
// never touch the real login keychain.
func stubSecurityTool(t *testing.T, script string) {
	t.Helper()
	binDir := t.TempDir()
	path := filepath.Join(binDir, "security")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", binDir+":"+os.Getenv("PATH"))
}

func TestMacOSKeychainPassword(t *testing.T) {
	stubSecurityTool(t, "#!/bin/sh\necho test-pw\n")

	got, err := macosKeychainPassword(context.Background(), defaultSecretTimeout, "Chrome Safe Storage", "Chrome")
	if err != nil {
		t.Fatal(err)
	}
	if got != "test-pw" {
		t.Fatalf("want %q got %q", "test-pw", got)
	}
}

func TestDarwinPlatformDecryptor(t *testing.T) {
	stubSecurityTool(t, "#!/bin/sh\necho test-pw\n")

	r, err := NewReader(BrowserChrome)
	if err != nil {
		t.Fatal(err)
	}
	decrypt, err := r.(*ChromiumReader).platformDecryptor(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	key := chromiumDeriveCBCKey("test-pw", chromiumCBCIterationsMacOS)
	enc := encryptAESCBCForTest(t, "v10", key, []byte("hello"))
	got, ok := decrypt(enc, 0)
	if !ok || string(got) != "hello" {
		t.Fatalf("decrypt = (%q, %v)", got, ok)
	}

	// Values without a version prefix predate encryption and pass through.
	got, ok = decrypt([]byte("legacy-plaintext"), 0)
	if !ok || string(got) != "legacy-plaintext" {
		t.Fatalf("legacy passthrough = (%q, %v)", got, ok)
	}
}

func TestDarwinPlatformDecryptor_EmptyPasswordFails(t *testing.T) {
	stubSecurityTool(t, "#!/bin/sh\necho\n")

	r, err := NewReader(BrowserChrome)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.(*ChromiumReader).platformDecryptor(context.Background()); err == nil {
		t.Fatal("empty keychain password must fail key derivation")
	}
}
