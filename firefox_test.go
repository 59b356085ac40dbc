package crumbs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeProfilesINI(t *testing.T, root, content string) {
	t.Helper()
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "profiles.ini"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFirefoxProfileFromINI_FirstDefaultWins(t *testing.T) {
	root := t.TempDir()
	writeProfilesINI(t, root, `[General]
StartWithLastProfile=1

[Profile0]
Name=scratch
IsRelative=1
Path=Profiles/aaaa.scratch

[Profile1]
Name=work
IsRelative=1
Path=Profiles/zzzz.work
Default=1

[Profile2]
Name=also-default
IsRelative=1
Path=Profiles/bbbb.other
Default=1
`)

	got, ok := firefoxProfileFromINI(root)
	if !ok {
		t.Fatal("expected a default profile")
	}
	want := filepath.Join(root, "Profiles", "zzzz.work")
	if got != want {
		t.Fatalf("want %q got %q", want, got)
	}
}

func TestFirefoxProfileFromINI_AbsolutePath(t *testing.T) {
	root := t.TempDir()
	abs := t.TempDir()
	writeProfilesINI(t, root, "[Profile0]\nName=abs\nIsRelative=0\nPath="+filepath.ToSlash(abs)+"\nDefault=1\n")

	got, ok := firefoxProfileFromINI(root)
	if !ok {
		t.Fatal("expected a default profile")
	}
	if got != abs {
		t.Fatalf("want %q got %q", abs, got)
	}
}

func TestFirefoxDefaultProfileDir_DirNameFallback(t *testing.T) {
	root := t.TempDir()
	// No Default=1 anywhere; discovery falls back to the directory scan.
	writeProfilesINI(t, root, "[Profile0]\nName=scratch\nIsRelative=1\nPath=Profiles/aaaa.scratch\n")

	profileDir := filepath.Join(root, "Profiles", "abcd.default-release")
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(profileDir, "cookies.sqlite"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got, ok := firefoxDefaultProfileDir(root)
	if !ok {
		t.Fatal("expected fallback to find the default-named profile")
	}
	if got != profileDir {
		t.Fatalf("want %q got %q", profileDir, got)
	}
}

func newTestFirefoxRoot(t *testing.T) (root, dbPath string) {
	t.Helper()
	root = t.TempDir()
	writeProfilesINI(t, root, "[Profile0]\nName=default\nIsRelative=1\nPath=Profiles/abcd.default-release\nDefault=1\n")
	return root, filepath.Join(root, "Profiles", "abcd.default-release", "cookies.sqlite")
}

func TestFirefoxReader_ListCookies(t *testing.T) {
	root, dbPath := newTestFirefoxRoot(t)
	db := createFirefoxStore(t, dbPath)

	future := time.Now().Add(24 * time.Hour).Truncate(time.Second).UTC()
	insertFirefoxCookie(t, db, ".example.com", "sid", "firefox-value", future.Unix(), 1, 1, 2)
	insertFirefoxCookie(t, db, "app.example.com", "sub", "v2", 0, 0, 0, 0)
	insertFirefoxCookie(t, db, "other.com", "other", "x", 0, 0, 0, 0)

	r, err := NewReader(BrowserFirefox, WithProfilesDir(root))
	if err != nil {
		t.Fatal(err)
	}
	if !r.IsInstalled() {
		t.Fatal("reader with resolvable profile should report installed")
	}

	cookies, err := r.ListCookies(context.Background(), "example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(cookies) != 2 {
		t.Fatalf("want 2 cookies got %d: %+v", len(cookies), cookies)
	}

	byName := map[string]Cookie{}
	for _, c := range cookies {
		byName[c.Name] = c
	}

	sid := byName["sid"]
	if sid.Value != "firefox-value" {
		t.Fatalf("want %q got %q", "firefox-value", sid.Value)
	}
	if sid.Domain != ".example.com" {
		t.Fatalf("domain should be kept as stored, got %q", sid.Domain)
	}
	if !sid.Secure || !sid.HTTPOnly || sid.SameSite != SameSiteStrict {
		t.Fatalf("sid attributes wrong: %+v", sid)
	}
	if sid.Expires == nil || !sid.Expires.Equal(future) {
		t.Fatalf("want expiry %v got %v", future, sid.Expires)
	}
	if sid.Source.Browser != BrowserFirefox || sid.Source.Profile != "abcd.default-release" {
		t.Fatalf("unexpected source: %+v", sid.Source)
	}

	if byName["sub"].Expires != nil {
		t.Fatal("expiry=0 should mean session cookie")
	}
}

func TestFirefoxReader_ExplicitStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cookies.sqlite")
	db := createFirefoxStore(t, dbPath)
	insertFirefoxCookie(t, db, "example.com", "sid", "v", 0, 0, 0, 0)

	r, err := NewReader(BrowserFirefox, WithStorePath(dbPath))
	if err != nil {
		t.Fatal(err)
	}

	c, found, err := r.GetCookie(context.Background(), "example.com", "sid")
	if err != nil || !found {
		t.Fatalf("want found, got found=%v err=%v", found, err)
	}
	if c.Value != "v" || c.Source.StorePath != dbPath {
		t.Fatalf("unexpected cookie: %+v", c)
	}

	if _, found, err := r.GetCookie(context.Background(), "example.com", "missing"); err != nil || found {
		t.Fatalf("want absent, got found=%v err=%v", found, err)
	}
}

func TestFirefoxReader_NotInstalled(t *testing.T) {
	r, err := NewReader(BrowserFirefox, WithProfilesDir(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	if r.IsInstalled() {
		t.Fatal("empty profiles root should report not installed")
	}
	cookies, err := r.ListCookies(context.Background(), "example.com")
	if err != nil {
		t.Fatal(err)
	}
	if cookies != nil {
		t.Fatalf("want no cookies got %+v", cookies)
	}
}
