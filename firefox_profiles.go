package crumbs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ini/ini"
)

// firefoxDefaultProfileDir resolves the active profile under one profiles
// root. profiles.ini is the authority: the first [Profile*] section carrying
// Default=1 names the active profile, with Path taken relative to the root
// when IsRelative=1. When no section is marked default (or the file is
// missing), fall back to the first profile directory whose name contains
// "default", the convention Firefox uses for the initial profile.
func firefoxDefaultProfileDir(root string) (string, bool) {
	if dir, ok := firefoxProfileFromINI(root); ok {
		return dir, true
	}
	return firefoxProfileByDirName(root)
}

func firefoxProfileFromINI(root string) (string, bool) {
	cfg, err := ini.Load(filepath.Join(root, "profiles.ini"))
	if err != nil {
		return "", false
	}

	for _, secName := range cfg.SectionStrings() {
		if !strings.HasPrefix(secName, "Profile") {
			continue
		}
		sec := cfg.Section(secName)
		if sec.Key("Default").String() != "1" {
			continue
		}
		pathStr := filepath.FromSlash(sec.Key("Path").String())
		if pathStr == "" {
			continue
		}
		if sec.Key("IsRelative").String() == "1" {
			pathStr = filepath.Join(root, pathStr)
		}
		return pathStr, true
	}
	return "", false
}

// firefoxProfileByDirName scans the root and its Profiles subdirectory, the
// two layouts Firefox has shipped, for a directory named like a default
// profile that actually holds a cookie store.
func firefoxProfileByDirName(root string) (string, bool) {
	for _, dir := range []string{root, filepath.Join(root, "Profiles")} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() || !strings.Contains(strings.ToLower(e.Name()), "default") {
				continue
			}
			profileDir := filepath.Join(dir, e.Name())
			if fileExists(filepath.Join(profileDir, "cookies.sqlite")) {
				return profileDir, true
			}
		}
	}
	return "", false
}
