//go:build windows

package crumbs

import (
	"os"
	"path/filepath"
)

func chromiumUserDataDirs(b Browser) []string {
	local := os.Getenv("LOCALAPPDATA")
	if local == "" {
		return nil
	}

	//nolint:exhaustive // Firefox keeps its profiles under roaming AppData.
	switch b {
	case BrowserChrome:
		return []string{filepath.Join(local, "Google", "Chrome", "User Data")}
	case BrowserChromium:
		return []string{filepath.Join(local, "Chromium", "User Data")}
	case BrowserEdge:
		return []string{filepath.Join(local, "Microsoft", "Edge", "User Data")}
	case BrowserBrave:
		return []string{filepath.Join(local, "BraveSoftware", "Brave-Browser", "User Data")}
	default:
		return nil
	}
}
