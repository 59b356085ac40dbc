//go:build !darwin && !linux && !windows

package crumbs

func chromiumUserDataDirs(Browser) []string { return nil }
