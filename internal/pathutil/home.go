// Package pathutil converts between ~-relative and absolute paths.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

var userHomeDir = os.UserHomeDir

// ExpandHome replaces a leading "~" or "~/" with the home directory.
// "~user" forms are not supported and pass through, as does every path
// when the home directory is unknown.
func ExpandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok || (rest != "" && rest[0] != '/') {
		return path
	}
	home, err := userHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

// ShortenHome is the inverse of ExpandHome for display.
func ShortenHome(path string) string {
	home, err := userHomeDir()
	if err != nil || home == "" || home == "/" {
		return path
	}
	if path == home {
		return "~"
	}
	if rest, ok := strings.CutPrefix(path, home+string(filepath.Separator)); ok {
		return "~/" + rest
	}
	return path
}
