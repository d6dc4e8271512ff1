// Package naming derives deterministic storage keys from uploaded file names.
package naming

import (
	"path/filepath"
	"regexp"
	"strings"
)

// CleanedPrefix marks the normalized copy of an upload
const CleanedPrefix = "cleaned_"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// CleanFileName returns the key of the cleaned copy of an uploaded file:
// "cleaned_" plus the sanitized base name, always with a .csv extension.
// The same name always yields the same key.
func CleanFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "upload"
	}
	return CleanedPrefix + base + ".csv"
}

// ValidKey reports whether key can be used as a flat object name
func ValidKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}
	return !strings.ContainsAny(key, "/\\") && !strings.Contains(key, "..")
}
