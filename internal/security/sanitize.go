package security

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	multiUnderscore     = regexp.MustCompile(`_+`)
)

// SanitizeFilename returns a filesystem-safe filename fragment.
func SanitizeFilename(name, fallback string) string {
	cleaned := unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(name), "_")
	cleaned = multiUnderscore.ReplaceAllString(cleaned, "_")
	cleaned = strings.Trim(cleaned, "._- ")
	if cleaned == "" {
		cleaned = fallback
	}
	if len(cleaned) > 255 {
		cleaned = cleaned[:255]
	}
	return cleaned
}

// SanitizeJobID keeps alphanumerics, '-' and '_' only. Used for on-disk
// per-job directories.
func SanitizeJobID(jobID string) string {
	var b strings.Builder
	for _, ch := range jobID {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '-', ch == '_':
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// ResolveWithin resolves rawPath and ensures it stays inside baseDir.
func ResolveWithin(rawPath, baseDir string) (string, error) {
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", err
	}
	candidate, err := filepath.Abs(rawPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(base, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected; %q must stay inside %q", rawPath, baseDir)
	}
	return candidate, nil
}
