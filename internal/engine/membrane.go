package engine

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrMembraneViolation is returned when a path would escape the
// workspace root. The matching DENY event is already appended to
// history by the time callers see this error.
var ErrMembraneViolation = errors.New("membrane violation")

// IsMembraneViolation reports whether err is a membrane violation.
// Uses errors.Is to handle wrapped errors.
func IsMembraneViolation(err error) bool {
	return errors.Is(err, ErrMembraneViolation)
}

// NormalizeRelPath validates a workspace-relative path and returns its
// normalized POSIX form. A path is rejected when, under either POSIX- or
// Windows-style parsing, it is absolute, carries a drive or root marker,
// or contains a parent-directory segment. Backslashes are normalized to
// forward slashes before validation, so the rule holds on any host.
func NormalizeRelPath(rel string) (string, error) {
	slashed := strings.ReplaceAll(rel, "\\", "/")
	if strings.HasPrefix(slashed, "/") || hasDrive(slashed) {
		return "", ErrMembraneViolation
	}
	clean := strings.Trim(slashed, "/")
	if clean == "" {
		return "", ErrMembraneViolation
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == ".." {
			return "", ErrMembraneViolation
		}
	}
	return clean, nil
}

// hasDrive reports a Windows drive marker ("C:" prefix).
func hasDrive(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// CleanRelDir normalizes a directory argument and strips a redundant
// leading workspace-directory segment, so callers may pass either
// "crystals" or "<workspace>/crystals" interchangeably.
func CleanRelDir(relDir, root string) string {
	clean := strings.Trim(strings.ReplaceAll(relDir, "\\", "/"), "/")
	base := strings.Trim(filepath.ToSlash(filepath.Base(root)), "/")
	if base == "" || base == "." {
		return clean
	}
	switch {
	case clean == base:
		return ""
	case strings.HasPrefix(clean, base+"/"):
		return strings.Trim(clean[len(base)+1:], "/")
	}
	return clean
}

// JoinRel joins already-normalized workspace-relative parts with "/",
// dropping empty segments.
func JoinRel(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Trim(part, "/\\")
		if part != "" {
			cleaned = append(cleaned, part)
		}
	}
	return strings.Join(cleaned, "/")
}
