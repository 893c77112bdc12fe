package util

import (
	"errors"
	"strings"
	"unicode"
)

const maxFileNameLen = 255

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName keeps the last element of an uploaded file name. Traversal
// sequences, control characters and over-long names are rejected.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxFileNameLen {
		return "", ErrInvalidFileName
	}
	if strings.IndexFunc(s, unicode.IsControl) >= 0 {
		return "", ErrInvalidFileName
	}
	return s, nil
}
