// Package media holds the identity of files flowing through the pipeline.
package media

import (
	"fmt"
	"path/filepath"
	"strings"
)

// supportedFormats is the fixed allow-list of audio/video containers.
// Files with any other extension are invisible to the pipeline.
var supportedFormats = map[string]bool{
	".mp4":  true,
	".m4v":  true,
	".mov":  true,
	".mkv":  true,
	".avi":  true,
	".webm": true,
	".flv":  true,
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".aac":  true,
	".flac": true,
	".ogg":  true,
}

// File is a discovered media file. Path is its identity.
type File struct {
	Path      string
	Name      string
	Extension string
}

// New builds a File from path, canonicalizing it to an absolute clean path
func New(path string) (File, error) {
	abs, err := Canonical(path)
	if err != nil {
		return File{}, err
	}
	return File{
		Path:      abs,
		Name:      filepath.Base(abs),
		Extension: strings.ToLower(filepath.Ext(abs)),
	}, nil
}

// Canonical returns the identity form of path
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", path, err)
	}
	return filepath.Clean(abs), nil
}

// IsSupported reports whether path has an allowed media extension
func IsSupported(path string) bool {
	return supportedFormats[strings.ToLower(filepath.Ext(path))]
}

// Extensions lists the allowed extensions, for logging
func Extensions() []string {
	exts := make([]string, 0, len(supportedFormats))
	for ext := range supportedFormats {
		exts = append(exts, ext)
	}
	return exts
}
