// Package files handles local file metadata for transfers: validation,
// MIME detection and collision-free output paths.
package files

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

const fallbackMime = "application/octet-stream"

// FileInfo describes one file selected for sending.
type FileInfo struct {
	Path string
	Name string
	Size int64
	Mime string
}

// Stat validates a path and fills in the metadata announced to receivers.
func Stat(path string) (*FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	return &FileInfo{
		Path: path,
		Name: filepath.Base(path),
		Size: info.Size(),
		Mime: DetectMime(path),
	}, nil
}

// DetectMime guesses a MIME type from the extension; unknown extensions
// fall back to octet-stream.
func DetectMime(path string) string {
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		return fallbackMime
	}
	// Strip parameters like "; charset=utf-8" so the announced type stays
	// a bare essence string.
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}

// SanitizeName strips any path components from a remote-supplied file name
// so it cannot escape the output directory.
func SanitizeName(name string) string {
	candidate := filepath.Base(filepath.Clean(name))
	candidate = strings.TrimSpace(candidate)
	if candidate == "" || candidate == "." || candidate == ".." || candidate == string(filepath.Separator) {
		return "file"
	}
	return candidate
}

// UniquePath returns a path in dir for name that doesn't collide with an
// existing file, appending (1), (2), ... before the extension if needed.
func UniquePath(dir, name string) string {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]
	for counter := 1; ; counter++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, counter, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// FormatSize formats bytes to a human readable string.
func FormatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
