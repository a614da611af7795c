package platform

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// Filename limits. Most filesystems cap names at 255 bytes; staying well
// below leaves room for format suffixes the fetcher appends.
const (
	MaxFilenameLength = 200
)

// FFmpegCommand is the post-processing binary resolved on PATH.
const FFmpegCommand = "ffmpeg"

// Characters replaced during sanitation. Covers Windows-reserved
// characters plus path separators.
var unsafeFilenameChars = []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", "\x00"}

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// GetHomeDownloadsDir returns the standard Downloads directory for the user
func GetHomeDownloadsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, "Downloads"), nil
}

// SanitizeFilename strips path separators and characters that are not
// portable across filesystems, collapses whitespace, and truncates to a
// safe length. Returns "download" when nothing usable remains.
func SanitizeFilename(name string) string {
	for _, c := range unsafeFilenameChars {
		name = strings.ReplaceAll(name, c, "_")
	}
	name = strings.Join(strings.Fields(name), " ")
	name = strings.Trim(name, ". ")

	if len(name) > MaxFilenameLength {
		name = strings.TrimRight(name[:MaxFilenameLength], ". ")
	}
	if name == "" {
		return "download"
	}
	return name
}

// TemplateDir extracts the directory component implied by a filename
// template, e.g. "%(uploader)s/%(title)s.%(ext)s" implies a per-uploader
// subdirectory. Templated directory components cannot be pre-created and
// yield "".
func TemplateDir(template string) string {
	dir := filepath.Dir(filepath.ToSlash(template))
	if dir == "." || dir == "/" || strings.Contains(dir, "%(") {
		return ""
	}
	return dir
}

// LookupFFmpeg resolves the ffmpeg binary on PATH.
func LookupFFmpeg() (string, error) {
	path, err := exec.LookPath(FFmpegCommand)
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found on PATH: %w", err)
	}
	return path, nil
}
