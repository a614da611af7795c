package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ytget/mediaq/internal/platform"
)

// Quality presets for downloads
type QualityPreset string

const (
	QualityBest   QualityPreset = "best"
	QualityMedium QualityPreset = "medium"
	QualityAudio  QualityPreset = "audio"
)

// Default values
const (
	DefaultMaxParallel      = 2
	DefaultQualityPreset    = QualityMedium
	DefaultFilenameTemplate = "%(title)s.%(ext)s"

	MinParallel = 1
	MaxParallel = 10
)

// Settings holds user preferences consumed by the engine and queue.
type Settings struct {
	DownloadDir        string        `json:"download_directory"`
	MaxParallel        int           `json:"max_parallel_downloads"`
	QualityPreset      QualityPreset `json:"quality_preset"`
	FilenameTemplate   string        `json:"filename_template"`
	Proxy              string        `json:"proxy,omitempty"`
	CookiesFile        string        `json:"cookies_file,omitempty"`
	CookiesFromBrowser string        `json:"cookies_from_browser,omitempty"`
	WatermarkEnabled   bool          `json:"watermark_enabled"`
	WatermarkText      string        `json:"watermark_text,omitempty"`
}

// SelectorForPreset maps a quality preset to a rendition selector
// expression understood by the fetcher.
func SelectorForPreset(preset QualityPreset) string {
	switch preset {
	case QualityBest:
		return "bestvideo+bestaudio/best"
	case QualityAudio:
		return "bestaudio/best"
	default:
		return "bestvideo[height<=720]+bestaudio/best[height<=720]"
	}
}

// DefaultSettings returns the baseline configuration.
func DefaultSettings() Settings {
	return Settings{
		DownloadDir:      defaultDownloadDir(),
		MaxParallel:      DefaultMaxParallel,
		QualityPreset:    DefaultQualityPreset,
		FilenameTemplate: DefaultFilenameTemplate,
	}
}

func defaultDownloadDir() string {
	dir, err := platform.GetHomeDownloadsDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "downloads")
	}
	return dir
}

// Store persists settings in a single JSON file on disk and hands out
// normalized copies.
type Store struct {
	mu       sync.RWMutex
	path     string
	settings Settings
}

// NewStore creates a store bound to path and loads it. A missing file
// yields defaults; a malformed one is an error.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	loaded, err := load(path)
	if err != nil {
		return nil, err
	}
	s.settings = normalize(loaded)
	return s, nil
}

// Current returns a copy of the settings.
func (s *Store) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update normalizes and persists new settings.
func (s *Store) Update(settings Settings) error {
	settings = normalize(settings)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	s.settings = settings
	return nil
}

func load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	return settings, nil
}

// normalize applies defaults and clamps out-of-range values.
func normalize(s Settings) Settings {
	if s.DownloadDir == "" {
		s.DownloadDir = defaultDownloadDir()
	}
	if s.MaxParallel < MinParallel {
		s.MaxParallel = DefaultMaxParallel
	}
	if s.MaxParallel > MaxParallel {
		s.MaxParallel = MaxParallel
	}
	if s.QualityPreset == "" {
		s.QualityPreset = DefaultQualityPreset
	}
	if s.FilenameTemplate == "" {
		s.FilenameTemplate = DefaultFilenameTemplate
	}
	return s
}
