package output

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// BrandingMarker appears in filenames produced by the watermark
// post-process; its presence makes a scanned file a likely artifact.
const BrandingMarker = "mediaq"

// Temporary artifacts the fetcher leaves next to real output.
var skippedExtensions = []string{".part", ".ytdl", ".tmp"}

// Resolution is the outcome of output resolution. When Estimated is
// true no file was found on disk and Size carries the transferred byte
// count observed from progress events.
type Resolution struct {
	Path      string
	Size      int64
	Estimated bool
}

// Resolve determines the final artifact for a successfully exited job.
//
// Probe order, first hit wins:
//  1. log-derived candidates, most recently observed first
//  2. the fetcher's last announced path
//  3. fallbackPath ({sanitized title}.{ext} in the target directory)
//  4. a scored scan of dir (see scoreFile)
//  5. the transferred byte estimate, flagged Estimated (warned, non-fatal)
func Resolve(candidates []string, lastKnown, fallbackPath, dir, titleKey, ext string, transferredBytes int64) Resolution {
	probes := make([]string, 0, len(candidates)+2)
	for i := len(candidates) - 1; i >= 0; i-- {
		probes = append(probes, candidates[i])
	}
	if lastKnown != "" {
		probes = append(probes, lastKnown)
	}
	if fallbackPath != "" {
		probes = append(probes, fallbackPath)
	}

	seen := make(map[string]struct{}, len(probes))
	for _, path := range probes {
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return Resolution{Path: path, Size: info.Size()}
		}
	}

	if path, size, ok := scanDirectory(dir, titleKey, ext); ok {
		return Resolution{Path: path, Size: size}
	}

	log.Warn().Str("dir", dir).Str("title_key", titleKey).
		Msg("output file not found, falling back to transferred byte estimate")
	return Resolution{Size: transferredBytes, Estimated: true}
}

// scanDirectory scores every regular file in dir and returns the most
// recently modified member of the best-scoring group.
func scanDirectory(dir, titleKey, ext string) (string, int64, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0, false
	}

	bestScore := 0
	var bestPath string
	var bestSize int64
	var bestModTime int64

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if isSkipped(name) {
			continue
		}
		score := scoreFile(name, titleKey, ext)
		if score == 0 {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		mod := info.ModTime().UnixNano()
		if score > bestScore || (score == bestScore && mod > bestModTime) {
			bestScore = score
			bestPath = filepath.Join(dir, name)
			bestSize = info.Size()
			bestModTime = mod
		}
	}

	return bestPath, bestSize, bestPath != ""
}

// scoreFile ranks how likely name is the finished artifact:
// title match with the right extension beats a bare title match, which
// beats a branded file with the right extension, which beats any file
// with the right extension.
func scoreFile(name, titleKey, ext string) int {
	lower := strings.ToLower(name)
	extMatch := ext != "" && strings.HasSuffix(lower, "."+strings.ToLower(ext))
	titleMatch := titleMatches(lower, titleKey)
	branded := strings.Contains(lower, BrandingMarker)

	switch {
	case titleMatch && extMatch:
		return 4
	case titleMatch:
		return 3
	case branded && extMatch:
		return 2
	case extMatch:
		return 1
	default:
		return 0
	}
}

// titleMatches checks the normalized title as a substring of the
// filename or vice versa, so truncated and decorated names still match.
func titleMatches(lowerName, titleKey string) bool {
	key := strings.ToLower(strings.TrimSpace(titleKey))
	if key == "" {
		return false
	}
	base := lowerName
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return strings.Contains(base, key) || strings.Contains(key, base)
}

func isSkipped(name string) bool {
	for _, ext := range skippedExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
