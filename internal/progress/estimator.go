package progress

import (
	"strings"

	"github.com/ytget/mediaq/internal/model"
)

// Selector syntax markers understood by the estimator
const (
	fallbackSeparator = "/"
	combineOperator   = "+"
)

// DefaultParts is used when the selector cannot be parsed: most video
// requests end up as separate video and audio streams that get muxed.
const DefaultParts = 2

// EstimateParts estimates how many independent progress streams the
// fetcher will report for a request.
func EstimateParts(req model.JobRequest) int {
	if req.Kind == model.MediaKindAudio {
		return 1
	}
	if n := countAudioFormatIDs(req.AudioFormatIDs); n > 0 {
		return 1 + n
	}

	selector := strings.TrimSpace(req.Format)
	if selector == "" {
		return DefaultParts
	}

	// Only the first alternative matters; fallbacks after "/" describe
	// what happens when it is unavailable, not additional streams.
	if idx := strings.Index(selector, fallbackSeparator); idx >= 0 {
		selector = selector[:idx]
	}

	// A "none" or empty component means one of the combined streams is
	// absent, which collapses the whole combination to a single transfer.
	components := strings.Split(selector, combineOperator)
	for _, comp := range components {
		comp = strings.TrimSpace(comp)
		if comp == "" || strings.EqualFold(comp, model.CodecNone) {
			return 1
		}
	}
	if len(components) <= 1 {
		return 1
	}
	return len(components)
}

func countAudioFormatIDs(ids []string) int {
	n := 0
	for _, id := range ids {
		if strings.TrimSpace(id) != "" {
			n++
		}
	}
	return n
}
