package model

import (
	"sort"
	"strings"
)

// MediaKind selects the kind of artifact a job produces
type MediaKind string

const (
	MediaKindVideo MediaKind = "video"
	MediaKindAudio MediaKind = "audio"
)

// Origin marks how a job entered the system
type Origin string

const (
	OriginManual Origin = "manual"
	OriginAuto   Origin = "auto"
)

// Signature delimiter. Stable; changing it would re-admit previously
// deduplicated submissions.
const signatureSeparator = "|"

// JobRequest is the immutable description of what to fetch and how.
// It is persisted verbatim in session snapshots so that unfinished jobs
// can be re-queued after a restart.
type JobRequest struct {
	URL              string    `json:"url"`
	Kind             MediaKind `json:"kind"`
	Format           string    `json:"format,omitempty"`             // primary rendition selector, e.g. "137+140/best"
	AudioFormat      string    `json:"audio_format,omitempty"`       // secondary audio selector
	AudioFormatIDs   []string  `json:"audio_format_ids,omitempty"`   // extra audio renditions to fetch
	StartTime        string    `json:"start_time,omitempty"`         // trim marker
	EndTime          string    `json:"end_time,omitempty"`           // trim marker
	DestDir          string    `json:"dest_dir,omitempty"`           // destination directory override
	FilenameTemplate string    `json:"filename_template,omitempty"`  // output template override
	Tags             []string  `json:"tags,omitempty"`
	Origin           Origin    `json:"origin,omitempty"`
	SubscriptionID   string    `json:"subscription_id,omitempty"`
}

// Signature produces the normalized fingerprint used to reject duplicate
// submissions. Two requests with equal signatures are the same logical job.
func (r JobRequest) Signature() string {
	ids := make([]string, 0, len(r.AudioFormatIDs))
	seen := make(map[string]struct{}, len(r.AudioFormatIDs))
	for _, id := range r.AudioFormatIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parts := []string{
		strings.TrimSpace(r.URL),
		string(r.Kind),
		strings.TrimSpace(r.Format),
		strings.TrimSpace(r.AudioFormat),
		strings.Join(ids, ","),
		strings.TrimSpace(r.StartTime),
		strings.TrimSpace(r.EndTime),
		strings.TrimSpace(r.DestDir),
		strings.TrimSpace(r.FilenameTemplate),
		string(r.Origin),
		r.SubscriptionID,
	}
	return strings.Join(parts, signatureSeparator)
}
