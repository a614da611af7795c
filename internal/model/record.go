package model

import (
	"fmt"
	"strings"
	"time"
)

// PlaylistLink ties a job to the playlist expansion it came from.
type PlaylistLink struct {
	GroupID string `json:"group_id"`
	Title   string `json:"title,omitempty"`
	Index   int    `json:"index"`
	Count   int    `json:"count"`
}

// JobRecord is the mutable, observable state of one submitted job.
// Display fields are populated lazily from metadata prefetch; everything
// else is written by the execution engine as the job advances.
type JobRecord struct {
	ID string `json:"id"`

	// Denormalized display fields
	Title       string `json:"title,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Uploader    string `json:"uploader,omitempty"`
	Description string `json:"description,omitempty"`
	ViewCount   int64  `json:"view_count,omitempty"`

	Status JobStatus `json:"status"`

	// Progress telemetry, all best-effort
	Percent         float64 `json:"percent"`
	Speed           string  `json:"speed,omitempty"`
	ETA             string  `json:"eta,omitempty"`
	DownloadedBytes int64   `json:"downloaded_bytes,omitempty"`
	TotalBytes      int64   `json:"total_bytes,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`

	Rendition  string `json:"rendition,omitempty"`  // rendition actually used
	Filename   string `json:"filename,omitempty"`   // resolved artifact path
	FileSize   int64  `json:"file_size,omitempty"`  // resolved artifact size in bytes
	LastError  string `json:"last_error,omitempty"`
	Invocation string `json:"invocation,omitempty"` // raw command line, for diagnostics
	Log        string `json:"log,omitempty"`        // accumulated process output

	Playlist *PlaylistLink `json:"playlist,omitempty"`
}

// Clone returns an independent copy of the record. Pointer fields are
// duplicated so the copy can outlive whatever lock guarded the original.
func (r *JobRecord) Clone() *JobRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.Playlist != nil {
		link := *r.Playlist
		out.Playlist = &link
	}
	return &out
}

// NewJobRecord creates a pending record for a freshly submitted request.
// Title starts out as the URL until metadata prefetch fills it in.
func NewJobRecord(id string, req JobRequest) *JobRecord {
	return &JobRecord{
		ID:        id,
		Title:     req.URL,
		Status:    JobStatusPending,
		CreatedAt: time.Now(),
	}
}

// DisplayTitle returns the title, filename, or id in order of preference.
func (r *JobRecord) DisplayTitle() string {
	if r.Title != "" && !strings.HasPrefix(r.Title, "http") {
		return r.Title
	}
	if r.Filename != "" {
		parts := strings.FieldsFunc(r.Filename, func(c rune) bool {
			return c == '/' || c == '\\'
		})
		if len(parts) > 0 {
			name := parts[len(parts)-1]
			if idx := strings.LastIndex(name, "."); idx > 0 {
				name = name[:idx]
			}
			return name
		}
	}
	if r.Title != "" {
		return r.Title
	}
	return r.ID
}

// ProgressLine renders a one-line human readable progress summary.
func (r *JobRecord) ProgressLine() string {
	line := fmt.Sprintf("%5.1f%%", r.Percent)
	if r.Speed != "" {
		line += " " + r.Speed
	}
	if r.ETA != "" {
		line += " ETA " + r.ETA
	}
	return line
}
