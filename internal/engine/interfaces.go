package engine

import (
	"context"

	"github.com/ytget/mediaq/internal/config"
	"github.com/ytget/mediaq/internal/model"
)

// InfoProvider resolves media metadata and candidate renditions for a URL.
type InfoProvider interface {
	GetMetadata(ctx context.Context, url string) (*model.MediaInfo, error)
}

// ArgumentBuilder assembles the fetcher's argument list. The engine
// consumes the result opaquely; it only appends the transcoder location
// flag and the URL as the final positional argument.
type ArgumentBuilder interface {
	BuildArgs(req model.JobRequest, destDir string, settings config.Settings, runtimeArgs []string) []string
}

// ProgressEvent is one structured progress report from the fetcher.
type ProgressEvent struct {
	Percent         float64
	Speed           string
	ETA             string
	DownloadedBytes int64
	TotalBytes      int64
}

// ProcessCallbacks receive the fetcher's output while it runs. Within one
// process, calls are strictly ordered; the runner must not invoke them
// concurrently.
type ProcessCallbacks struct {
	// OnLine receives every CR/LF-normalized output line.
	OnLine func(line string)
	// OnProgress receives parsed progress reports.
	OnProgress func(ev ProgressEvent)
}

// ProcessHandle supervises one spawned fetcher process.
type ProcessHandle interface {
	// Wait blocks until the process exits. It returns nil on exit code 0,
	// otherwise an error describing the exit code or spawn failure.
	Wait() error
}

// ProcessRunner spawns the external fetcher. Cancelling ctx terminates
// the process.
type ProcessRunner interface {
	Start(ctx context.Context, args []string, cb ProcessCallbacks) (ProcessHandle, error)
}

// TransformOptions configure the post-processing transform.
type TransformOptions struct {
	WatermarkText string
}

// TransformResult describes the transformed artifact.
type TransformResult struct {
	OutputPath string
	FileSize   int64
}

// Transcoder is the optional post-processing collaborator. Locate is a
// hard prerequisite checked before every spawn; Transform failures are
// non-fatal to the parent job.
type Transcoder interface {
	Locate() (string, error)
	Transform(ctx context.Context, inputPath string, opts TransformOptions) (*TransformResult, error)
}

// HistoryStore is the durable record of finished and in-flight jobs.
// Upsert must be idempotent: repeated partial updates for one id merge
// without data loss.
type HistoryStore interface {
	Upsert(id string, rec model.JobRecord) error
	Remove(id string) error
	RemoveMany(ids []string) error
	GetByID(id string) (*model.JobRecord, bool, error)
}

// SettingsSource supplies user preferences. Read-only from the engine's
// perspective.
type SettingsSource interface {
	Current() config.Settings
}
