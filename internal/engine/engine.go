package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ytget/mediaq/internal/config"
	"github.com/ytget/mediaq/internal/model"
	"github.com/ytget/mediaq/internal/output"
	"github.com/ytget/mediaq/internal/platform"
	"github.com/ytget/mediaq/internal/progress"
	"github.com/ytget/mediaq/internal/queue"
)

// ErrMissingURL rejects requests without a source URL before they enter
// the state machine.
var ErrMissingURL = errors.New("request has no URL")

const (
	jobIDPrefix = "job-"

	// metadataTimeout bounds the asynchronous prefetch. The final
	// synchronous attempt at start time uses the job context instead.
	metadataTimeout = 60 * time.Second
)

// Fallback containers when the fetcher never announced one.
const (
	fallbackAudioExt  = "m4a"
	fallbackMergedExt = "mkv"
	fallbackVideoExt  = "mp4"
)

// reFormats matches the fetcher's ad-hoc announcement of the rendition
// combination it settled on.
var reFormats = regexp.MustCompile(`[Dd]ownloading \d+ format\(s\):\s+(\S+)`)

// FinishedFunc observes terminal job transitions (completed, error,
// cancelled). Used by the CLI to wait for drain and by tests.
type FinishedFunc func(entry queue.Entry)

// Deps bundles the external collaborators the engine runs against.
type Deps struct {
	Info       InfoProvider
	Args       ArgumentBuilder
	Runner     ProcessRunner
	Transcoder Transcoder
	History    HistoryStore
	Settings   SettingsSource
}

// jobHandle is the runtime-only association between an active job and
// its cancellation token. Never persisted.
type jobHandle struct {
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

// Engine executes jobs the queue promotes. One Engine instance serves
// one Queue; all per-job state is keyed by job id.
type Engine struct {
	queue *queue.Queue
	deps  Deps

	ensureDir func(string) error
	logger    zerolog.Logger

	mu       sync.Mutex
	prefetch map[string]chan *model.MediaInfo
	handles  map[string]*jobHandle

	onFinished []FinishedFunc
}

// New creates an engine bound to q and registers for its start signals.
func New(q *queue.Queue, deps Deps) *Engine {
	e := &Engine{
		queue:     q,
		deps:      deps,
		ensureDir: platform.CreateDirectoryIfNotExists,
		prefetch:  make(map[string]chan *model.MediaInfo),
		handles:   make(map[string]*jobHandle),
		logger:    log.With().Str("component", "engine").Logger(),
	}
	q.OnStart(e.handleStart)
	return e
}

// OnFinished registers a callback fired after a job reaches a terminal
// state and its process handle is torn down. Register before submitting.
func (e *Engine) OnFinished(fn FinishedFunc) {
	e.onFinished = append(e.onFinished, fn)
}

// Submit admits a new request with a fresh id. Returns the live record
// on success.
func (e *Engine) Submit(req model.JobRequest) (*model.JobRecord, error) {
	return e.SubmitWithID(newJobID(), req)
}

// SubmitWithID admits a request under a caller-chosen id; session
// restore uses it to preserve identities across restarts.
func (e *Engine) SubmitWithID(id string, req model.JobRequest) (*model.JobRecord, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, ErrMissingURL
	}
	if req.Kind == "" {
		req.Kind = model.MediaKindVideo
	}

	settings := e.deps.Settings.Current()
	dest := strings.TrimSpace(req.DestDir)
	if dest == "" {
		dest = settings.DownloadDir
	}
	if err := e.ensureDir(dest); err != nil {
		e.logger.Warn().Err(err).Str("dir", dest).Msg("cannot ensure download directory")
	}
	template := req.FilenameTemplate
	if template == "" {
		template = settings.FilenameTemplate
	}
	// The template may imply its own subdirectory, distinct from the
	// download directory.
	if sub := platform.TemplateDir(template); sub != "" {
		if err := e.ensureDir(filepath.Join(dest, sub)); err != nil {
			e.logger.Warn().Err(err).Str("dir", sub).Msg("cannot ensure template directory")
		}
	}

	rec := model.NewJobRecord(id, req)
	// Snapshot before Submit: once admitted, the record belongs to the
	// queue and the job may already be mutating it.
	initial := *rec
	if err := e.queue.Submit(req, rec); err != nil {
		return nil, err
	}

	if err := e.deps.History.Upsert(id, initial); err != nil {
		e.logger.Warn().Err(err).Str("job_id", id).Msg("history upsert failed")
	}

	e.startPrefetch(id, req.URL)
	return rec, nil
}

// Cancel terminates a job. Active jobs get their process killed and are
// finalized as cancelled by the exit handler; queued jobs are dropped
// directly. The history row is discarded either way: cancellation leaves
// no failure trail.
func (e *Engine) Cancel(id string) bool {
	entry, ok := e.queue.Get(id)
	if !ok {
		return false
	}

	e.mu.Lock()
	handle := e.handles[id]
	delete(e.prefetch, id)
	e.mu.Unlock()

	if handle != nil {
		handle.cancelled.Store(true)
		e.queue.UpdateRecord(id, func(r *model.JobRecord) {
			r.Status = model.JobStatusCancelling
		})
		handle.cancel()
	} else {
		e.queue.UpdateRecord(id, func(r *model.JobRecord) {
			r.Status = model.JobStatusCancelled
			r.FinishedAt = time.Now()
		})
	}

	e.queue.Remove(id)
	if err := e.deps.History.Remove(id); err != nil {
		e.logger.Warn().Err(err).Str("job_id", id).Msg("history remove failed")
	}

	// A queued job has no exit handler to emit the terminal signal.
	if handle == nil {
		e.notifyFinished(entry)
	}
	e.logger.Info().Str("job_id", id).Bool("was_active", handle != nil).Msg("job cancelled")
	return true
}

func (e *Engine) handleStart(entry queue.Entry) {
	go e.run(entry)
}

// run drives one job from start signal to terminal state.
func (e *Engine) run(entry queue.Entry) {
	id := entry.ID
	req := entry.Request
	logger := e.logger.With().Str("job_id", id).Logger()
	settings := e.deps.Settings.Current()

	ctx, cancel := context.WithCancel(context.Background())
	handle := &jobHandle{cancel: cancel}
	e.mu.Lock()
	e.handles[id] = handle
	e.mu.Unlock()
	defer func() {
		cancel()
		e.mu.Lock()
		delete(e.handles, id)
		delete(e.prefetch, id)
		e.mu.Unlock()
	}()

	// Cancel may have raced ahead of handle registration and dropped the
	// entry already; nothing to run then. The finished signal is emitted
	// here only when Cancel saw this handle and left it to us, otherwise
	// Cancel already emitted it on the queued-job path.
	if _, ok := e.queue.Get(id); !ok {
		logger.Debug().Msg("job gone before start")
		if handle.cancelled.Load() {
			e.finalizeCancelled(entry, logger)
		}
		return
	}

	info := e.awaitMetadata(ctx, id, req.URL, logger)
	selector := effectiveSelector(req, settings)

	var rendition model.Rendition
	if info != nil {
		rendition = model.ChooseRendition(info.Renditions, selector, req.Kind)
	}

	// Late-bound destination: group by uploader when the request left it
	// open. Must precede argument building.
	dest := strings.TrimSpace(req.DestDir)
	if dest == "" {
		dest = settings.DownloadDir
		if info != nil && info.Uploader != "" {
			dest = filepath.Join(dest, platform.SanitizeFilename(info.Uploader))
		}
	}
	if err := e.ensureDir(dest); err != nil {
		logger.Warn().Err(err).Str("dir", dest).Msg("cannot ensure destination directory")
	}

	e.queue.UpdateRecord(id, func(r *model.JobRecord) {
		applyMetadata(r, info)
		r.Status = model.JobStatusDownloading
		r.StartedAt = time.Now()
		if rendition.ID != "" {
			r.Rendition = rendition.ID
		}
	})
	e.reconcile(id, logger)

	// Hard prerequisite: without the transcoder the fetcher cannot merge
	// streams, so fail before spawning anything.
	ffmpegPath, err := e.deps.Transcoder.Locate()
	if err != nil {
		e.finalize(entry, handle, fmt.Errorf("transcoder unavailable: %w", err), logger)
		return
	}

	argv := e.deps.Args.BuildArgs(req, dest, settings, nil)
	argv = append(argv, "--ffmpeg-location", ffmpegPath, req.URL)
	e.queue.UpdateRecord(id, func(r *model.JobRecord) {
		r.Invocation = strings.Join(argv, " ")
	})

	parts := progress.EstimateParts(req)
	blender := progress.NewBlender(parts)
	collector := output.NewCollector()
	logBuf := newLogBuffer(e.queue, id)
	var maxBytes int64

	cb := ProcessCallbacks{
		OnLine: func(line string) {
			logBuf.Append(line)
			collector.Scan(line)
			if m := reFormats.FindStringSubmatch(line); len(m) > 1 {
				e.queue.UpdateRecord(id, func(r *model.JobRecord) {
					r.Rendition = m[1]
				})
			}
		},
		OnProgress: func(ev ProgressEvent) {
			blended := blender.Observe(ev.Percent)
			if ev.TotalBytes > maxBytes {
				maxBytes = ev.TotalBytes
			}
			if ev.DownloadedBytes > maxBytes {
				maxBytes = ev.DownloadedBytes
			}
			e.queue.UpdateRecord(id, func(r *model.JobRecord) {
				r.Percent = blended
				r.Speed = ev.Speed
				r.ETA = ev.ETA
				r.DownloadedBytes = ev.DownloadedBytes
				r.TotalBytes = ev.TotalBytes
			})
		},
	}

	proc, err := e.deps.Runner.Start(ctx, argv, cb)
	if err != nil {
		logBuf.Close()
		e.finalize(entry, handle, fmt.Errorf("spawn fetcher: %w", err), logger)
		return
	}

	waitErr := proc.Wait()
	logBuf.Close()

	if handle.cancelled.Load() || waitErr != nil {
		e.finalize(entry, handle, waitErr, logger)
		return
	}

	// Exit 0: recover the artifact. Cancel may still land between the
	// cancelled check above and here; a missing entry means it did.
	current, ok := e.queue.Get(id)
	if !ok {
		e.finalizeCancelled(entry, logger)
		return
	}
	title := current.Record.Title
	titleKey := platform.SanitizeFilename(title)
	ext := resolveExt(req, rendition, parts)
	fallback := filepath.Join(dest, titleKey+"."+ext)
	res := output.Resolve(collector.Candidates(), collector.LastKnown(), fallback, dest, titleKey, ext, maxBytes)

	if settings.WatermarkEnabled && req.Kind == model.MediaKindVideo && !res.Estimated {
		e.queue.UpdateRecord(id, func(r *model.JobRecord) {
			r.Status = model.JobStatusProcessing
		})
		e.reconcile(id, logger)

		tr, err := e.deps.Transcoder.Transform(ctx, res.Path, TransformOptions{WatermarkText: settings.WatermarkText})
		if err != nil || tr == nil {
			// The fetched file is intact; keep it.
			logger.Warn().Err(err).Str("path", res.Path).Msg("watermark transform failed, keeping original")
		} else {
			res.Path = tr.OutputPath
			res.Size = tr.FileSize
		}
	}

	if res.Estimated {
		logger.Warn().Str("job_id", id).Int64("estimated_size", res.Size).Msg("completed without locating output file")
	}
	e.queue.UpdateRecord(id, func(r *model.JobRecord) {
		r.Status = model.JobStatusCompleted
		r.Percent = 100
		r.Filename = res.Path
		r.FileSize = res.Size
		r.FinishedAt = time.Now()
	})
	e.reconcile(id, logger)

	finished, ok := e.queue.Get(id)
	if !ok {
		e.finalizeCancelled(entry, logger)
		return
	}
	e.queue.Completed(id)
	e.notifyFinished(finished)
	logger.Info().Str("path", res.Path).Int64("size", res.Size).Msg("job completed")
}

// finalize handles the error and cancellation exits. A cancelled job is
// never recorded as an error: Cancel already removed the queue entry and
// the history row, so only the record status is settled here.
func (e *Engine) finalize(entry queue.Entry, handle *jobHandle, cause error, logger zerolog.Logger) {
	id := entry.ID

	if handle.cancelled.Load() {
		e.finalizeCancelled(entry, logger)
		return
	}

	msg := "fetcher failed"
	if cause != nil {
		msg = cause.Error()
	}
	e.queue.UpdateRecord(id, func(r *model.JobRecord) {
		r.Status = model.JobStatusError
		r.LastError = msg
		r.FinishedAt = time.Now()
	})
	e.reconcile(id, logger)

	finished, ok := e.queue.Get(id)
	if !ok {
		// Cancel raced in after the cancelled check and already dropped
		// the entry and its history row.
		e.finalizeCancelled(entry, logger)
		return
	}
	e.queue.Completed(id)
	e.notifyFinished(finished)
	logger.Error().Err(cause).Msg("job failed")
}

// finalizeCancelled settles a cancelled job from the entry snapshot taken
// at start: by now Cancel has removed the queue entry, so the snapshot is
// the only record left to mark and announce.
func (e *Engine) finalizeCancelled(entry queue.Entry, logger zerolog.Logger) {
	entry.Record.Status = model.JobStatusCancelled
	entry.Record.FinishedAt = time.Now()
	e.notifyFinished(entry)
	logger.Debug().Msg("cancelled job torn down")
}

// reconcile mirrors the current record into the history store.
func (e *Engine) reconcile(id string, logger zerolog.Logger) {
	entry, ok := e.queue.Get(id)
	if !ok {
		return
	}
	if err := e.deps.History.Upsert(id, *entry.Record); err != nil {
		logger.Warn().Err(err).Msg("history upsert failed")
	}
}

// startPrefetch kicks off the best-effort metadata fetch that runs while
// the job sits in the queue.
func (e *Engine) startPrefetch(id, url string) {
	ch := make(chan *model.MediaInfo, 1)
	e.mu.Lock()
	e.prefetch[id] = ch
	e.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), metadataTimeout)
		defer cancel()

		info, err := e.deps.Info.GetMetadata(ctx, url)
		if err != nil {
			e.logger.Warn().Err(err).Str("job_id", id).Msg("metadata prefetch failed")
			ch <- nil
			return
		}
		ch <- info
	}()
}

// awaitMetadata consumes the prefetch result, waiting for it if still in
// flight, and falls back to one synchronous attempt. Returns nil when
// metadata is unavailable; jobs proceed with placeholder display fields.
func (e *Engine) awaitMetadata(ctx context.Context, id, url string, logger zerolog.Logger) *model.MediaInfo {
	e.mu.Lock()
	ch := e.prefetch[id]
	e.mu.Unlock()

	if ch != nil {
		select {
		case info := <-ch:
			if info != nil {
				return info
			}
		case <-ctx.Done():
			return nil
		}
	}

	info, err := e.deps.Info.GetMetadata(ctx, url)
	if err != nil {
		logger.Warn().Err(err).Msg("metadata fetch failed, keeping placeholder fields")
		return nil
	}
	return info
}

func applyMetadata(r *model.JobRecord, info *model.MediaInfo) {
	if info == nil {
		return
	}
	if info.Title != "" {
		r.Title = info.Title
	}
	r.Thumbnail = info.Thumbnail
	r.Duration = info.Duration
	r.Uploader = info.Uploader
	r.Description = info.Description
	r.ViewCount = info.ViewCount
}

func effectiveSelector(req model.JobRequest, settings config.Settings) string {
	if s := strings.TrimSpace(req.Format); s != "" {
		return s
	}
	if req.Kind == model.MediaKindAudio {
		return config.SelectorForPreset(config.QualityAudio)
	}
	return config.SelectorForPreset(settings.QualityPreset)
}

// resolveExt picks the expected container for the fallback filename.
func resolveExt(req model.JobRequest, rendition model.Rendition, parts int) string {
	if req.Kind == model.MediaKindAudio {
		if rendition.Ext != "" {
			return rendition.Ext
		}
		return fallbackAudioExt
	}
	if parts > 1 {
		return fallbackMergedExt
	}
	if rendition.Ext != "" {
		return rendition.Ext
	}
	return fallbackVideoExt
}

func (e *Engine) notifyFinished(entry queue.Entry) {
	for _, fn := range e.onFinished {
		fn(entry)
	}
}

// newJobID generates a unique job id using UUID v7 for time ordering,
// falling back to a timestamp if UUID generation fails.
func newJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(jobIDPrefix+"%d", time.Now().UnixNano())
	}
	return jobIDPrefix + id.String()
}
