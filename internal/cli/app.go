package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ytget/mediaq/internal/compress"
	"github.com/ytget/mediaq/internal/config"
	"github.com/ytget/mediaq/internal/engine"
	"github.com/ytget/mediaq/internal/history"
	"github.com/ytget/mediaq/internal/model"
	"github.com/ytget/mediaq/internal/queue"
	"github.com/ytget/mediaq/internal/session"
	"github.com/ytget/mediaq/internal/ytdlp"
)

const (
	settingsFileName = "settings.json"
	historyFileName  = "history.json"
	sessionFileName  = "session.json"

	progressRenderInterval = 500 * time.Millisecond
)

// App wires the long-lived collaborators for one CLI invocation.
type App struct {
	Settings *config.Store
	History  *history.Store
	Queue    *queue.Queue
	Engine   *engine.Engine
	Session  *session.Snapshotter

	sessionPath string
	pending     sync.WaitGroup
}

// newApp assembles the application from the data directory. Wiring order
// matters: the snapshotter and the drain counter register their queue
// and engine callbacks before any job can be submitted.
func newApp(dataDir string, concurrency int) (*App, error) {
	if dataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		dataDir = filepath.Join(base, "mediaq")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	settings, err := config.NewStore(filepath.Join(dataDir, settingsFileName))
	if err != nil {
		return nil, err
	}
	hist, err := history.NewStore(filepath.Join(dataDir, historyFileName))
	if err != nil {
		return nil, err
	}

	limit := settings.Current().MaxParallel
	if concurrency > 0 {
		limit = concurrency
	}
	q := queue.New(limit)

	sessionPath := filepath.Join(dataDir, sessionFileName)
	snap := session.NewSnapshotter(sessionPath, q)

	app := &App{
		Settings:    settings,
		History:     hist,
		Queue:       q,
		Session:     snap,
		sessionPath: sessionPath,
	}

	eng := engine.New(q, engine.Deps{
		Info:       ytdlp.NewInfoClient(),
		Args:       ytdlp.NewArgBuilder(),
		Runner:     ytdlp.NewRunner(),
		Transcoder: compress.NewTranscoder(),
		History:    hist,
		Settings:   settings,
	})
	eng.OnFinished(func(entry queue.Entry) {
		reportFinished(entry)
		app.pending.Done()
	})
	app.Engine = eng
	return app, nil
}

// Submit admits one request and tracks it for Wait.
func (a *App) Submit(req model.JobRequest) (*model.JobRecord, error) {
	a.pending.Add(1)
	rec, err := a.Engine.Submit(req)
	if err != nil {
		a.pending.Done()
		return nil, err
	}
	return rec, nil
}

// SubmitWithID admits a restored request under its original id.
func (a *App) SubmitWithID(id string, req model.JobRequest) (*model.JobRecord, error) {
	a.pending.Add(1)
	rec, err := a.Engine.SubmitWithID(id, req)
	if err != nil {
		a.pending.Done()
		return nil, err
	}
	return rec, nil
}

// Wait blocks until every tracked job reaches a terminal state, drawing
// a live progress line meanwhile.
func (a *App) Wait() {
	done := make(chan struct{})
	go func() {
		a.pending.Wait()
		close(done)
	}()

	ticker := time.NewTicker(progressRenderInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			fmt.Print("\r\033[2K")
			return
		case <-ticker.C:
			fmt.Printf("\r\033[2K%s", renderActive(a.Queue))
		}
	}
}

// Close flushes the session snapshot. Call on every exit path.
func (a *App) Close() {
	if err := a.Session.Flush(); err != nil {
		log.Warn().Err(err).Msg("session flush failed")
	}
}

// SessionPath returns the session snapshot location.
func (a *App) SessionPath() string {
	return a.sessionPath
}

// renderActive draws one line summarizing active and queued jobs.
func renderActive(q *queue.Queue) string {
	active := q.Active()
	summary := q.Summarize()
	line := fmt.Sprintf("[%d active / %d queued]", summary.Active, summary.Queued)
	for _, e := range active {
		line += fmt.Sprintf("  %s %s", truncate(e.Record.DisplayTitle(), 30), e.Record.ProgressLine())
	}
	return line
}

// reportFinished prints one terminal line per finished job.
func reportFinished(entry queue.Entry) {
	rec := entry.Record
	switch rec.Status {
	case model.JobStatusCompleted:
		fmt.Printf("\r\033[2Kdone: %s -> %s (%d bytes)\n", truncate(rec.DisplayTitle(), 50), rec.Filename, rec.FileSize)
	case model.JobStatusCancelled:
		fmt.Printf("\r\033[2Kcancelled: %s\n", truncate(rec.DisplayTitle(), 50))
	default:
		fmt.Printf("\r\033[2Kfailed: %s: %s\n", truncate(rec.DisplayTitle(), 50), rec.LastError)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
