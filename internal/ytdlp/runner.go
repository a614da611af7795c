package ytdlp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ytget/mediaq/internal/engine"
)

// Command is the fetcher binary name resolved through PATH.
const Command = "yt-dlp"

const (
	scannerInitialBuf = 64 * 1024
	scannerMaxBuf     = 1024 * 1024
)

// Runner spawns yt-dlp processes and streams their output through the
// engine's callbacks.
type Runner struct {
	command string
	logger  zerolog.Logger
}

// NewRunner creates a runner invoking the default yt-dlp binary.
func NewRunner() *Runner {
	return &Runner{
		command: Command,
		logger:  log.With().Str("component", "ytdlp").Logger(),
	}
}

// Start spawns yt-dlp with args. Both output streams feed cb line by
// line; stdout and stderr are serialized so callbacks never run
// concurrently. Cancelling ctx kills the process.
func (r *Runner) Start(ctx context.Context, args []string, cb engine.ProcessCallbacks) (engine.ProcessHandle, error) {
	cmd := exec.CommandContext(ctx, r.command, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", r.command, err)
	}
	r.logger.Debug().Int("pid", cmd.Process.Pid).Msg("fetcher started")

	h := &handle{cmd: cmd}
	h.wg.Add(2)
	go h.stream(stdout, cb)
	go h.stream(stderr, cb)
	return h, nil
}

type handle struct {
	cmd *exec.Cmd
	wg  sync.WaitGroup
	// cbMu serializes OnLine/OnProgress across the two stream readers.
	cbMu sync.Mutex
}

// stream reads one pipe to exhaustion, emitting each CR- or LF-delimited
// line. yt-dlp rewrites its progress line in place with bare carriage
// returns, so splitting on CR is what turns the live ticker into events.
func (h *handle) stream(r io.Reader, cb engine.ProcessCallbacks) {
	defer h.wg.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, scannerInitialBuf), scannerMaxBuf)
	scanner.Split(splitLines)

	for scanner.Scan() {
		line := scanner.Text()
		h.cbMu.Lock()
		if cb.OnLine != nil {
			cb.OnLine(line)
		}
		if cb.OnProgress != nil {
			if ev, ok := ParseProgressLine(line); ok {
				cb.OnProgress(ev)
			}
		}
		h.cbMu.Unlock()
	}
}

// Wait blocks until the process exits and both pipes are drained.
func (h *handle) Wait() error {
	h.wg.Wait()
	if err := h.cmd.Wait(); err != nil {
		return fmt.Errorf("%s: %w", Command, err)
	}
	return nil
}

// splitLines is a bufio.SplitFunc that treats both '\n' and '\r' as line
// terminators and swallows empty tokens from consecutive terminators.
func splitLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
