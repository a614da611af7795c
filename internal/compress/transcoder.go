package compress

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ytget/mediaq/internal/engine"
	"github.com/ytget/mediaq/internal/platform"
)

// FFmpeg constants for the watermark transform
const (
	// Video codec settings
	VideoCodec  = "libx264"
	VideoPreset = "medium"
	VideoCRF    = "23"

	// Audio passes through untouched
	AudioCodec = "copy"

	// Container flags
	FastStartFlag = "+faststart"

	// Output suffix carries the branding marker the output resolver
	// recognizes
	BrandedSuffix = "-mediaq"

	// Executable and I/O constants
	FFprobeCommand      = "ffprobe"
	FFprobeLogLevel     = "error"
	FFprobeShowEntries  = "format=duration"
	FFprobeOutputFormat = "csv=p=0"
	ProgressPipeTarget  = "pipe:2"
	ProgressTimePrefix  = "out_time_us="
	OutputExtensionMP4  = ".mp4"

	// Watermark rendering
	DefaultWatermarkText = "mediaq"
	watermarkFontSize    = 24
	watermarkMargin      = 10
)

// Transcoder implements the engine's post-processing collaborator on
// top of the ffmpeg and ffprobe command line tools.
type Transcoder struct {
	logger zerolog.Logger
}

// NewTranscoder creates the default ffmpeg-backed transcoder.
func NewTranscoder() *Transcoder {
	return &Transcoder{
		logger: log.With().Str("component", "compress").Logger(),
	}
}

var _ engine.Transcoder = (*Transcoder)(nil)

// Locate resolves the ffmpeg binary on PATH.
func (t *Transcoder) Locate() (string, error) {
	return platform.LookupFFmpeg()
}

// Transform re-encodes inputPath with a watermark overlay and returns
// the branded artifact. The input file is left in place; a partial
// output is removed on failure.
func (t *Transcoder) Transform(ctx context.Context, inputPath string, opts engine.TransformOptions) (*engine.TransformResult, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return nil, fmt.Errorf("input file: %w", err)
	}

	ffmpeg, err := t.Locate()
	if err != nil {
		return nil, err
	}

	outputPath := brandedOutputPath(inputPath)
	text := strings.TrimSpace(opts.WatermarkText)
	if text == "" {
		text = DefaultWatermarkText
	}

	args := BuildTransformArgs(inputPath, outputPath, text)
	cmd := exec.CommandContext(ctx, ffmpeg, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	duration, durErr := probeDuration(inputPath)
	go t.logProgress(stderr, inputPath, duration, durErr == nil)

	if err := cmd.Wait(); err != nil {
		os.Remove(outputPath)
		return nil, fmt.Errorf("ffmpeg transform: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("transform output missing: %w", err)
	}
	t.logger.Info().Str("input", inputPath).Str("output", outputPath).
		Int64("size", info.Size()).Msg("watermark transform finished")
	return &engine.TransformResult{OutputPath: outputPath, FileSize: info.Size()}, nil
}

// BuildTransformArgs builds the ffmpeg argument list for the watermark
// overlay. The text is drawn bottom-right with a translucent box; audio
// streams are copied through.
func BuildTransformArgs(inputPath, outputPath, text string) []string {
	drawtext := fmt.Sprintf(
		"drawtext=text='%s':fontsize=%d:fontcolor=white@0.8:box=1:boxcolor=black@0.4:x=w-tw-%d:y=h-th-%d",
		escapeDrawtext(text), watermarkFontSize, watermarkMargin, watermarkMargin,
	)
	return []string{
		"-y",
		"-i", inputPath,
		"-vf", drawtext,
		"-c:v", VideoCodec,
		"-preset", VideoPreset,
		"-crf", VideoCRF,
		"-c:a", AudioCodec,
		"-movflags", FastStartFlag,
		"-progress", ProgressPipeTarget,
		"-nostats",
		outputPath,
	}
}

// probeDuration reads the input duration in seconds via ffprobe.
func probeDuration(filePath string) (float64, error) {
	cmd := exec.Command(FFprobeCommand, "-v", FFprobeLogLevel, "-show_entries", FFprobeShowEntries, "-of", FFprobeOutputFormat, filePath)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("run ffprobe: %w", err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}

// logProgress drains ffmpeg's -progress stream, logging percentages when
// the input duration is known. The stream must be consumed either way or
// ffmpeg blocks on a full pipe.
func (t *Transcoder) logProgress(stderr io.ReadCloser, inputPath string, totalDuration float64, haveDuration bool) {
	defer stderr.Close()
	scanner := bufio.NewScanner(stderr)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, ProgressTimePrefix) {
			continue
		}
		if !haveDuration || totalDuration <= 0 {
			continue
		}
		micros, err := strconv.ParseInt(strings.TrimPrefix(line, ProgressTimePrefix), 10, 64)
		if err != nil {
			continue
		}
		progress := float64(micros) / 1e6 / totalDuration
		if progress > 1.0 {
			progress = 1.0
		}
		t.logger.Debug().Str("input", inputPath).Int("percent", int(progress*100)).Msg("transform progress")
	}
}

// brandedOutputPath derives the output name: base + branded suffix,
// always in an mp4 container.
func brandedOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + BrandedSuffix + OutputExtensionMP4
}

// escapeDrawtext escapes the characters the drawtext filter treats
// specially inside a single-quoted text value.
func escapeDrawtext(text string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return replacer.Replace(text)
}
