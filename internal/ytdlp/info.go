package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ytget/mediaq/internal/model"
)

// InfoClient fetches media metadata through yt-dlp's JSON dump mode.
type InfoClient struct {
	command string
	logger  zerolog.Logger
}

// NewInfoClient creates a metadata client invoking the default binary.
func NewInfoClient() *InfoClient {
	return &InfoClient{
		command: Command,
		logger:  log.With().Str("component", "ytdlp-info").Logger(),
	}
}

// metadataDump mirrors the subset of yt-dlp's -J output we consume.
type metadataDump struct {
	Title       string       `json:"title"`
	Thumbnail   string       `json:"thumbnail"`
	Duration    float64      `json:"duration"`
	Description string       `json:"description"`
	Uploader    string       `json:"uploader"`
	ViewCount   int64        `json:"view_count"`
	Formats     []formatDump `json:"formats"`
}

type formatDump struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	Height         int     `json:"height"`
	FPS            float64 `json:"fps"`
	TBR            float64 `json:"tbr"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
}

// GetMetadata dumps and parses metadata for a single media URL.
func (c *InfoClient) GetMetadata(ctx context.Context, url string) (*model.MediaInfo, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("metadata: empty URL")
	}

	cmd := exec.CommandContext(ctx, c.command, "-J", "--no-playlist", url)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("metadata dump: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	info, err := parseMetadata(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	c.logger.Debug().Str("url", url).Str("title", info.Title).
		Int("renditions", len(info.Renditions)).Msg("metadata resolved")
	return info, nil
}

func parseMetadata(data []byte) (*model.MediaInfo, error) {
	var dump metadataDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("parse metadata dump: %w", err)
	}

	info := &model.MediaInfo{
		Title:       dump.Title,
		Thumbnail:   dump.Thumbnail,
		Duration:    formatDuration(dump.Duration),
		Description: dump.Description,
		Uploader:    dump.Uploader,
		ViewCount:   dump.ViewCount,
	}
	for _, f := range dump.Formats {
		if f.FormatID == "" {
			continue
		}
		info.Renditions = append(info.Renditions, model.Rendition{
			ID:             f.FormatID,
			Ext:            f.Ext,
			VCodec:         f.VCodec,
			ACodec:         f.ACodec,
			Height:         f.Height,
			FPS:            f.FPS,
			Bitrate:        f.TBR,
			Filesize:       f.Filesize,
			FilesizeApprox: f.FilesizeApprox,
		})
	}
	return info, nil
}

// formatDuration renders whole seconds as MM:SS, or HH:MM:SS past an hour.
func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
