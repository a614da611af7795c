package ytdlp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	ytdlpv2 "github.com/ytget/ytdlp/v2"

	"github.com/ytget/mediaq/internal/model"
)

const (
	playlistParam    = "list="
	paramSeparator   = "&"
	videoURLTemplate = "https://www.youtube.com/watch?v=%s"

	defaultEnumerationTimeout = 60 * time.Second
)

// PlaylistClient enumerates playlist items so the CLI can expand a
// playlist URL into per-item jobs.
type PlaylistClient struct {
	timeout time.Duration
	logger  zerolog.Logger
}

// NewPlaylistClient creates an enumerator with the default timeout.
func NewPlaylistClient() *PlaylistClient {
	return &PlaylistClient{
		timeout: defaultEnumerationTimeout,
		logger:  log.With().Str("component", "playlist").Logger(),
	}
}

// SetTimeout overrides the enumeration timeout.
func (c *PlaylistClient) SetTimeout(d time.Duration) {
	c.timeout = d
}

// IsPlaylistURL reports whether url carries a playlist parameter.
func IsPlaylistURL(url string) bool {
	return strings.Contains(url, playlistParam)
}

// ExtractPlaylistID pulls the playlist id out of url, or "" when absent.
func ExtractPlaylistID(url string) string {
	idx := strings.Index(url, playlistParam)
	if idx < 0 {
		return ""
	}
	id := url[idx+len(playlistParam):]
	if sep := strings.Index(id, paramSeparator); sep >= 0 {
		id = id[:sep]
	}
	return id
}

// Enumerate lists the items of the playlist referenced by url, in
// playlist order.
func (c *PlaylistClient) Enumerate(ctx context.Context, url string) (*model.PlaylistPage, error) {
	playlistID := ExtractPlaylistID(url)
	if playlistID == "" {
		return nil, fmt.Errorf("no playlist id in URL: %s", url)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	d := ytdlpv2.New()
	items, err := d.GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, fmt.Errorf("enumerate playlist %s: %w", playlistID, err)
	}

	page := &model.PlaylistPage{
		ID:  playlistID,
		URL: url,
	}
	for _, it := range items {
		page.Items = append(page.Items, model.PlaylistItem{
			VideoID: it.VideoID,
			Title:   it.Title,
			URL:     fmt.Sprintf(videoURLTemplate, it.VideoID),
		})
	}
	page.Title = playlistTitle(playlistID, page.Items)
	c.logger.Info().Str("playlist_id", playlistID).Int("items", len(page.Items)).Msg("playlist enumerated")
	return page, nil
}

// playlistTitle derives a display title from the first item, falling
// back to the playlist id. The enumeration API does not return the
// playlist's own name.
func playlistTitle(playlistID string, items []model.PlaylistItem) string {
	for _, it := range items {
		if t := strings.TrimSpace(it.Title); t != "" {
			return t
		}
	}
	return playlistID
}
