package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ytget/mediaq/internal/model"
	"github.com/ytget/mediaq/internal/queue"
	"github.com/ytget/mediaq/internal/ytdlp"
)

// playlistEnumerator is what the download command needs from the
// playlist client; narrowed for tests.
type playlistEnumerator interface {
	Enumerate(ctx context.Context, url string) (*model.PlaylistPage, error)
}

// submission pairs a request with the playlist linkage attached to its
// record after admission.
type submission struct {
	req  model.JobRequest
	link *model.PlaylistLink
}

func newDownloadCommand(dataDir *string) *cobra.Command {
	var (
		audio       bool
		format      string
		audioFormat string
		destDir     string
		template    string
		startTime   string
		endTime     string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "download URL...",
		Short: "Queue one or more URLs for download and wait for them to finish",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(*dataDir, concurrency)
			if err != nil {
				return err
			}
			defer app.Close()

			kind := model.MediaKindVideo
			if audio {
				kind = model.MediaKindAudio
			}
			base := model.JobRequest{
				Kind:             kind,
				Format:           format,
				AudioFormat:      audioFormat,
				StartTime:        startTime,
				EndTime:          endTime,
				DestDir:          destDir,
				FilenameTemplate: template,
				Origin:           model.OriginManual,
			}

			submissions, err := collectSubmissions(cmd.Context(), ytdlp.NewPlaylistClient(), base, args)
			if err != nil {
				return err
			}

			admitted := 0
			for _, sub := range submissions {
				rec, err := app.Submit(sub.req)
				if err != nil {
					if errors.Is(err, queue.ErrDuplicateJob) {
						log.Warn().Str("url", sub.req.URL).Msg("skipping duplicate request")
						continue
					}
					return err
				}
				if sub.link != nil {
					link := *sub.link
					app.Queue.UpdateRecord(rec.ID, func(r *model.JobRecord) {
						r.Playlist = &link
					})
				}
				admitted++
			}
			if admitted == 0 {
				return errors.New("nothing to download")
			}

			fmt.Printf("queued %d job(s)\n", admitted)
			app.Wait()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&audio, "audio", "a", false, "Download audio only")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Rendition selector expression (e.g. \"137+140/best\")")
	cmd.Flags().StringVar(&audioFormat, "audio-format", "", "Convert extracted audio to this container (audio mode)")
	cmd.Flags().StringVarP(&destDir, "dir", "d", "", "Destination directory override")
	cmd.Flags().StringVarP(&template, "template", "o", "", "Output filename template override")
	cmd.Flags().StringVar(&startTime, "start", "", "Trim start marker (e.g. 00:30)")
	cmd.Flags().StringVar(&endTime, "end", "", "Trim end marker (e.g. 02:00)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", 0, "Parallel download limit for this run (default: settings)")

	return cmd
}

// collectSubmissions turns the URL arguments into submissions, expanding
// playlist URLs into one per item with playlist linkage.
func collectSubmissions(ctx context.Context, playlists playlistEnumerator, base model.JobRequest, urls []string) ([]submission, error) {
	var out []submission
	for _, url := range urls {
		if !ytdlp.IsPlaylistURL(url) {
			req := base
			req.URL = url
			out = append(out, submission{req: req})
			continue
		}

		page, err := playlists.Enumerate(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("expand playlist %s: %w", url, err)
		}
		if len(page.Items) == 0 {
			log.Warn().Str("url", url).Msg("playlist is empty")
			continue
		}
		out = append(out, playlistSubmissions(base, page)...)
	}
	return out, nil
}

// playlistSubmissions builds per-item submissions tied together by one
// expansion group id.
func playlistSubmissions(base model.JobRequest, page *model.PlaylistPage) []submission {
	groupID := newGroupID(page.ID)
	out := make([]submission, 0, len(page.Items))
	for i, item := range page.Items {
		req := base
		req.URL = item.URL
		req.Origin = model.OriginAuto
		out = append(out, submission{
			req: req,
			link: &model.PlaylistLink{
				GroupID: groupID,
				Title:   page.Title,
				Index:   i + 1,
				Count:   len(page.Items),
			},
		})
	}
	return out
}

// newGroupID derives a unique group id for one expansion run.
func newGroupID(playlistID string) string {
	id, err := uuid.NewV7()
	if err != nil {
		return playlistID
	}
	return playlistID + "-" + id.String()
}
