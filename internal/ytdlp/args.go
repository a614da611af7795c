package ytdlp

import (
	"fmt"
	"strings"

	"github.com/ytget/mediaq/internal/config"
	"github.com/ytget/mediaq/internal/model"
)

// ArgBuilder assembles yt-dlp argument lists from a job request and the
// current settings. The engine appends the ffmpeg location and the URL
// itself.
type ArgBuilder struct{}

// NewArgBuilder creates the default argument builder.
func NewArgBuilder() *ArgBuilder {
	return &ArgBuilder{}
}

// BuildArgs produces the yt-dlp argv for req. Progress lines are forced
// onto separate lines (--newline) so the runner's scanner sees them, and
// playlist expansion is disabled: enumeration happens before submission,
// one process fetches exactly one item.
func (b *ArgBuilder) BuildArgs(req model.JobRequest, destDir string, settings config.Settings, runtimeArgs []string) []string {
	args := []string{
		"--newline",
		"--no-playlist",
		"-P", destDir,
	}

	template := strings.TrimSpace(req.FilenameTemplate)
	if template == "" {
		template = settings.FilenameTemplate
	}
	if template != "" {
		args = append(args, "-o", template)
	}

	args = append(args, formatArgs(req, settings)...)

	if req.StartTime != "" || req.EndTime != "" {
		args = append(args, "--download-sections", trimSection(req.StartTime, req.EndTime), "--force-keyframes-at-cuts")
	}

	if proxy := strings.TrimSpace(settings.Proxy); proxy != "" {
		args = append(args, "--proxy", proxy)
	}
	if cookies := strings.TrimSpace(settings.CookiesFile); cookies != "" {
		args = append(args, "--cookies", cookies)
	}
	if browser := strings.TrimSpace(settings.CookiesFromBrowser); browser != "" {
		args = append(args, "--cookies-from-browser", browser)
	}

	return append(args, runtimeArgs...)
}

// formatArgs resolves the rendition selection flags.
func formatArgs(req model.JobRequest, settings config.Settings) []string {
	if req.Kind == model.MediaKindAudio {
		args := []string{"-x"}
		selector := strings.TrimSpace(req.Format)
		if selector == "" {
			selector = config.SelectorForPreset(config.QualityAudio)
		}
		args = append(args, "-f", selector)
		if af := strings.TrimSpace(req.AudioFormat); af != "" {
			args = append(args, "--audio-format", af)
		}
		return args
	}

	selector := strings.TrimSpace(req.Format)
	if selector == "" {
		selector = config.SelectorForPreset(settings.QualityPreset)
	}
	// Extra audio renditions merge into the primary selection.
	for _, id := range req.AudioFormatIDs {
		if id = strings.TrimSpace(id); id != "" {
			selector += "+" + id
		}
	}
	return []string{"-f", selector}
}

// trimSection renders the --download-sections expression for a start/end
// pair. Open ends use yt-dlp's "inf" and "0" markers.
func trimSection(start, end string) string {
	if start == "" {
		start = "0"
	}
	if end == "" {
		end = "inf"
	}
	return fmt.Sprintf("*%s-%s", start, end)
}
