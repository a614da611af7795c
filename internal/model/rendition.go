package model

import "strings"

// CodecNone is the sentinel the info provider reports when a stream kind
// is absent from a rendition.
const CodecNone = "none"

// Rendition is one downloadable format variant reported by the info provider.
type Rendition struct {
	ID            string  `json:"id"`
	Ext           string  `json:"ext,omitempty"`
	VCodec        string  `json:"vcodec,omitempty"`
	ACodec        string  `json:"acodec,omitempty"`
	Height        int     `json:"height,omitempty"`
	FPS           float64 `json:"fps,omitempty"`
	Bitrate       float64 `json:"tbr,omitempty"`
	Filesize      int64   `json:"filesize,omitempty"`
	FilesizeApprox int64  `json:"filesize_approx,omitempty"`
}

// HasVideo reports whether the rendition carries a video stream.
func (r Rendition) HasVideo() bool {
	return r.VCodec != "" && r.VCodec != CodecNone
}

// HasAudio reports whether the rendition carries an audio stream.
func (r Rendition) HasAudio() bool {
	return r.ACodec != "" && r.ACodec != CodecNone
}

// Size returns the exact size when known, otherwise the approximation.
func (r Rendition) Size() int64 {
	if r.Filesize > 0 {
		return r.Filesize
	}
	return r.FilesizeApprox
}

// MediaInfo is the metadata document returned by the info provider.
type MediaInfo struct {
	Title       string      `json:"title,omitempty"`
	Thumbnail   string      `json:"thumbnail,omitempty"`
	Duration    string      `json:"duration,omitempty"`
	Description string      `json:"description,omitempty"`
	Uploader    string      `json:"uploader,omitempty"`
	ViewCount   int64       `json:"view_count,omitempty"`
	Renditions  []Rendition `json:"renditions,omitempty"`
}

// ChooseRendition picks the rendition a selector expression most likely
// refers to. It tries the components of the first fallback alternative as
// exact ids, then falls back to the best matching stream for the media
// kind. Returns a zero Rendition when nothing matches.
func ChooseRendition(renditions []Rendition, selector string, kind MediaKind) Rendition {
	if len(renditions) == 0 {
		return Rendition{}
	}

	first := selector
	if idx := strings.Index(first, "/"); idx >= 0 {
		first = first[:idx]
	}
	for _, comp := range strings.Split(first, "+") {
		comp = strings.TrimSpace(comp)
		if comp == "" || strings.EqualFold(comp, CodecNone) {
			continue
		}
		for _, r := range renditions {
			if r.ID == comp {
				return r
			}
		}
	}

	// No exact id match; prefer the richest stream of the requested kind.
	var best Rendition
	for _, r := range renditions {
		if kind == MediaKindAudio {
			if !r.HasAudio() || r.HasVideo() {
				continue
			}
			if best.ID == "" || r.Bitrate > best.Bitrate {
				best = r
			}
			continue
		}
		if !r.HasVideo() {
			continue
		}
		if best.ID == "" || r.Height > best.Height {
			best = r
		}
	}
	if best.ID == "" {
		best = renditions[len(renditions)-1]
	}
	return best
}
