package progress

import (
	"testing"

	"github.com/ytget/mediaq/internal/model"
)

func TestEstimateParts(t *testing.T) {
	tests := []struct {
		name     string
		req      model.JobRequest
		expected int
	}{
		{"audio always one part", model.JobRequest{Kind: model.MediaKindAudio, Format: "137+140"}, 1},
		{"video and audio streams", model.JobRequest{Kind: model.MediaKindVideo, Format: "137+140"}, 2},
		{"three combined streams", model.JobRequest{Kind: model.MediaKindVideo, Format: "137+140+141"}, 3},
		{"none collapses to one", model.JobRequest{Kind: model.MediaKindVideo, Format: "137+140+none"}, 1},
		{"single id", model.JobRequest{Kind: model.MediaKindVideo, Format: "22"}, 1},
		{"fallbacks ignored", model.JobRequest{Kind: model.MediaKindVideo, Format: "137+140/best"}, 2},
		{"empty selector defaults to muxed", model.JobRequest{Kind: model.MediaKindVideo}, 2},
		{"whitespace selector defaults to muxed", model.JobRequest{Kind: model.MediaKindVideo, Format: "  "}, 2},
		{"secondary audio ids win", model.JobRequest{Kind: model.MediaKindVideo, Format: "137", AudioFormatIDs: []string{"140", "141"}}, 3},
		{"blank audio ids skipped", model.JobRequest{Kind: model.MediaKindVideo, AudioFormatIDs: []string{" ", ""}}, 2},
	}

	for _, test := range tests {
		result := EstimateParts(test.req)
		if result != test.expected {
			t.Errorf("%s: EstimateParts(%+v) = %d, expected %d", test.name, test.req, result, test.expected)
		}
	}
}
