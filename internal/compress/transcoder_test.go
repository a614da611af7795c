package compress

import (
	"strings"
	"testing"
)

func TestBuildTransformArgs(t *testing.T) {
	args := BuildTransformArgs("/tmp/in.mkv", "/tmp/in-mediaq.mp4", "mediaq")

	if args[len(args)-1] != "/tmp/in-mediaq.mp4" {
		t.Errorf("output path must be last, got %q", args[len(args)-1])
	}

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-i /tmp/in.mkv",
		"-c:v " + VideoCodec,
		"-c:a copy",
		"-movflags " + FastStartFlag,
		"-progress " + ProgressPipeTarget,
		"drawtext=text='mediaq'",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %v", want, args)
		}
	}
}

func TestBrandedOutputPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/downloads/clip.mkv", "/downloads/clip-mediaq.mp4"},
		{"/downloads/clip.mp4", "/downloads/clip-mediaq.mp4"},
		{"/downloads/noext", "/downloads/noext-mediaq.mp4"},
	}
	for _, tt := range tests {
		if got := brandedOutputPath(tt.in); got != tt.want {
			t.Errorf("brandedOutputPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEscapeDrawtext(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"50% off", `50\% off`},
		{"it's", `it\'s`},
		{"a:b", `a\:b`},
		{`back\slash`, `back\\slash`},
	}
	for _, tt := range tests {
		if got := escapeDrawtext(tt.in); got != tt.want {
			t.Errorf("escapeDrawtext(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildTransformArgsEscapesText(t *testing.T) {
	args := BuildTransformArgs("/in.mp4", "/out.mp4", "100% mine")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, `100\% mine`) {
		t.Errorf("watermark text not escaped: %v", args)
	}
}
