package ytdlp

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ytget/mediaq/internal/engine"
)

// Progress lines look like:
//
//	[download]  45.3% of   10.57MiB at    1.23MiB/s ETA 00:12
//	[download]  12.0% of ~ 523.44MiB at  890.11KiB/s ETA 09:41
var (
	rePct   = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)%`)
	reSpeed = regexp.MustCompile(`\bat\s+([^\s]+)`)
	reETA   = regexp.MustCompile(`\bETA\s+([0-9:]+)`)
	reOf    = regexp.MustCompile(`\bof\s+~?\s*([^\s]+)`)
)

var sizeUnits = map[string]float64{
	"b":   1,
	"kib": 1 << 10,
	"kb":  1000,
	"mib": 1 << 20,
	"mb":  1000 * 1000,
	"gib": 1 << 30,
	"gb":  1000 * 1000 * 1000,
	"tib": 1 << 40,
}

var reSize = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)([kKmMgGtT]?i?[bB])$`)

// ParseProgressLine extracts a structured progress event from one
// fetcher output line. Returns false for anything that is not a
// [download] percentage line.
func ParseProgressLine(line string) (engine.ProgressEvent, bool) {
	if !strings.Contains(line, "[download]") {
		return engine.ProgressEvent{}, false
	}
	m := rePct.FindStringSubmatch(line)
	if m == nil {
		return engine.ProgressEvent{}, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return engine.ProgressEvent{}, false
	}

	ev := engine.ProgressEvent{Percent: pct}
	if m := reSpeed.FindStringSubmatch(line); m != nil {
		ev.Speed = m[1]
	}
	if m := reETA.FindStringSubmatch(line); m != nil {
		ev.ETA = m[1]
	}
	if m := reOf.FindStringSubmatch(line); m != nil {
		if total, ok := parseSize(m[1]); ok {
			ev.TotalBytes = total
			ev.DownloadedBytes = int64(pct / 100 * float64(total))
		}
	}
	return ev, true
}

// parseSize converts a human readable size like "10.57MiB" to bytes.
func parseSize(s string) (int64, bool) {
	m := reSize.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	mult, ok := sizeUnits[strings.ToLower(m[2])]
	if !ok {
		return 0, false
	}
	return int64(value * mult), true
}
