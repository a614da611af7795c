package output

import (
	"regexp"
	"strings"
)

// Log line patterns that announce where the fetcher is writing. Quotes
// are optional; paths may contain spaces.
var (
	reDestination = regexp.MustCompile(`(?i)destination:\s+(.+?)\s*$`)
	reMerging     = regexp.MustCompile(`(?i)merging formats into\s+"?([^"]+?)"?\s*$`)
	reMoving      = regexp.MustCompile(`(?i)moving file.*?\bto\s+"?([^"]+?)"?\s*$`)
)

// Collector accumulates output path candidates from the running
// process's log stream. Candidates are kept ordered and deduplicated,
// with the most recently observed path at the end. Not safe for
// concurrent use; each job feeds its collector from one stream.
type Collector struct {
	candidates []string
	lastKnown  string
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Scan inspects one log line and records any announced output path.
// Returns the extracted path, or "" when the line announces nothing.
func (c *Collector) Scan(line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}

	for _, re := range []*regexp.Regexp{reMerging, reMoving, reDestination} {
		if m := re.FindStringSubmatch(line); len(m) > 1 {
			path := strings.TrimSpace(m[1])
			if path == "" {
				return ""
			}
			c.add(path)
			return path
		}
	}
	return ""
}

// Candidates returns the observed paths, oldest first.
func (c *Collector) Candidates() []string {
	out := make([]string, len(c.candidates))
	copy(out, c.candidates)
	return out
}

// LastKnown returns the most recently observed path.
func (c *Collector) LastKnown() string {
	return c.lastKnown
}

// add appends path, moving it to the end if already present.
func (c *Collector) add(path string) {
	c.lastKnown = path
	for i, existing := range c.candidates {
		if existing == path {
			c.candidates = append(c.candidates[:i], c.candidates[i+1:]...)
			break
		}
	}
	c.candidates = append(c.candidates, path)
}
