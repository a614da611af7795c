package output

// Package output recovers the final artifact path and size after the
// external fetcher exits. The fetcher announces destinations only in
// free-text log lines, and not reliably across platforms and versions,
// so resolution is a layered fallback chain: log-derived candidates,
// a constructed filename, a scored directory scan, and finally the byte
// count observed from progress events.
