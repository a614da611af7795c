// Package compress runs ffmpeg post-processing on finished downloads,
// currently a branded watermark overlay. It also resolves the ffmpeg
// binary the download engine needs for stream merging.
package compress
