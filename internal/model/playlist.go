package model

// PlaylistItem is one entry of an enumerated playlist, as returned by the
// info provider before any per-item metadata has been fetched.
type PlaylistItem struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title,omitempty"`
	URL     string `json:"url"`
}

// PlaylistPage is the result of expanding a playlist URL into candidate jobs.
type PlaylistPage struct {
	ID    string         `json:"id"`
	Title string         `json:"title,omitempty"`
	URL   string         `json:"url"`
	Items []PlaylistItem `json:"items"`
}
