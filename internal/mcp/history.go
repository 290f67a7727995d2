package mcp

import (
	"sync"
	"time"

	"faultline/internal/defect"
)

// Entry records one submission made through the server.
type Entry struct {
	Timestamp string         `json:"ts"`
	Job       string         `json:"job"`
	Build     int            `json:"build"`
	Outcome   defect.Outcome `json:"outcome"`
	Defect    string         `json:"defect,omitempty"`
	DetailURL string         `json:"detail_url,omitempty"`
	Tag       string         `json:"tag,omitempty"`
}

// History is a thread-safe, append-only log of submissions. It lives only as
// long as the server process.
type History struct {
	mu      sync.Mutex
	entries []Entry
}

// Record appends the outcome of res for build and returns its 0-based
// index, so Since(index) starts at this entry.
func (h *History) Record(build defect.Build, res *defect.Result) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Job:       build.DisplayName,
		Build:     build.Number,
		Outcome:   res.Outcome,
		Defect:    string(res.Defect),
		DetailURL: res.DetailURL,
		Tag:       string(res.Tag),
	})
	return len(h.entries) - 1
}

// Since returns the entries from index idx onward; a negative idx is
// treated as 0.
func (h *History) Since(idx int) []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if idx < 0 {
		idx = 0
	}
	if idx >= len(h.entries) {
		return nil
	}
	out := make([]Entry, len(h.entries)-idx)
	copy(out, h.entries[idx:])
	return out
}

// Len returns the number of recorded submissions.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
