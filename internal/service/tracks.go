package service

import (
	"sync"

	"github.com/hermesradio/hermes/internal/provider/llm"
)

// recentTrackCap bounds the played-track memory handed to script context.
const recentTrackCap = 10

// TrackLog mirrors the playout system's tracks-since-last-break counter and
// keeps a short memory of what just played. The playout side owns the real
// counter; this mirror serves the status API and the script writer when
// events arrive by webhook instead of polling.
type TrackLog struct {
	mu     sync.Mutex
	count  int
	recent []llm.Track
}

// NewTrackLog creates an empty TrackLog.
func NewTrackLog() *TrackLog {
	return &TrackLog{}
}

// TrackChange records one track_change event: the counter value the playout
// system reported and the track that just started. Untitled tracks update
// the counter but stay out of the recent list.
func (l *TrackLog) TrackChange(count int, track llm.Track) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count = count

	if track.Title == "" {
		return
	}
	l.recent = append([]llm.Track{track}, l.recent...)
	if len(l.recent) > recentTrackCap {
		l.recent = l.recent[:recentTrackCap]
	}
}

// Count returns tracks since the last break.
func (l *TrackLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Reset zeroes the counter after a break is pushed. The recent-track memory
// survives; pushing a break does not change what already played.
func (l *TrackLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.count = 0
}

// Recent returns up to n recently played tracks, newest first.
func (l *TrackLog) Recent(n int) []llm.Track {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > len(l.recent) {
		n = len(l.recent)
	}
	out := make([]llm.Track, n)
	copy(out, l.recent[:n])
	return out
}
