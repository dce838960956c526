package ui

import (
	"sync"
	"time"
)

// ResizeDebouncer folds a burst of terminal tea.WindowSizeMsg events into one
// reflow of the analyze --watch progress bar after DefaultResizeDuration of
// quiet, rather than recomputing the bar width on every intermediate frame
// while a user drags a terminal edge.
type ResizeDebouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration

	pendingWidth, pendingHeight int
	lastWidth, lastHeight       int
}

// NewResizeDebouncer creates a debouncer that waits duration of quiet before
// committing a resize.
func NewResizeDebouncer(duration time.Duration) *ResizeDebouncer {
	return &ResizeDebouncer{duration: duration}
}

// Resize records a candidate size and (re)starts the quiet-period timer.
// handler runs once, with the last size seen before the timer fires — a
// rapid run of WindowSizeMsgs only schedules one eventual commit.
func (rd *ResizeDebouncer) Resize(width, height int, handler func(int, int)) {
	rd.mu.Lock()
	rd.pendingWidth, rd.pendingHeight = width, height
	if rd.timer != nil {
		rd.timer.Stop()
	}
	rd.timer = time.AfterFunc(rd.duration, func() {
		rd.mu.Lock()
		w, h := rd.pendingWidth, rd.pendingHeight
		rd.lastWidth, rd.lastHeight = w, h
		rd.mu.Unlock()
		handler(w, h)
	})
	rd.mu.Unlock()
}

// GetLastSize returns the most recently committed size, or (0, 0) before the
// first resize has settled.
func (rd *ResizeDebouncer) GetLastSize() (width, height int) {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	return rd.lastWidth, rd.lastHeight
}

// Cancel drops any pending, not-yet-committed resize — called when the
// bubbletea program tears down so a stray timer doesn't fire after the
// taskWatchModel it was debouncing for is gone.
func (rd *ResizeDebouncer) Cancel() {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	if rd.timer != nil {
		rd.timer.Stop()
		rd.timer = nil
	}
}

// DefaultResizeDuration is the quiet period the progress view waits for
// before reflowing its bar width.
const DefaultResizeDuration = 300 * time.Millisecond
