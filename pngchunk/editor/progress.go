package editor

import "sync"

// progressTracker serializes progress reports from concurrent loaders.
type progressTracker struct {
	mu       sync.Mutex
	current  int64
	total    int64
	callback ProgressCallback
}

func newProgressTracker(total int64, callback ProgressCallback) *progressTracker {
	return &progressTracker{total: total, callback: callback}
}

func (t *progressTracker) done() {
	if t.callback == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current++
	t.callback(t.current, t.total)
}
