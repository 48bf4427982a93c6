package tflite

import "sync"

// lifetime destroys a native resource exactly once: after close has been
// requested and the last borrower has released it.
type lifetime struct {
	mu        sync.Mutex
	refs      int
	closed    bool
	destroyed bool
	destroy   func() error
}

// acquire registers a borrower. It fails once close has been requested.
func (l *lifetime) acquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.refs++
	return true
}

func (l *lifetime) release() error {
	l.mu.Lock()
	l.refs--
	if l.refs < 0 {
		l.mu.Unlock()
		panic("tflite: lifetime released more often than acquired")
	}
	fire := l.closed && l.refs == 0 && !l.destroyed
	if fire {
		l.destroyed = true
	}
	l.mu.Unlock()

	if fire {
		return l.destroy()
	}
	return nil
}

func (l *lifetime) close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	fire := l.refs == 0 && !l.destroyed
	if fire {
		l.destroyed = true
	}
	l.mu.Unlock()

	if fire {
		return l.destroy()
	}
	return nil
}
