package docker

import "sync"

// maxExecOutput caps captured stdout/stderr per exec.
const maxExecOutput = 1 << 20 // 1MB

// tailBuffer is a fixed-capacity writer that keeps the most recent bytes.
// Exec output feeds through it so a runaway function cannot grow control
// plane memory. The runner prints its result last, which is the part that
// must survive.
type tailBuffer struct {
	mu      sync.Mutex
	buf     []byte
	size    int
	written int // total bytes written, may exceed size
}

func newTailBuffer(size int) *tailBuffer {
	return &tailBuffer{buf: make([]byte, size), size: size}
}

// Write appends p, overwriting the oldest data once capacity is exceeded.
func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(p)
	if n >= t.size {
		copy(t.buf, p[n-t.size:])
		t.written += n
		return n, nil
	}

	start := t.written % t.size
	if start+n <= t.size {
		copy(t.buf[start:], p)
	} else {
		// Wrap around.
		first := t.size - start
		copy(t.buf[start:], p[:first])
		copy(t.buf, p[first:])
	}
	t.written += n
	return n, nil
}

// String returns the retained output, oldest first.
func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.written <= t.size {
		return string(t.buf[:t.written])
	}
	start := t.written % t.size
	return string(t.buf[start:]) + string(t.buf[:start])
}
