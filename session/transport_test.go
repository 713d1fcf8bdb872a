package session

import (
	"io"
	"sync"
)

// scriptedTransport replays canned device responses keyed by the exact
// bytes written. Each write pops the next queued response for that payload.
type scriptedTransport struct {
	mu      sync.Mutex
	scripts map[string][][]string
	writes  []string
	out     chan []byte
	closed  bool
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{
		scripts: make(map[string][][]string),
		out:     make(chan []byte, 256),
	}
}

// on queues chunks to be emitted when payload is written
func (t *scriptedTransport) on(payload string, chunks ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scripts[payload] = append(t.scripts[payload], chunks)
}

func (t *scriptedTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	payload := string(p)
	t.writes = append(t.writes, payload)
	var chunks []string
	if queue := t.scripts[payload]; len(queue) > 0 {
		chunks = queue[0]
		t.scripts[payload] = queue[1:]
	}
	closed := t.closed
	t.mu.Unlock()

	if closed {
		return 0, io.ErrClosedPipe
	}
	for _, c := range chunks {
		t.out <- []byte(c)
	}
	return len(p), nil
}

func (t *scriptedTransport) Read(p []byte) (int, error) {
	b, ok := <-t.out
	if !ok {
		return 0, io.EOF
	}
	return copy(p, b), nil
}

func (t *scriptedTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.out)
	}
	return nil
}

// written returns a snapshot of everything sent to the device
func (t *scriptedTransport) written() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.writes))
	copy(out, t.writes)
	return out
}

func (t *scriptedTransport) writeCount(payload string) int {
	n := 0
	for _, w := range t.written() {
		if w == payload {
			n++
		}
	}
	return n
}
