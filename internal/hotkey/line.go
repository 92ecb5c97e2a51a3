package hotkey

import (
	"bufio"
	"io"
)

// LineListener emits EventToggle for every line read from r, so pressing
// Enter in a terminal starts and stops recording.
type LineListener struct {
	*emitter
	r io.Reader
}

// NewLineListener creates a LineListener reading from r.
func NewLineListener(r io.Reader) *LineListener {
	return &LineListener{emitter: newEmitter(), r: r}
}

// Start reads lines until r is exhausted or Stop is called, then closes the
// event channel. A read blocked on r is only noticed after it returns.
func (l *LineListener) Start() {
	defer close(l.ch)

	lines := make(chan struct{})
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(l.r)
		for sc.Scan() {
			select {
			case lines <- struct{}{}:
			case <-l.done:
				return
			}
		}
	}()

	for {
		select {
		case _, ok := <-lines:
			if !ok {
				return
			}
			// Lines are never dropped.
			select {
			case l.ch <- Event{Type: EventToggle}:
			case <-l.done:
				return
			}
		case <-l.done:
			return
		}
	}
}

var _ Source = (*LineListener)(nil)
