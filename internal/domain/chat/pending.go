package chat

import (
	"strings"
	"sync"
	"time"
)

// pendingIndicator animates the thinking text until stopped. stop is
// idempotent and returns only after the ticker goroutine has exited, so no
// tick is emitted after it.
type pendingIndicator struct {
	emit     Listener
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func startPending(interval time.Duration, base string, emit Listener) *pendingIndicator {
	p := &pendingIndicator{
		emit:   emit,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	emit(Event{Type: EventPendingStarted, Text: base + "."})
	go p.run(interval, base)
	return p
}

func (p *pendingIndicator) run(interval time.Duration, base string) {
	defer close(p.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	dots := 0
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			dots = (dots + 1) % 4
			n := dots
			if n == 0 {
				n = 1
			}
			p.emit(Event{Type: EventPendingTick, Text: base + strings.Repeat(".", n)})
		}
	}
}

func (p *pendingIndicator) stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		<-p.done
		p.emit(Event{Type: EventPendingEnded})
	})
}
