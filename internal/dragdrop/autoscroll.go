package dragdrop

import (
	"sync"
	"time"
)

// Scroller moves the viewport.
type Scroller interface {
	ScrollBy(dy float64)
}

// ScrollerFunc adapts a function to Scroller.
type ScrollerFunc func(dy float64)

// ScrollBy calls f(dy).
func (f ScrollerFunc) ScrollBy(dy float64) { f(dy) }

// AutoScroller scrolls at a fixed rate on a ticker until stopped.
type AutoScroller struct {
	scroller Scroller
	step     float64
	interval time.Duration

	mu        sync.Mutex
	direction int
	stop      chan struct{}
	done      chan struct{}
}

// NewAutoScroller creates a stopped scroller.
func NewAutoScroller(scroller Scroller, step float64, interval time.Duration) *AutoScroller {
	return &AutoScroller{
		scroller: scroller,
		step:     step,
		interval: interval,
	}
}

// Start scrolls up (direction < 0) or down (direction > 0) every interval.
// Starting in the direction already running is a no-op; a zero direction
// stops the scroller.
func (a *AutoScroller) Start(direction int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case direction < 0:
		direction = -1
	case direction > 0:
		direction = 1
	default:
		a.stopLocked()
		return
	}
	if a.stop != nil && a.direction == direction {
		return
	}
	a.stopLocked()
	if a.scroller == nil || a.interval <= 0 {
		return
	}

	a.direction = direction
	a.stop = make(chan struct{})
	a.done = make(chan struct{})
	go a.run(a.stop, a.done, float64(direction)*a.step)
}

// Stop halts scrolling and waits for the ticker goroutine to exit.
func (a *AutoScroller) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopLocked()
}

// Running reports whether the ticker is active.
func (a *AutoScroller) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.stop != nil
}

// Direction returns -1, 0 or 1.
func (a *AutoScroller) Direction() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.direction
}

func (a *AutoScroller) stopLocked() {
	if a.stop == nil {
		return
	}
	close(a.stop)
	<-a.done
	a.stop = nil
	a.done = nil
	a.direction = 0
}

func (a *AutoScroller) run(stop <-chan struct{}, done chan<- struct{}, dy float64) {
	defer close(done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.scroller.ScrollBy(dy)
		}
	}
}
