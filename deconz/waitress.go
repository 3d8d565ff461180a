package deconz

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// waitressEntry is one registered future.
type waitressEntry struct {
	id       string
	matcher  WaitressMatcher
	deadline time.Time
	resolve  chan *ZclPayload
}

// Waitress is the general-purpose ZCL payload matcher, independent of the
// pending-request table. It is safe for
// concurrent use; Offer is expected to be called from the single inbound
// router goroutine while WaitFor/Cancel may be called from any caller
// goroutine.
type Waitress struct {
	mu      sync.Mutex
	entries []*waitressEntry
	metrics *Metrics
}

// NewWaitress constructs an empty Waitress. metrics may be nil.
func NewWaitress(metrics *Metrics) *Waitress {
	return &Waitress{metrics: metrics}
}

// CancelFunc removes a previously registered waiter; calling it after the
// waiter has already resolved or expired is a harmless no-op.
type CancelFunc func()

// WaitFor registers interest in a future ZCL payload matching m. It
// returns a channel that receives exactly one value (the match) or is
// closed without a value on timeout, and a CancelFunc to remove the
// registration early.
func (w *Waitress) WaitFor(m WaitressMatcher, timeout time.Duration) (<-chan *ZclPayload, CancelFunc) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	e := &waitressEntry{
		id:       uuid.NewString(),
		matcher:  m,
		deadline: time.Now().Add(timeout),
		resolve:  make(chan *ZclPayload, 1),
	}
	w.mu.Lock()
	w.entries = append(w.entries, e)
	if w.metrics != nil {
		w.metrics.waitressSize.Set(float64(len(w.entries)))
	}
	w.mu.Unlock()

	cancel := func() {
		w.remove(e.id)
	}
	go w.expireAfter(e, timeout)
	return e.resolve, cancel
}

func (w *Waitress) expireAfter(e *waitressEntry, timeout time.Duration) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	<-t.C
	if w.remove(e.id) {
		close(e.resolve)
	}
}

func (w *Waitress) remove(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, e := range w.entries {
		if e.id == id {
			w.entries = append(w.entries[:i], w.entries[i+1:]...)
			if w.metrics != nil {
				w.metrics.waitressSize.Set(float64(len(w.entries)))
			}
			return true
		}
	}
	return false
}

// Offer fans a payload out to matching waiters; insertion order breaks
// ties and the first match wins, but uniqueness is not enforced.
func (w *Waitress) Offer(p *ZclPayload) bool {
	w.mu.Lock()
	var matched *waitressEntry
	var idx int
	for i, e := range w.entries {
		if e.matcher.matches(p) {
			matched = e
			idx = i
			break
		}
	}
	if matched != nil {
		w.entries = append(w.entries[:idx], w.entries[idx+1:]...)
		if w.metrics != nil {
			w.metrics.waitressSize.Set(float64(len(w.entries)))
		}
	}
	w.mu.Unlock()

	if matched == nil {
		return false
	}
	matched.resolve <- p
	close(matched.resolve)
	return true
}
