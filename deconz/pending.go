package deconz

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// defaultPendingTimeout is used when the caller doesn't specify a timeout
// or specifies a non-finite one.
const defaultPendingTimeout = 60 * time.Second

// pendingSweepInterval is the sweeper's fixed period.
const pendingSweepInterval = 1 * time.Second

// pendingRequest is one in-flight waitForData entry.
type pendingRequest struct {
	addr16    uint16
	profileID uint16
	clusterID uint16
	tsn       *byte

	createdAt time.Time
	deadline  time.Time

	resolve chan *ReceivedDataResponse
	reject  chan error
}

// matches implements the pending-entry match rule. hdr is nil for ZDP indications
// (profileID == 0), which have no ZCL tsn to compare.
func (p *pendingRequest) matches(resp *ReceivedDataResponse, hdr *ZclHeader) bool {
	if p.addr16 != resp.SrcAddr16 || p.profileID != resp.ProfileID || p.clusterID != resp.ClusterID {
		return false
	}
	if p.tsn == nil {
		return true
	}
	if hdr != nil {
		return *p.tsn == hdr.TSN
	}
	// ZDP payloads carry their own tsn in byte 0; callers needing tsn
	// correlation on ZDP responses pass it via the response's own first
	// payload byte rather than a parsed ZCL header.
	if len(resp.Asdu) > 0 {
		return *p.tsn == resp.Asdu[0]
	}
	return false
}

// PendingTable holds in-flight waitForData promises and drives the 1 Hz
// timeout sweeper. It is the dispatcher's sole path to a correlated
// ZDP/APS reply; the Waitress is a separate, independent matcher.
type PendingTable struct {
	mu      sync.Mutex
	entries []*pendingRequest

	metrics *Metrics
	log     zerolog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewPendingTable constructs a table and starts its sweeper goroutine.
// Call Close to stop the sweeper.
func NewPendingTable(metrics *Metrics, log zerolog.Logger) *PendingTable {
	t := &PendingTable{
		metrics: metrics,
		log:     log.With().Str("component", "pending").Logger(),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go t.sweepLoop()
	return t
}

// Close stops the sweeper. Any entries still pending are left untouched
// (their callers will simply never hear back) — there is no cancellation
// semantics for pending-request entries beyond process shutdown.
func (t *PendingTable) Close() {
	close(t.stopCh)
	<-t.doneCh
}

// Register inserts a new entry and returns channels the caller selects on
// for the eventual resolve or reject. timeout<=0 uses the default.
func (t *PendingTable) Register(addr16, profileID, clusterID uint16, tsn *byte, timeout time.Duration) (*pendingRequest, <-chan *ReceivedDataResponse, <-chan error) {
	if timeout <= 0 {
		timeout = defaultPendingTimeout
	}
	now := time.Now()
	p := &pendingRequest{
		addr16:    addr16,
		profileID: profileID,
		clusterID: clusterID,
		tsn:       tsn,
		createdAt: now,
		deadline:  now.Add(timeout),
		resolve:   make(chan *ReceivedDataResponse, 1),
		reject:    make(chan error, 1),
	}
	t.mu.Lock()
	t.entries = append(t.entries, p)
	t.updateGauge()
	t.mu.Unlock()
	return p, p.resolve, p.reject
}

// Deregister removes an entry without resolving/rejecting it (used when a
// caller's own context is cancelled before any match arrives).
func (t *PendingTable) Deregister(p *pendingRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(p)
}

func (t *PendingTable) removeLocked(p *pendingRequest) {
	for i, e := range t.entries {
		if e == p {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			t.updateGauge()
			return
		}
	}
}

func (t *PendingTable) updateGauge() {
	if t.metrics != nil {
		t.metrics.pendingSize.Set(float64(len(t.entries)))
	}
}

// Offer attempts to match resp (with an already-parsed ZCL header, or nil
// for ZDP indications) against every pending entry; the first match is
// resolved and removed. Returns true iff something matched.
func (t *PendingTable) Offer(resp *ReceivedDataResponse, hdr *ZclHeader) bool {
	t.mu.Lock()
	var matched *pendingRequest
	idx := -1
	for i, e := range t.entries {
		if e.matches(resp, hdr) {
			matched = e
			idx = i
			break
		}
	}
	if matched != nil {
		t.entries = append(t.entries[:idx], t.entries[idx+1:]...)
		t.updateGauge()
	}
	t.mu.Unlock()

	if matched == nil {
		return false
	}
	matched.resolve <- resp
	return true
}

// sweepLoop is the sole source of timeout rejections for pending
// requests. It expires timed-out entries as a direct deadline scan
// rather than by calling Offer(nil), since a nil *ReceivedDataResponse
// would otherwise have to thread through every matches() call.
func (t *PendingTable) sweepLoop() {
	defer close(t.doneCh)
	ticker := time.NewTicker(pendingSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stopCh:
			return
		case now := <-ticker.C:
			t.sweep(now)
		}
	}
}

func (t *PendingTable) sweep(now time.Time) {
	t.mu.Lock()
	var expired []*pendingRequest
	kept := t.entries[:0:0]
	for _, e := range t.entries {
		if now.After(e.deadline) {
			expired = append(expired, e)
		} else {
			kept = append(kept, e)
		}
	}
	t.entries = kept
	t.updateGauge()
	t.mu.Unlock()

	for _, e := range expired {
		if t.metrics != nil {
			t.metrics.requestsTimedOut.Inc()
		}
		e.reject <- ErrTimeout
	}
}
