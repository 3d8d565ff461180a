// Package deconztest provides an in-memory deconz.Driver implementation
// for exercising the dispatcher, pending-request table and waitress
// without a real radio attached.
package deconztest

import (
	"context"
	"sync"

	"github.com/samuel/go-deconz/deconz"
)

// FakeDriver is a deconz.Driver that records every submitted
// ApsDataRequest and lets a test inject indications on demand.
type FakeDriver struct {
	mu sync.Mutex

	opened bool
	closed bool

	params    map[deconz.Parameter][]byte
	firmware  [4]byte
	netState  deconz.NetworkState

	Submitted []*deconz.ApsDataRequest
	events    chan deconz.DriverEvent

	// SubmitErr, when non-nil, is returned by EnqueueSendDataRequest
	// instead of accepting the request.
	SubmitErr error
}

// NewFakeDriver constructs a FakeDriver with a reasonable firmware version
// and an empty parameter store.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		params:   map[deconz.Parameter][]byte{},
		firmware: [4]byte{0x00, 0x07, 0x02, 0x26},
		events:   make(chan deconz.DriverEvent, 256),
	}
}

func (f *FakeDriver) Open(ctx context.Context, baud int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = true
	return nil
}

func (f *FakeDriver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.events)
	return nil
}

func (f *FakeDriver) ReadParameter(ctx context.Context, id deconz.Parameter) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.params[id]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (f *FakeDriver) WriteParameter(ctx context.Context, id deconz.Parameter, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params[id] = append([]byte(nil), value...)
	return nil
}

func (f *FakeDriver) SetParameter(id deconz.Parameter, value []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params[id] = append([]byte(nil), value...)
}

func (f *FakeDriver) ReadFirmwareVersion(ctx context.Context) ([4]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.firmware, nil
}

func (f *FakeDriver) SetFirmwareVersion(v [4]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.firmware = v
}

func (f *FakeDriver) ChangeNetworkState(ctx context.Context, state deconz.NetworkState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.netState = state
	return nil
}

func (f *FakeDriver) EnqueueSendDataRequest(ctx context.Context, req *deconz.ApsDataRequest) error {
	if f.SubmitErr != nil {
		return f.SubmitErr
	}
	f.mu.Lock()
	f.Submitted = append(f.Submitted, req)
	f.mu.Unlock()
	return nil
}

func (f *FakeDriver) Events() <-chan deconz.DriverEvent {
	return f.events
}

// Inject pushes a DriverEvent onto the event stream as if the radio had
// raised it.
func (f *FakeDriver) Inject(ev deconz.DriverEvent) {
	f.events <- ev
}

// LastSubmitted returns the most recently submitted request, or nil.
func (f *FakeDriver) LastSubmitted() *deconz.ApsDataRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Submitted) == 0 {
		return nil
	}
	return f.Submitted[len(f.Submitted)-1]
}
