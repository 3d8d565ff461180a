package deconz

// DeviceJoinedEvent, DeviceAnnounceEvent, DeviceLeaveEvent and the
// ZclPayload type (zcl.go) are the adapter-to-caller events an EventSink
// receives.

type DeviceJoinedEvent struct {
	NetworkAddress uint16
	IEEEAddr       string
}

type DeviceAnnounceEvent struct {
	NetworkAddress uint16
	IEEEAddr       string
}

type DeviceLeaveEvent struct {
	NetworkAddress uint16
	IEEEAddr       string
}

// EventSink receives the adapter's unsolicited events. All methods
// are called from the adapter's single event-delivery goroutine (fed by a
// bounded buffer that drops events when full) and must not block for long; a caller wanting asynchronous handling should hand off
// to its own goroutine/channel. A nil method is never called — embed
// NoopEventSink to get safe defaults.
type EventSink interface {
	DeviceJoined(DeviceJoinedEvent)
	DeviceAnnounce(DeviceAnnounceEvent)
	DeviceLeave(DeviceLeaveEvent)
	ZclPayload(ZclPayload)
}

// NoopEventSink implements EventSink with no-ops so embedders only need to
// override the methods they care about.
type NoopEventSink struct{}

func (NoopEventSink) DeviceJoined(DeviceJoinedEvent)     {}
func (NoopEventSink) DeviceAnnounce(DeviceAnnounceEvent) {}
func (NoopEventSink) DeviceLeave(DeviceLeaveEvent)       {}
func (NoopEventSink) ZclPayload(ZclPayload)              {}

// DeviceDirectory resolves a device's 16-bit network address from its
// 64-bit IEEE address. It is an external
// collaborator the core consumes, not implemented here.
type DeviceDirectory interface {
	ResolveShortAddress(ieee uint64) (uint16, bool)
}

// staticDirectory is the trivial DeviceDirectory used when the caller
// doesn't supply one: every lookup fails, which is the conservative and
// spec-compliant behavior.
type staticDirectory struct{}

func (staticDirectory) ResolveShortAddress(uint64) (uint16, bool) { return 0, false }
