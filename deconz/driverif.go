package deconz

import "context"

// Parameter identifies a readable/writable radio parameter.
// The numeric values follow the deCONZ firmware's network-parameter
// identifiers; the adapter only ever reads/writes the handful named below.
type Parameter byte

const (
	ParamMACAddress      Parameter = 0x01
	ParamNetworkPANID    Parameter = 0x05
	ParamAPSExtPANID     Parameter = 0x08
	ParamChannelMask     Parameter = 0x0A
	ParamCurrentChannel  Parameter = 0x1C
	ParamPermitJoin      Parameter = 0x21
	ParamNetworkKey      Parameter = 0x18
	ParamOperatingPANID  Parameter = 0x07
	ParamWatchdogTTL     Parameter = 0x26
	ParamCoordinatorVers Parameter = 0x2B
)

// NetworkState mirrors the radio's network connectivity state machine.
type NetworkState byte

const (
	NetworkOffline   NetworkState = 0x00
	NetworkJoining   NetworkState = 0x01
	NetworkConnected NetworkState = 0x02
	NetworkLeaving   NetworkState = 0x03
)

// Driver is the byte-level collaborator the core consumes. The core
// never frames, CRCs, or opens the serial port itself; it only calls this
// interface and listens on the channel returned by Events.
type Driver interface {
	Open(ctx context.Context, baud int) error
	Close() error

	ReadParameter(ctx context.Context, id Parameter) ([]byte, error)
	WriteParameter(ctx context.Context, id Parameter, value []byte) error

	ReadFirmwareVersion(ctx context.Context) ([4]byte, error)

	ChangeNetworkState(ctx context.Context, state NetworkState) error

	// EnqueueSendDataRequest submits an APS request for transmission and
	// returns once the driver has accepted it onto its own TX queue (not
	// once any reply arrives — that correlation happens independently via
	// Events()).
	EnqueueSendDataRequest(ctx context.Context, req *ApsDataRequest) error

	// Events delivers DataIndicationEvent and GreenPowerIndicationEvent
	// values (and may deliver other, adapter-ignored event types) until
	// the driver is closed, at which point the channel is closed.
	Events() <-chan DriverEvent
}

// DriverEvent is the tagged union of unsolicited events a Driver may raise.
// It is intentionally an empty interface so new indication types can be added without breaking
// the Driver interface.
type DriverEvent interface{}

// DataIndicationEvent carries a ReceivedDataResponse up from the
// radio.
type DataIndicationEvent struct {
	Response ReceivedDataResponse
}

// GreenPowerIndicationEvent carries a raw Green Power data indication.
type GreenPowerIndicationEvent struct {
	SrcID            uint32
	SeqNr            byte
	CommandID        byte
	FrameCounter     uint32
	CommandFrameSize byte
	CommandFrame     []byte
}
