package deconz

import "time"

// SerialPortOptions configures the serial transport.
type SerialPortOptions struct {
	Path     string
	BaudRate int // default 38400
}

// AdapterOptions configures the submit queue.
type AdapterOptions struct {
	Concurrent int           // default 2
	Delay      time.Duration // default 0; >= 200ms enables APS ACK by default
}

// NetworkOptions is the desired network configuration reconciled at
// startup.
type NetworkOptions struct {
	PANID         uint16
	ExtendedPANID [8]byte
	NetworkKey    [16]byte
	ChannelList   []byte // first element is the desired channel, 11..26
}

func (o NetworkOptions) desiredChannel() (byte, bool) {
	if len(o.ChannelList) == 0 {
		return 0, false
	}
	return o.ChannelList[0], true
}

func defaultSerialOptions(o SerialPortOptions) SerialPortOptions {
	if o.BaudRate == 0 {
		o.BaudRate = 38400
	}
	return o
}

func defaultAdapterOptions(o AdapterOptions) AdapterOptions {
	if o.Concurrent == 0 {
		o.Concurrent = 2
	}
	return o
}

// txOptionsDefault implements "APS ACK coupling": the global
// TX_OPTIONS value is recomputed once at construction based on delay>=200ms.
func txOptionsDefault(o AdapterOptions) TxOptions {
	if o.Delay >= 200*time.Millisecond {
		return TxOptionsAPSAck
	}
	return TxOptionsNone
}

// channelMask converts a channel number (11..26) to its channel-mask bit
// (channel k maps to bit 1<<k). Returns 0 for any channel outside that
// range.
func channelMask(channel byte) uint32 {
	if channel < 11 || channel > 26 {
		return 0
	}
	return uint32(1) << channel
}
