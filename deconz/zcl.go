package deconz

import (
	"time"

	"github.com/pkg/errors"
)

// ZclHeader is the result of parsing a ZCL frame header.
// FrameType/Direction are derived from the frame-control byte (bits 0-1
// and bit 3 respectively); ManufacturerSpecific is bit 2.
type ZclHeader struct {
	FrameType            byte
	ManufacturerSpecific bool
	Direction            byte
	DisableDefaultResp   bool
	ManufacturerCode     uint16
	TSN                  byte
	CommandIdentifier    byte
}

const (
	zclFrameTypeGlobal       byte = 0x00
	zclFrameTypeClusterSpec  byte = 0x01
	zclFlagManufacturer      byte = 0x04
	zclFlagDirection         byte = 0x08
	zclFlagDisableDefaultRsp byte = 0x10
)

// parseZclHeader parses the ZCL header of a payload.
func parseZclHeader(payload []byte) (*ZclHeader, error) {
	if len(payload) < 3 {
		return nil, errors.New("deconz: payload too short for ZCL header")
	}
	fc := payload[0]
	h := &ZclHeader{
		FrameType:            fc & 0x03,
		ManufacturerSpecific: fc&zclFlagManufacturer != 0,
		Direction:            (fc >> 3) & 0x01,
		DisableDefaultResp:   fc&zclFlagDisableDefaultRsp != 0,
	}
	i := 1
	if h.ManufacturerSpecific {
		if len(payload) < i+2+2 {
			return nil, errors.New("deconz: payload too short for manufacturer-specific ZCL header")
		}
		h.ManufacturerCode = u16le(payload[i : i+2])
		i += 2
	}
	if len(payload) < i+2 {
		return nil, errors.New("deconz: payload too short for ZCL tsn/command")
	}
	h.TSN = payload[i]
	h.CommandIdentifier = payload[i+1]
	return h, nil
}

// ZclPayload is delivered to the waitress and the external zclPayload sink.
type ZclPayload struct {
	Address              any // uint16 for NWK addressing, uint64 for IEEE
	Data                 []byte
	ClusterID            uint16
	Header               *ZclHeader
	Endpoint             byte
	LinkQuality          byte
	GroupID              uint16
	WasBroadcast         bool
	DestinationEndpoint  byte
}

// WaitressMatcher describes what an arriving ZclPayload must satisfy to
// resolve a waitress entry.
type WaitressMatcher struct {
	Address           any // nil means "don't care"
	Endpoint          byte
	TSN               *byte
	FrameType         byte
	ClusterID         uint16
	CommandIdentifier byte
	Direction         byte
}

// matches implements the waitress match rule.
func (m WaitressMatcher) matches(p *ZclPayload) bool {
	if p.Header == nil {
		return false
	}
	if m.Address != nil && m.Address != p.Address {
		return false
	}
	if m.Endpoint != p.Endpoint {
		return false
	}
	if m.TSN != nil && *m.TSN != p.Header.TSN {
		return false
	}
	return m.FrameType == p.Header.FrameType &&
		m.ClusterID == p.ClusterID &&
		m.CommandIdentifier == p.Header.CommandIdentifier &&
		m.Direction == p.Header.Direction
}

// SendZclOptions tailor sendZclFrameToEndpoint.
type SendZclOptions struct {
	// DisableResponse suppresses awaiting a correlated reply even when the
	// ZCL command declares one.
	DisableResponse bool
	// HasResponse tells the dispatcher the command being sent declares a
	// response; callers are expected to know this from their own ZCL
	// command table since no cluster library is wired in here.
	HasResponse bool
	// Timeout overrides the default wait-for-response window when non-zero.
	Timeout time.Duration
}
