package deconz

import (
	"encoding/binary"
	"fmt"
)

// inboundLoop is the single consumer of a.driver.Events(). It normalizes
// addressing, tries to parse a ZCL header, offers the result to the
// pending table and the waitress, and — if nothing claims it — surfaces
// it to the EventSink as an unsolicited ZclPayload. ZDP Device_annce
// frames (cluster 0x0013) are recognized here rather than in a separate
// listener.
func (a *Adapter) inboundLoop() {
	defer a.wg.Done()
	for {
		select {
		case <-a.stopCh:
			return
		case ev, ok := <-a.driver.Events():
			if !ok {
				return
			}
			a.handleEvent(ev)
		}
	}
}

func (a *Adapter) handleEvent(ev DriverEvent) {
	switch e := ev.(type) {
	case DataIndicationEvent:
		a.handleDataIndication(e.Response)
	case GreenPowerIndicationEvent:
		a.handleGreenPowerIndication(e)
	default:
		a.log.Debug().Msg(fmt.Sprintf("deconz: unhandled driver event %T", ev))
	}
}

func (a *Adapter) handleDataIndication(resp ReceivedDataResponse) {
	if resp.SrcAddrMode == AddrModeIEEE {
		nwk, ok := a.dir.ResolveShortAddress(u64le(resp.SrcAddr64[:]))
		if !ok {
			a.log.Debug().Msg(fmt.Sprintf("deconz: dropping indication from unresolvable IEEE address %016x", u64le(resp.SrcAddr64[:])))
			return
		}
		resp.SrcAddrMode = AddrModeNWK
		resp.SrcAddr16 = nwk
	}

	if resp.ProfileID == profileZDP && resp.ClusterID == 0x0013 && len(resp.Asdu) >= 11 {
		a.handleDeviceAnnounce(resp)
	}

	var hdr *ZclHeader
	if resp.ProfileID != profileZDP {
		if h, err := parseZclHeader(resp.Asdu); err == nil {
			hdr = h
		}
	}

	if a.pending.Offer(&resp, hdr) {
		return
	}

	// point 5: a ZclPayload is only constructed for non-ZDP profiles.
	if resp.ProfileID == profileZDP {
		return
	}

	payload := a.toZclPayload(resp, hdr)
	if a.waitress.Offer(payload) {
		return
	}

	if a.metrics != nil {
		a.metrics.zclPayloads.Inc()
	}
	a.bus.ZclPayload(*payload)
}

// handleDeviceAnnounce decodes a ZDP Device_annce (0x0013) indication:
// tsn(1) nwkAddr(2 LE) ieeeAddr(8 LE) capability(1). ieeeAddr is formatted as colon-less hex with a 0x prefix, MSB first,
// which is the reverse of the little-endian wire order.
func (a *Adapter) handleDeviceAnnounce(resp ReceivedDataResponse) {
	payload := resp.Asdu
	nwk := binary.LittleEndian.Uint16(payload[1:3])
	var ieee [8]byte
	copy(ieee[:], payload[3:11])
	ieeeStr := ieeeEventString(ieee)

	ev := DeviceAnnounceEvent{NetworkAddress: nwk, IEEEAddr: ieeeStr}
	if a.joinPermitted.Load() {
		a.bus.DeviceJoined(DeviceJoinedEvent(ev))
		return
	}
	a.bus.DeviceAnnounce(ev)
}

func (a *Adapter) handleGreenPowerIndication(e GreenPowerIndicationEvent) {
	payload := &ZclPayload{
		Address:             uint16(e.SrcID),
		Data:                e.CommandFrame,
		ClusterID:           clusterGreenPower,
		Endpoint:            GreenPowerEndpoint,
		DestinationEndpoint: GreenPowerEndpoint,
		GroupID:             GreenPowerGroup,
		LinkQuality:         0xFF,
		WasBroadcast:        true,
		Header: &ZclHeader{
			FrameType:         zclFrameTypeClusterSpec,
			TSN:               e.SeqNr,
			CommandIdentifier: e.CommandID,
		},
	}
	if a.waitress.Offer(payload) {
		return
	}
	if a.metrics != nil {
		a.metrics.zclPayloads.Inc()
	}
	a.bus.ZclPayload(*payload)
}

// toZclPayload builds the ZclPayload surfaced to the waitress and the
// external sink point 5.
func (a *Adapter) toZclPayload(resp ReceivedDataResponse, hdr *ZclHeader) *ZclPayload {
	var address any = resp.SrcAddr16
	if resp.DestAddrMode == AddrModeIEEE {
		address = u64le(resp.SrcAddr64[:])
	}
	var groupID uint16
	if resp.DestAddrMode == AddrModeGroup {
		groupID = resp.DestAddr16
	}
	return &ZclPayload{
		Address:             address,
		Data:                resp.Asdu,
		ClusterID:           resp.ClusterID,
		Header:              hdr,
		Endpoint:            resp.SrcEndpoint,
		LinkQuality:         resp.LQI,
		GroupID:             groupID,
		DestinationEndpoint: resp.DestEndpoint,
		WasBroadcast:        resp.DestAddrMode == AddrModeGroup || resp.DestAddrMode == AddrModeBroadcast,
	}
}
