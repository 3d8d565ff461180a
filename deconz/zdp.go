package deconz

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// dispatch registers a pending entry for responseCluster on nwk before
// submitting req through the queue, then awaits the correlated reply.
func (a *Adapter) dispatch(ctx context.Context, op string, nwk uint16, responseCluster uint16, tsn byte, req *ApsDataRequest, timeout time.Duration) (*ReceivedDataResponse, error) {
	p, resolveCh, rejectCh := a.pending.Register(nwk, req.ProfileID, responseCluster, &tsn, timeout)

	err := a.queue.run(ctx, func(ctx context.Context) error {
		return a.driver.EnqueueSendDataRequest(ctx, req)
	})
	if err != nil {
		a.pending.Deregister(p)
		if a.metrics != nil {
			a.metrics.requestsRejected.WithLabelValues(op).Inc()
		}
		return nil, opError(op, nwk, err)
	}
	if a.metrics != nil {
		a.metrics.requestsSubmitted.WithLabelValues(op).Inc()
	}

	select {
	case resp := <-resolveCh:
		return resp, nil
	case err := <-rejectCh:
		return nil, opError(op, nwk, err)
	case <-ctx.Done():
		a.pending.Deregister(p)
		return nil, opError(op, nwk, ctx.Err())
	}
}

func (a *Adapter) zdpRequest(nwk uint16, clusterID uint16, asdu []byte) *ApsDataRequest {
	return &ApsDataRequest{
		RequestID:    a.nextRequestID(),
		DestAddrMode: AddrModeNWK,
		DestAddr16:   nwk,
		ProfileID:    profileZDP,
		ClusterID:    clusterID,
		Asdu:         asdu,
		TxOptions:    a.txOptions,
		Radius:       DefaultRadius,
	}
}

// PermitJoin opens (or closes, with seconds=0) the join window. Failures
// retry indefinitely rather than bounded, matching firmware behavior that
// never reports a terminal failure for this request.
func (a *Adapter) PermitJoin(ctx context.Context, seconds byte, nwkAddr uint16) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := a.permitJoinOnce(ctx, seconds, nwkAddr)
		if err == nil {
			return nil
		}
		a.log.Debug().Err(err).Msg("deconz: permitJoin failed, retrying")
	}
}

func (a *Adapter) permitJoinOnce(ctx context.Context, seconds byte, nwkAddr uint16) error {
	tsn := a.allocTSN()
	// tc_significance is hard-coded to 0.
	asdu := []byte{tsn, seconds, 0}
	req := a.zdpRequest(nwkAddr, 0x0036, asdu)
	if err := a.queue.run(ctx, func(ctx context.Context) error {
		return a.driver.EnqueueSendDataRequest(ctx, req)
	}); err != nil {
		return err
	}
	if err := a.driver.WriteParameter(ctx, ParamPermitJoin, []byte{seconds}); err != nil {
		return err
	}
	a.joinPermitted.Store(seconds > 0)
	return nil
}

// NodeType is the decoded descriptor type byte.
type NodeType string

const (
	NodeTypeCoordinator NodeType = "Coordinator"
	NodeTypeRouter      NodeType = "Router"
	NodeTypeEndDevice   NodeType = "EndDevice"
	NodeTypeUnknown     NodeType = "Unknown"
)

// NodeDescriptor is the decoded result of NodeDescriptor.
type NodeDescriptor struct {
	Type             NodeType
	ManufacturerCode uint16
}

// NodeDescriptor queries the node descriptor of nwk (ZDP 0x0002/0x8002).
func (a *Adapter) NodeDescriptor(ctx context.Context, nwk uint16) (NodeDescriptor, error) {
	tsn := a.allocTSN()
	asdu := make([]byte, 3)
	asdu[0] = tsn
	putU16le(asdu[1:3], nwk)
	req := a.zdpRequest(nwk, 0x0002, asdu)

	resp, err := a.dispatch(ctx, "nodeDescriptor", nwk, 0x8002, tsn, req, 0)
	if err != nil {
		return NodeDescriptor{}, err
	}
	payload := resp.Asdu
	if payload[1] != 0 {
		return NodeDescriptor{}, opError("nodeDescriptor", nwk, &StatusError{Status: payload[1]})
	}
	var t NodeType
	switch payload[4] & 0x07 {
	case 0:
		t = NodeTypeCoordinator
	case 1:
		t = NodeTypeRouter
	case 2:
		t = NodeTypeEndDevice
	default:
		t = NodeTypeUnknown
	}
	return NodeDescriptor{
		Type:             t,
		ManufacturerCode: u16le(payload[7:9]),
	}, nil
}

// ActiveEndpoints queries the active endpoint list of nwk (ZDP
// 0x0005/0x8005).
func (a *Adapter) ActiveEndpoints(ctx context.Context, nwk uint16) ([]byte, error) {
	tsn := a.allocTSN()
	asdu := make([]byte, 3)
	asdu[0] = tsn
	putU16le(asdu[1:3], nwk)
	req := a.zdpRequest(nwk, 0x0005, asdu)

	resp, err := a.dispatch(ctx, "activeEndpoints", nwk, 0x8005, tsn, req, 0)
	if err != nil {
		return nil, err
	}
	payload := resp.Asdu
	if payload[1] != 0 {
		return nil, opError("activeEndpoints", nwk, &StatusError{Status: payload[1]})
	}
	count := int(payload[4])
	return append([]byte(nil), payload[5:5+count]...), nil
}

// SimpleDescriptor is the decoded result of SimpleDescriptor.
type SimpleDescriptor struct {
	EndpointID   byte
	ProfileID    uint16
	DeviceID     uint16
	InClusters   []uint16
	OutClusters  []uint16
}

// SimpleDescriptor queries the simple descriptor of (nwk, endpoint) (ZDP
// 0x0004/0x8004).
func (a *Adapter) SimpleDescriptor(ctx context.Context, nwk uint16, endpoint byte) (SimpleDescriptor, error) {
	tsn := a.allocTSN()
	asdu := make([]byte, 4)
	asdu[0] = tsn
	putU16le(asdu[1:3], nwk)
	asdu[3] = endpoint
	req := a.zdpRequest(nwk, 0x0004, asdu)

	resp, err := a.dispatch(ctx, "simpleDescriptor", nwk, 0x8004, tsn, req, 0)
	if err != nil {
		return SimpleDescriptor{}, err
	}
	payload := resp.Asdu
	if payload[1] != 0 {
		return SimpleDescriptor{}, opError("simpleDescriptor", nwk, &StatusError{Status: payload[1]})
	}
	sd := SimpleDescriptor{
		EndpointID: payload[5],
		ProfileID:  u16le(payload[6:8]),
		DeviceID:   u16le(payload[8:10]),
	}
	inCount := int(payload[11])
	off := 12
	sd.InClusters = make([]uint16, inCount)
	for i := 0; i < inCount; i++ {
		sd.InClusters[i] = u16le(payload[off : off+2])
		off += 2
	}
	outCount := int(payload[off])
	off++
	sd.OutClusters = make([]uint16, outCount)
	for i := 0; i < outCount; i++ {
		sd.OutClusters[i] = u16le(payload[off : off+2])
		off += 2
	}
	return sd, nil
}

// NeighborRelationship is the decoded relationship field of an LQI entry.
type NeighborRelationship byte

// Neighbor is one LQI table entry.
type Neighbor struct {
	NWKAddr      uint16
	IEEEAddr     [8]byte
	Relationship NeighborRelationship
	Depth        byte
	LinkQuality  byte
}

// Lqi iterates the ZDP Mgmt_Lqi_req/rsp (0x0031/0x8031) until every
// fragment indexed by startIndex has been collected.
func (a *Adapter) Lqi(ctx context.Context, nwk uint16) ([]Neighbor, error) {
	var neighbors []Neighbor
	startIndex := byte(0)
	for {
		tsn := a.allocTSN()
		asdu := []byte{tsn, startIndex}
		req := a.zdpRequest(nwk, 0x0031, asdu)

		resp, err := a.dispatch(ctx, "lqi", nwk, 0x8031, tsn, req, 0)
		if err != nil {
			return nil, err
		}
		payload := resp.Asdu
		if payload[1] != 0 {
			return nil, opError("lqi", nwk, &StatusError{Status: payload[1]})
		}
		total := payload[2]
		// startIndex := payload[3] (already known, echoed back)
		count := int(payload[4])
		off := 5
		for i := 0; i < count; i++ {
			entry := payload[off : off+22]
			var ieee [8]byte
			copy(ieee[:], entry[8:16])
			neighbors = append(neighbors, Neighbor{
				NWKAddr:      u16le(entry[16:18]),
				IEEEAddr:     ieee,
				Relationship: NeighborRelationship((entry[18] >> 1) & 0x07),
				Depth:        entry[20],
				LinkQuality:  entry[21],
			})
			off += 22
		}
		if byte(len(neighbors)) >= total {
			return neighbors, nil
		}
		startIndex = byte(len(neighbors))
	}
}

// RouteStatus is the decoded status field of a routing-table entry.
type RouteStatus byte

const (
	RouteActive             RouteStatus = 0
	RouteDiscoveryUnderway  RouteStatus = 1
	RouteDiscoveryFailed    RouteStatus = 2
	RouteInactive           RouteStatus = 3
)

// Route is one routing-table entry.
type Route struct {
	Destination uint16
	Status      RouteStatus
	NextHop     uint16
}

// RoutingTable iterates the ZDP Mgmt_Rtg_req/rsp (0x0032/0x8032), same
// pagination shape as Lqi but with 5-byte entries.
func (a *Adapter) RoutingTable(ctx context.Context, nwk uint16) ([]Route, error) {
	var routes []Route
	startIndex := byte(0)
	for {
		tsn := a.allocTSN()
		asdu := []byte{tsn, startIndex}
		req := a.zdpRequest(nwk, 0x0032, asdu)

		resp, err := a.dispatch(ctx, "routingTable", nwk, 0x8032, tsn, req, 0)
		if err != nil {
			return nil, err
		}
		payload := resp.Asdu
		if payload[1] != 0 {
			return nil, opError("routingTable", nwk, &StatusError{Status: payload[1]})
		}
		total := payload[2]
		count := int(payload[4])
		off := 5
		for i := 0; i < count; i++ {
			entry := payload[off : off+5]
			routes = append(routes, Route{
				Destination: u16le(entry[0:2]),
				Status:      RouteStatus((entry[2] >> 5) & 0x07),
				NextHop:     u16le(entry[3:5]),
			})
			off += 5
		}
		if byte(len(routes)) >= total {
			return routes, nil
		}
		startIndex = byte(len(routes))
	}
}

// BindTarget selects whether Bind/Unbind target a group or an endpoint.
type BindTarget struct {
	Group        uint16 // used when EndpointID == 0; IEEEAddr is then ignored
	IEEEAddr     [8]byte
	EndpointID   byte // 0 means "group target"
}

func (t BindTarget) isEndpoint() bool { return t.EndpointID != 0 }

func bindPayload(tsn byte, srcIEEE [8]byte, srcEp byte, clusterID uint16, dest BindTarget) []byte {
	buf := make([]byte, 0, 1+8+4+10)
	buf = append(buf, tsn)
	buf = append(buf, srcIEEE[:]...)
	buf = append(buf, srcEp, byte(clusterID), byte(clusterID>>8))
	if dest.isEndpoint() {
		buf = append(buf, byte(AddrModeIEEE))
		buf = append(buf, dest.IEEEAddr[:]...)
		buf = append(buf, dest.EndpointID)
	} else {
		buf = append(buf, byte(AddrModeGroup))
		buf = append(buf, byte(dest.Group), byte(dest.Group>>8))
	}
	return buf
}

// Bind creates a binding from (srcIEEE, srcEndpoint, clusterID) to dest
// (ZDP 0x0021/0x8021). Always requests an APS ACK regardless of the
// adapter's default TX_OPTIONS.
func (a *Adapter) Bind(ctx context.Context, nwk uint16, srcIEEE [8]byte, srcEndpoint byte, clusterID uint16, dest BindTarget) error {
	return a.bindOp(ctx, "bind", nwk, 0x0021, 0x8021, srcIEEE, srcEndpoint, clusterID, dest)
}

// Unbind removes a binding previously created with Bind (ZDP
// 0x0022/0x8022).
func (a *Adapter) Unbind(ctx context.Context, nwk uint16, srcIEEE [8]byte, srcEndpoint byte, clusterID uint16, dest BindTarget) error {
	return a.bindOp(ctx, "unbind", nwk, 0x0022, 0x8022, srcIEEE, srcEndpoint, clusterID, dest)
}

func (a *Adapter) bindOp(ctx context.Context, op string, nwk uint16, clusterIn, clusterOut uint16, srcIEEE [8]byte, srcEndpoint byte, clusterID uint16, dest BindTarget) error {
	tsn := a.allocTSN()
	asdu := bindPayload(tsn, srcIEEE, srcEndpoint, clusterID, dest)
	req := a.zdpRequest(nwk, clusterIn, asdu)
	req.TxOptions = TxOptionsAPSAck

	resp, err := a.dispatch(ctx, op, nwk, clusterOut, tsn, req, 0)
	if err != nil {
		return err
	}
	if resp.Asdu[1] != 0 {
		return opError(op, nwk, &StatusError{Status: resp.Asdu[1]})
	}
	return nil
}

// RemoveDevice issues Mgmt_Leave for ieee behind nwk (ZDP 0x0034/0x8034).
// The outgoing payload is nine zero bytes rather than the device's real
// IEEE address, matching the firmware's own Mgmt_Leave_req encoding.
func (a *Adapter) RemoveDevice(ctx context.Context, nwk uint16, ieee [8]byte) error {
	tsn := a.allocTSN()
	asdu := make([]byte, 10)
	asdu[0] = tsn
	req := a.zdpRequest(nwk, 0x0034, asdu)

	resp, err := a.dispatch(ctx, "removeDevice", nwk, 0x8034, tsn, req, 0)
	if err != nil {
		return err
	}
	if resp.Asdu[1] != 0 {
		return opError("removeDevice", nwk, &StatusError{Status: resp.Asdu[1]})
	}
	ieeeStr := ieeeEventString(ieee)
	a.bus.DeviceLeave(DeviceLeaveEvent{NetworkAddress: nwk, IEEEAddr: ieeeStr})
	return nil
}

// SendZclFrameToEndpoint submits a pre-encoded ZCL frame to a specific
// endpoint and, if the command declares a response, awaits the correlated
// reply.
func (a *Adapter) SendZclFrameToEndpoint(ctx context.Context, nwk uint16, destEndpoint, srcEndpoint byte, clusterID uint16, frame []byte, opts SendZclOptions) (*ZclPayload, error) {
	hdr, err := parseZclHeader(frame)
	if err != nil {
		return nil, errors.Wrap(err, "deconz: sendZclFrameToEndpoint: malformed frame")
	}

	profileID := profileHA
	if srcEndpoint == GreenPowerEndpoint && destEndpoint == GreenPowerEndpoint {
		profileID = profileGreenPower
	}

	req := &ApsDataRequest{
		RequestID:    a.nextRequestID(),
		DestAddrMode: AddrModeNWK,
		DestAddr16:   nwk,
		DestEndpoint: destEndpoint,
		SrcEndpoint:  srcEndpoint,
		ProfileID:    profileID,
		ClusterID:    clusterID,
		Asdu:         frame,
		TxOptions:    a.txOptions,
		Radius:       DefaultRadius,
	}

	awaits := opts.HasResponse && !opts.DisableResponse && !hdr.DisableDefaultResp
	if !awaits {
		if err := a.queue.run(ctx, func(ctx context.Context) error {
			return a.driver.EnqueueSendDataRequest(ctx, req)
		}); err != nil {
			return nil, opError("sendZclFrameToEndpoint", nwk, err)
		}
		if a.metrics != nil {
			a.metrics.requestsSubmitted.WithLabelValues("sendZclFrameToEndpoint").Inc()
		}
		return nil, nil
	}

	timeout := opts.Timeout
	resp, err := a.dispatch(ctx, "sendZclFrameToEndpoint", nwk, clusterID, hdr.TSN, req, timeout)
	if err != nil {
		return nil, err
	}
	respHdr, _ := parseZclHeader(resp.Asdu)
	return a.toZclPayload(*resp, respHdr), nil
}

// SendZclFrameToGroup fires a pre-encoded ZCL frame at a group address,
// fire-and-forget.
func (a *Adapter) SendZclFrameToGroup(ctx context.Context, group uint16, srcEndpoint byte, clusterID uint16, frame []byte) error {
	req := &ApsDataRequest{
		RequestID:    a.nextRequestID(),
		DestAddrMode: AddrModeGroup,
		DestAddr16:   group,
		SrcEndpoint:  srcEndpoint,
		ProfileID:    profileHA,
		ClusterID:    clusterID,
		Asdu:         frame,
		TxOptions:    a.txOptions,
		Radius:       UnlimitedRadius,
	}
	if err := a.queue.run(ctx, func(ctx context.Context) error {
		return a.driver.EnqueueSendDataRequest(ctx, req)
	}); err != nil {
		return opError("sendZclFrameToGroup", group, err)
	}
	return nil
}

// SendZclFrameToAll broadcasts a pre-encoded ZCL frame, fire-and-forget.
func (a *Adapter) SendZclFrameToAll(ctx context.Context, srcEndpoint byte, clusterID uint16, frame []byte) error {
	req := &ApsDataRequest{
		RequestID:    a.nextRequestID(),
		DestAddrMode: AddrModeNWK,
		DestAddr16:   BroadcastAddr16,
		SrcEndpoint:  srcEndpoint,
		ProfileID:    profileHA,
		ClusterID:    clusterID,
		Asdu:         frame,
		TxOptions:    a.txOptions,
		Radius:       UnlimitedRadius,
	}
	if err := a.queue.run(ctx, func(ctx context.Context) error {
		return a.driver.EnqueueSendDataRequest(ctx, req)
	}); err != nil {
		return opError("sendZclFrameToAll", BroadcastAddr16, err)
	}
	return nil
}
