package deconz

import (
	"context"
	"time"
)

// coordinatorEndpoint1InClusters / OutClusters are the cluster sets the
// coordinator's endpoint 1 simple descriptor must advertise.
var (
	coordinatorEndpoint1InClusters  = []uint16{0x0000, 0x0006, 0x000A, 0x0019, 0x0501}
	coordinatorEndpoint1OutClusters = []uint16{0x0001, 0x0020, 0x0500, 0x0502}
)

// coordinatorEndpointDescriptor is the hard-coded 27-byte simple-descriptor
// payload written when the coordinator's endpoint 1 is missing one of the
// required clusters: a 1-byte descriptor length, followed by endpoint=1,
// profile=0x0104, device=0x0005, version=0, 5 input clusters, 4 output
// clusters, every multi-byte field little-endian (least-significant byte
// first on the wire).
var coordinatorEndpointDescriptor = buildCoordinatorEndpointDescriptor()

func buildCoordinatorEndpointDescriptor() []byte {
	body := make([]byte, 0, 26)
	body = append(body, 1)          // endpoint
	body = append(body, 0x04, 0x01) // profile 0x0104
	body = append(body, 0x05, 0x00) // device 0x0005
	body = append(body, 0)          // version
	body = append(body, byte(len(coordinatorEndpoint1InClusters)))
	for _, c := range coordinatorEndpoint1InClusters {
		body = append(body, byte(c), byte(c>>8))
	}
	body = append(body, byte(len(coordinatorEndpoint1OutClusters)))
	for _, c := range coordinatorEndpoint1OutClusters {
		body = append(body, byte(c), byte(c>>8))
	}

	buf := make([]byte, 0, 27)
	buf = append(buf, byte(len(body))) // descriptor length, excluding itself
	buf = append(buf, body...)
	return buf
}

// installCoordinatorEndpoint verifies the coordinator's endpoint 1
// advertises the required input/output clusters, writing the hard-coded
// descriptor and retrying if not. Self-recurses on read/write failure,
// retrying forever for this one startup step.
func (a *Adapter) installCoordinatorEndpoint(ctx context.Context) {
	select {
	case <-a.stopCh:
		return
	default:
	}

	sd, err := a.SimpleDescriptor(ctx, a.coordinatorNetworkAddress(), 1)
	if err != nil {
		a.retryInstallCoordinatorEndpoint(ctx)
		return
	}

	if hasAllClusters(sd.InClusters, coordinatorEndpoint1InClusters) &&
		hasAllClusters(sd.OutClusters, coordinatorEndpoint1OutClusters) {
		return
	}

	if err := a.writeEndpointDescriptor(ctx); err != nil {
		a.retryInstallCoordinatorEndpoint(ctx)
		return
	}

	a.installCoordinatorEndpoint(ctx)
}

func (a *Adapter) writeEndpointDescriptor(ctx context.Context) error {
	req := a.zdpRequest(a.coordinatorNetworkAddress(), 0x0005, coordinatorEndpointDescriptor)
	return a.queue.run(ctx, func(ctx context.Context) error {
		return a.driver.EnqueueSendDataRequest(ctx, req)
	})
}

func (a *Adapter) retryInstallCoordinatorEndpoint(ctx context.Context) {
	t := time.NewTimer(3 * time.Second)
	defer t.Stop()
	select {
	case <-t.C:
		a.installCoordinatorEndpoint(ctx)
	case <-a.stopCh:
	}
}

func (a *Adapter) coordinatorNetworkAddress() uint16 {
	return uint16(a.coordinatorNWK.Load())
}

func hasAllClusters(have, want []uint16) bool {
	set := make(map[uint16]struct{}, len(have))
	for _, c := range have {
		set[c] = struct{}{}
	}
	for _, c := range want {
		if _, ok := set[c]; !ok {
			return false
		}
	}
	return true
}
