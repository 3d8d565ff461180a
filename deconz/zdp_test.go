package deconz_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuel/go-deconz/deconz"
	"github.com/samuel/go-deconz/deconztest"
)

func newTestAdapter(t *testing.T) (*deconz.Adapter, *deconztest.FakeDriver) {
	t.Helper()
	drv := deconztest.NewFakeDriver()
	a := deconz.NewAdapter(drv, deconz.SerialPortOptions{Path: "/dev/null"}, deconz.AdapterOptions{}, deconz.NetworkOptions{}, deconz.WithLogger(zerolog.Nop()))
	_, err := a.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Stop() })
	return a, drv
}

// S1: permitJoin submits clusterId=0x0036, payload=[tsn, seconds, 0], and
// writes PERMIT_JOIN; joinPermitted becomes true on success.
func TestPermitJoinSubmitsAndWritesParameter(t *testing.T) {
	a, drv := newTestAdapter(t)

	err := a.PermitJoin(context.Background(), 60, 0x1234)
	require.NoError(t, err)

	req := drv.LastSubmitted()
	require.NotNil(t, req)
	assert.EqualValues(t, 0x0036, req.ClusterID)
	assert.Equal(t, byte(60), req.Asdu[1])
	assert.Equal(t, byte(0), req.Asdu[2])

	v, err := drv.ReadParameter(context.Background(), deconz.ParamPermitJoin)
	require.NoError(t, err)
	assert.Equal(t, []byte{60}, v)
}

type recordingSink struct {
	deconz.NoopEventSink
	joined   chan deconz.DeviceJoinedEvent
	announce chan deconz.DeviceAnnounceEvent
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		joined:   make(chan deconz.DeviceJoinedEvent, 4),
		announce: make(chan deconz.DeviceAnnounceEvent, 4),
	}
}

func (s *recordingSink) DeviceJoined(e deconz.DeviceJoinedEvent)     { s.joined <- e }
func (s *recordingSink) DeviceAnnounce(e deconz.DeviceAnnounceEvent) { s.announce <- e }

// S2: a Device_annce indication with joinPermitted=true produces
// deviceJoined{networkAddress=0x1234, ieeeAddr="0x0807060504030201"}.
func TestDeviceAnnounceEmitsDeviceJoinedWhenPermitted(t *testing.T) {
	drv := deconztest.NewFakeDriver()
	sink := newRecordingSink()
	a := deconz.NewAdapter(drv, deconz.SerialPortOptions{Path: "/dev/null"}, deconz.AdapterOptions{}, deconz.NetworkOptions{}, deconz.WithEventSink(sink), deconz.WithLogger(zerolog.Nop()))
	_, err := a.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Stop() })

	require.NoError(t, a.PermitJoin(context.Background(), 60, 0xFFFC))

	payload := []byte{0x00, 0x34, 0x12, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x80}
	drv.Inject(deconz.DataIndicationEvent{Response: deconz.ReceivedDataResponse{
		SrcAddr16: 0x1234,
		ProfileID: 0,
		ClusterID: 0x0013,
		Asdu:      payload,
	}})

	select {
	case ev := <-sink.joined:
		assert.Equal(t, uint16(0x1234), ev.NetworkAddress)
		assert.Equal(t, "0x0807060504030201", ev.IEEEAddr)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for deviceJoined")
	}
}

// S3: LQI pagination across two response pages yields exactly 3 neighbors
// and stops once total is reached.
func TestLqiPagination(t *testing.T) {
	drv := deconztest.NewFakeDriver()
	a := deconz.NewAdapter(drv, deconz.SerialPortOptions{Path: "/dev/null"}, deconz.AdapterOptions{}, deconz.NetworkOptions{}, deconz.WithLogger(zerolog.Nop()))
	_, err := a.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Stop() })

	go func() {
		for i := 0; i < 2; i++ {
			req := waitForSubmit(drv, i+1)
			tsn := req.Asdu[0]
			startIndex := req.Asdu[1]

			var resp []byte
			if startIndex == 0 {
				resp = append(resp, tsn, 0x00, 3, 0, 2)
				resp = append(resp, makeLqiEntry(0x1111, 1)...)
				resp = append(resp, makeLqiEntry(0x2222, 2)...)
			} else {
				resp = append(resp, tsn, 0x00, 3, 2, 1)
				resp = append(resp, makeLqiEntry(0x3333, 3)...)
			}
			drv.Inject(deconz.DataIndicationEvent{Response: deconz.ReceivedDataResponse{
				SrcAddr16: 0x1234,
				ProfileID: 0,
				ClusterID: 0x8031,
				Asdu:      resp,
			}})
		}
	}()

	neighbors, err := a.Lqi(context.Background(), 0x1234)
	require.NoError(t, err)
	assert.Len(t, neighbors, 3)
}

func makeLqiEntry(nwk uint16, lq byte) []byte {
	entry := make([]byte, 22)
	entry[16] = byte(nwk)
	entry[17] = byte(nwk >> 8)
	entry[21] = lq
	return entry
}

func waitForSubmit(drv *deconztest.FakeDriver, count int) *deconz.ApsDataRequest {
	for {
		if len(drv.Submitted) >= count {
			return drv.Submitted[count-1]
		}
		time.Sleep(time.Millisecond)
	}
}

// S4: node descriptor decode extracts type and manufacturerCode.
func TestNodeDescriptorDecode(t *testing.T) {
	a, drv := newTestAdapter(t)

	go func() {
		req := waitForSubmit(drv, 1)
		tsn := req.Asdu[0]
		resp := []byte{tsn, 0x00, byte(req.Asdu[1]), byte(req.Asdu[2]), 0x01, 0x40, 0x8E, 0x35, 0x11}
		drv.Inject(deconz.DataIndicationEvent{Response: deconz.ReceivedDataResponse{
			SrcAddr16: 0x1234,
			ProfileID: 0,
			ClusterID: 0x8002,
			Asdu:      resp,
		}})
	}()

	nd, err := a.NodeDescriptor(context.Background(), 0x1234)
	require.NoError(t, err)
	assert.Equal(t, deconz.NodeTypeRouter, nd.Type)
	assert.EqualValues(t, 0x1135, nd.ManufacturerCode)
}

// S5: a bind response carrying a non-zero status byte rejects with
// "status: 133".
func TestBindFailureStatus(t *testing.T) {
	a, drv := newTestAdapter(t)

	go func() {
		req := waitForSubmit(drv, 1)
		tsn := req.Asdu[0]
		drv.Inject(deconz.DataIndicationEvent{Response: deconz.ReceivedDataResponse{
			SrcAddr16: 0x1234,
			ProfileID: 0,
			ClusterID: 0x8021,
			Asdu:      []byte{tsn, 0x85},
		}})
	}()

	var srcIEEE, dstIEEE [8]byte
	err := a.Bind(context.Background(), 0x1234, srcIEEE, 1, 0x0006, deconz.BindTarget{IEEEAddr: dstIEEE, EndpointID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status: 133")
}

// S6: a green-power indication yields a zclPayload on cluster 0x0021 with
// address=low 16 bits of srcId, endpoint=GP endpoint, wasBroadcast=true.
func TestGreenPowerIndicationEmitsZclPayload(t *testing.T) {
	drv := deconztest.NewFakeDriver()
	sink := newRecordingZclSink()
	a := deconz.NewAdapter(drv, deconz.SerialPortOptions{Path: "/dev/null"}, deconz.AdapterOptions{}, deconz.NetworkOptions{}, deconz.WithEventSink(sink), deconz.WithLogger(zerolog.Nop()))
	_, err := a.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Stop() })

	drv.Inject(deconz.GreenPowerIndicationEvent{
		SrcID:            0xDEADBEEF,
		SeqNr:            7,
		CommandID:        0x22,
		FrameCounter:     42,
		CommandFrameSize: 0,
		CommandFrame:     nil,
	})

	select {
	case p := <-sink.zcl:
		assert.EqualValues(t, 0x0021, p.ClusterID)
		assert.Equal(t, uint16(0xBEEF), p.Address)
		assert.Equal(t, deconz.GreenPowerEndpoint, p.Endpoint)
		assert.True(t, p.WasBroadcast)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for zclPayload")
	}
}

type recordingZclSink struct {
	deconz.NoopEventSink
	zcl chan deconz.ZclPayload
}

func newRecordingZclSink() *recordingZclSink {
	return &recordingZclSink{zcl: make(chan deconz.ZclPayload, 4)}
}

func (s *recordingZclSink) ZclPayload(p deconz.ZclPayload) { s.zcl <- p }

// reconcileStartup writes the channel-mask bit of the desired channel when
// the radio's current channel differs. Checked through the externally
// observable WriteParameter(CHANNEL_MASK) side effect for one channel;
// channelmask_test.go covers the full 11..26 range and the rejected inputs.
func TestChannelReconciliationWritesMask(t *testing.T) {
	drv := deconztest.NewFakeDriver()
	drv.SetParameter(deconz.ParamCurrentChannel, []byte{11})
	opts := deconz.NetworkOptions{ChannelList: []byte{15}}
	a := deconz.NewAdapter(drv, deconz.SerialPortOptions{Path: "/dev/null"}, deconz.AdapterOptions{}, opts, deconz.WithLogger(zerolog.Nop()))
	_, err := a.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Stop() })

	v, err := drv.ReadParameter(context.Background(), deconz.ParamChannelMask)
	require.NoError(t, err)
	mask := uint32(v[0]) | uint32(v[1])<<8 | uint32(v[2])<<16 | uint32(v[3])<<24
	assert.Equal(t, uint32(1)<<15, mask)
}
