package deconz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitressMatchesAndResolves(t *testing.T) {
	w := NewWaitress(nil)
	tsn := byte(3)
	m := WaitressMatcher{Address: uint16(0x1234), Endpoint: 1, TSN: &tsn, ClusterID: 0x0006}

	ch, cancel := w.WaitFor(m, time.Second)
	defer cancel()

	p := &ZclPayload{
		Address:    uint16(0x1234),
		Endpoint:   1,
		ClusterID:  0x0006,
		Header:     &ZclHeader{TSN: 3},
	}
	assert.True(t, w.Offer(p))

	select {
	case got := <-ch:
		assert.Same(t, p, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for waitress match")
	}
}

func TestWaitressCancelRemovesEntry(t *testing.T) {
	w := NewWaitress(nil)
	m := WaitressMatcher{Address: uint16(0x1234), Endpoint: 1, ClusterID: 0x0006}

	_, cancel := w.WaitFor(m, time.Second)
	cancel()

	p := &ZclPayload{Address: uint16(0x1234), Endpoint: 1, ClusterID: 0x0006, Header: &ZclHeader{}}
	assert.False(t, w.Offer(p))
}

func TestWaitressNonMatchingPayloadIgnored(t *testing.T) {
	w := NewWaitress(nil)
	m := WaitressMatcher{Address: uint16(0x1234), Endpoint: 1, ClusterID: 0x0006}
	_, cancel := w.WaitFor(m, time.Second)
	defer cancel()

	p := &ZclPayload{Address: uint16(0x5555), Endpoint: 1, ClusterID: 0x0006, Header: &ZclHeader{}}
	assert.False(t, w.Offer(p))
}
