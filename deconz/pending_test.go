package deconz

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exactly one of {resolve, reject-timeout, reject-status}
// occurs for a registered request. This covers the resolve path.
func TestPendingTableResolvesOnMatch(t *testing.T) {
	tbl := NewPendingTable(nil, zerolog.Nop())
	defer tbl.Close()

	tsn := byte(5)
	_, resolveCh, rejectCh := tbl.Register(0x1234, 0, 0x8002, &tsn, time.Second)

	resp := &ReceivedDataResponse{SrcAddr16: 0x1234, ProfileID: 0, ClusterID: 0x8002, Asdu: []byte{5, 0}}
	assert.True(t, tbl.Offer(resp, nil))

	select {
	case got := <-resolveCh:
		assert.Same(t, resp, got)
	case <-rejectCh:
		t.Fatal("unexpected reject")
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

// no pending-request entry survives more than
// timeout + one sweep interval after insertion.
func TestPendingTableTimesOut(t *testing.T) {
	tbl := NewPendingTable(nil, zerolog.Nop())
	defer tbl.Close()

	_, _, rejectCh := tbl.Register(0x1234, 0, 0x8002, nil, 50*time.Millisecond)

	select {
	case err := <-rejectCh:
		require.Equal(t, ErrTimeout, err)
	case <-time.After(pendingSweepInterval + 2*time.Second):
		t.Fatal("entry never timed out")
	}
}

func TestPendingTableNoMatchDoesNotResolve(t *testing.T) {
	tbl := NewPendingTable(nil, zerolog.Nop())
	defer tbl.Close()

	tsn := byte(9)
	tbl.Register(0x1234, 0, 0x8002, &tsn, time.Second)

	resp := &ReceivedDataResponse{SrcAddr16: 0x9999, ProfileID: 0, ClusterID: 0x8002, Asdu: []byte{9, 0}}
	assert.False(t, tbl.Offer(resp, nil))
}
