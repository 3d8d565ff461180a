package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// macAddrStringToArray ∘ macAddrArrayToString is
// identity on 8-byte arrays.
func TestMacAddrRoundTrip(t *testing.T) {
	cases := [][8]byte{
		{0x00, 0x0d, 0x6f, 0x00, 0x05, 0x1a, 0xb3, 0xc2},
		{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		{0, 0, 0, 0, 0, 0, 0, 0},
	}
	for _, mac := range cases {
		s := macAddrArrayToString(mac)
		back, err := macAddrStringToArray(s)
		require.NoError(t, err)
		assert.Equal(t, mac, back)
	}
}

func TestMacAddrStringToArrayRejectsMalformed(t *testing.T) {
	_, err := macAddrStringToArray("not-a-mac")
	assert.Error(t, err)
}
