package deconz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// channel-mask synthesis is correct for every
// channel in 11..26 and returns 0 for any other input.
func TestChannelMaskRange(t *testing.T) {
	for ch := 11; ch <= 26; ch++ {
		assert.Equal(t, uint32(1)<<uint(ch), channelMask(byte(ch)), "channel %d", ch)
	}
	assert.Equal(t, uint32(0), channelMask(10))
	assert.Equal(t, uint32(0), channelMask(27))
	assert.Equal(t, uint32(0), channelMask(0))
}
