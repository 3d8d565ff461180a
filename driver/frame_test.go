package driver

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, cmdReadParameter, 5, []byte{0x01, 0x02, 0x03}))

	f, err := readFrame(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, cmdReadParameter, f.Command)
	assert.Equal(t, byte(5), f.Seq)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, f.Payload)
}

func TestReadFrameRejectsBadChecksum(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, cmdVersion, 1, nil))
	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xFF // corrupt checksum

	_, err := readFrame(bufio.NewReader(bytes.NewReader(raw)))
	assert.Error(t, err)
}
