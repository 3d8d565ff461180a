package driver

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Frame command bytes for the deCONZ serial protocol.
const (
	cmdReadParameter         byte = 0x0A
	cmdWriteParameter        byte = 0x0B
	cmdVersion               byte = 0x0D
	cmdAPSDataIndication     byte = 0x17
	cmdAPSDataRequest        byte = 0x12
	cmdAPSDataConfirm        byte = 0x04
	cmdDeviceState           byte = 0x07
	cmdChangeNetworkState    byte = 0x08
	cmdGreenPowerIndication  byte = 0x19
)

// writeFrame encodes a length-prefixed, checksummed frame onto w: a
// two-byte big-endian length covering command+seq+payload, the bytes
// themselves, then a one-byte arithmetic checksum such that the sum of
// every byte after the length field (inclusive of the checksum byte) is
// 0xFF.
func writeFrame(w io.Writer, command, seq byte, payload []byte) error {
	n := 2 + len(payload) // command + seq + payload
	buf := make([]byte, 2+n+1)
	binary.BigEndian.PutUint16(buf[0:2], uint16(n))
	buf[2] = command
	buf[3] = seq
	copy(buf[4:], payload)

	var checksum byte
	for _, b := range buf[2 : 2+n] {
		checksum += b
	}
	buf[len(buf)-1] = 0xFF - checksum

	_, err := w.Write(buf)
	return err
}

// rxFrame is a decoded inbound frame.
type rxFrame struct {
	Command byte
	Seq     byte
	Payload []byte
}

// readFrame reads and validates the next length-then-checksum frame from rd.
func readFrame(rd *bufio.Reader) (*rxFrame, error) {
	lenBuf := make([]byte, 2)
	if _, err := io.ReadFull(rd, lenBuf); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint16(lenBuf))
	if n < 2 {
		return nil, errors.New("driver: tiny frame received")
	}
	body := make([]byte, n+1) // +1 for checksum
	if _, err := io.ReadFull(rd, body); err != nil {
		return nil, err
	}
	var checksum byte
	for _, b := range body {
		checksum += b
	}
	if checksum != 0xFF {
		return nil, errors.New("driver: bad frame checksum")
	}
	body = body[:n]
	return &rxFrame{
		Command: body[0],
		Seq:     body[1],
		Payload: body[2:],
	}, nil
}
