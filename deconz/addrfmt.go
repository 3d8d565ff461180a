package deconz

import "fmt"

// ieeeEventString renders an 8-byte IEEE address (little-endian on the
// wire) as the colon-less, 0x-prefixed, MSB-first hex string used by the
// deviceJoined/deviceAnnounce/deviceLeave events.
func ieeeEventString(ieee [8]byte) string {
	out := make([]byte, 0, 18)
	out = append(out, '0', 'x')
	for i := len(ieee) - 1; i >= 0; i-- {
		out = append(out, []byte(fmt.Sprintf("%02x", ieee[i]))...)
	}
	return string(out)
}

// generalArrayToString renders a byte slice as a colon-separated hex
// string. When big is true, byte 0 is the most significant byte of
// the address (Device_annce and friends carry IEEE addresses little-endian
// on the wire, so callers pass the already-reversed bytes).
func generalArrayToString(b []byte, big bool) string {
	if !big {
		rev := make([]byte, len(b))
		for i, v := range b {
			rev[len(b)-1-i] = v
		}
		b = rev
	}
	out := make([]byte, 0, len(b)*3)
	for i, v := range b {
		if i > 0 {
			out = append(out, ':')
		}
		out = append(out, []byte(fmt.Sprintf("%02x", v))...)
	}
	return string(out)
}
