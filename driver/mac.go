package driver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// generalArrayToString renders a byte slice as colon-separated hex,
// MSB-first when big is true.
func generalArrayToString(b []byte, big bool) string {
	if !big {
		rev := make([]byte, len(b))
		for i, v := range b {
			rev[len(b)-1-i] = v
		}
		b = rev
	}
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02x", v)
	}
	return strings.Join(parts, ":")
}

// macAddrArrayToString formats an 8-byte IEEE address as colon-separated
// hex, MSB first.
func macAddrArrayToString(mac [8]byte) string {
	return generalArrayToString(mac[:], true)
}

// macAddrStringToArray parses the inverse of macAddrArrayToString. Accepts
// both "aa:bb:...:hh" and bare "aabb...hh" forms.
func macAddrStringToArray(s string) ([8]byte, error) {
	var out [8]byte
	s = strings.ReplaceAll(s, ":", "")
	if len(s) != 16 {
		return out, errors.Errorf("driver: malformed mac address %q", s)
	}
	for i := 0; i < 8; i++ {
		v, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return out, errors.Wrapf(err, "driver: malformed mac address %q", s)
		}
		out[i] = byte(v)
	}
	return out, nil
}
