package deconz

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors callers can match against with errors.Is / errors.Cause.
var (
	// ErrTimeout is returned when no correlated response arrived within
	// the request's timeout window.
	ErrTimeout = errors.New("waiting for response TIMEOUT")
	// ErrUnsupported is returned by operations this adapter never
	// implements: addInstallCode, reset, backup, restoreChannelInterPAN,
	// sendZclFrameInterPAN*, setChannelInterPAN, changeChannel,
	// setTransmitPower.
	ErrUnsupported = errors.New("operation not supported")
	// ErrNotConnected is returned when an operation is attempted before
	// Start has completed or after Stop.
	ErrNotConnected = errors.New("adapter not connected")
)

// StatusError wraps a non-zero ZDP status byte.
type StatusError struct {
	Status byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status: %d", e.Status)
}

// opError annotates an error with a descriptive string including the
// operation and target address it occurred against.
func opError(op string, addr16 uint16, err error) error {
	return errors.Wrapf(err, "deconz: %s(0x%04x)", op, addr16)
}

func unsupported(op string) error {
	return errors.Wrapf(ErrUnsupported, "deconz: %s", op)
}
