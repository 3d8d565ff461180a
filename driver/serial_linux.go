//go:build linux

package driver

import "github.com/samofly/serial"

// OpenSerialPort opens dev at baud using samofly/serial.
func OpenSerialPort(dev string, baud int) (SerialPort, error) {
	return serial.Open(dev, baud)
}
