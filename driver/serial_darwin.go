//go:build darwin

package driver

import "github.com/jacobsa/go-serial/serial"

// OpenSerialPort opens dev at baud using jacobsa/go-serial.
func OpenSerialPort(dev string, baud int) (SerialPort, error) {
	return serial.Open(serial.OpenOptions{
		PortName:        dev,
		BaudRate:        uint(baud),
		DataBits:        8,
		StopBits:        1,
		ParityMode:      serial.PARITY_NONE,
		MinimumReadSize: 1,
	})
}
