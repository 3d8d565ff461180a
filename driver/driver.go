// Package driver implements deconz.Driver over a length-prefixed,
// checksummed serial frame protocol: one owner of the port, one read
// loop, and a sequence-number-keyed correlation table for in-flight
// requests.
package driver

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/samuel/go-deconz/deconz"
)

// SerialPort is the minimal surface the driver needs from an open serial
// connection; serial_linux.go and serial_darwin.go each provide one.
type SerialPort interface {
	io.ReadWriteCloser
}

// OpenFunc opens the named serial port at baud and returns a SerialPort.
type OpenFunc func(path string, baud int) (SerialPort, error)

// SerialDriver is the concrete deconz.Driver implementation over a real
// serial port. Not otherwise exported from the deconz package itself,
// which only depends on the Driver interface.
type SerialDriver struct {
	open OpenFunc
	path string

	mu   sync.Mutex
	port SerialPort
	rd   *bufio.Reader

	seq      byte
	pending  map[byte]chan *rxFrame
	events   chan deconz.DriverEvent
	closeCh  chan struct{}
	wg       sync.WaitGroup
	log      zerolog.Logger
}

// NewSerialDriver constructs a SerialDriver that will dial path via open
// when Open is called (the caller supplies open so Linux/Darwin builds
// can plug in their respective serial library).
func NewSerialDriver(path string, open OpenFunc, log zerolog.Logger) *SerialDriver {
	return &SerialDriver{
		open:    open,
		path:    path,
		pending: make(map[byte]chan *rxFrame),
		events:  make(chan deconz.DriverEvent, 256),
		closeCh: make(chan struct{}),
		log:     log.With().Str("component", "driver").Logger(),
	}
}

func (d *SerialDriver) Open(ctx context.Context, baud int) error {
	port, err := d.open(d.path, baud)
	if err != nil {
		return errors.Wrapf(err, "driver: open %s", d.path)
	}
	d.mu.Lock()
	d.port = port
	d.rd = bufio.NewReader(port)
	d.mu.Unlock()

	d.wg.Add(1)
	go d.readLoop()
	return nil
}

func (d *SerialDriver) Close() error {
	close(d.closeCh)
	d.mu.Lock()
	port := d.port
	d.mu.Unlock()
	var err error
	if port != nil {
		err = port.Close()
	}
	d.wg.Wait()
	close(d.events)
	return err
}

func (d *SerialDriver) nextSeq() byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	return d.seq
}

func (d *SerialDriver) registerSeq(seq byte) chan *rxFrame {
	ch := make(chan *rxFrame, 1)
	d.mu.Lock()
	d.pending[seq] = ch
	d.mu.Unlock()
	return ch
}

func (d *SerialDriver) deregisterSeq(seq byte) {
	d.mu.Lock()
	delete(d.pending, seq)
	d.mu.Unlock()
}

// request sends command+body, waits for the matching-seq reply, and
// returns its payload.
func (d *SerialDriver) request(ctx context.Context, command byte, body []byte) ([]byte, error) {
	seq := d.nextSeq()
	replyCh := d.registerSeq(seq)
	defer d.deregisterSeq(seq)

	d.mu.Lock()
	port := d.port
	d.mu.Unlock()
	if port == nil {
		return nil, deconz.ErrNotConnected
	}
	if err := writeFrame(port, command, seq, body); err != nil {
		return nil, errors.Wrap(err, "driver: write frame")
	}

	select {
	case f := <-replyCh:
		return f.Payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-d.closeCh:
		return nil, deconz.ErrNotConnected
	}
}

func (d *SerialDriver) ReadParameter(ctx context.Context, id deconz.Parameter) ([]byte, error) {
	payload, err := d.request(ctx, cmdReadParameter, []byte{byte(id)})
	if err != nil {
		return nil, err
	}
	if len(payload) < 1 {
		return nil, errors.New("driver: short read-parameter response")
	}
	return payload[1:], nil
}

func (d *SerialDriver) WriteParameter(ctx context.Context, id deconz.Parameter, value []byte) error {
	body := append([]byte{byte(id)}, value...)
	_, err := d.request(ctx, cmdWriteParameter, body)
	return err
}

func (d *SerialDriver) ReadFirmwareVersion(ctx context.Context) ([4]byte, error) {
	var out [4]byte
	payload, err := d.request(ctx, cmdVersion, nil)
	if err != nil {
		return out, err
	}
	if len(payload) < 4 {
		return out, errors.New("driver: short firmware-version response")
	}
	copy(out[:], payload[:4])
	return out, nil
}

func (d *SerialDriver) ChangeNetworkState(ctx context.Context, state deconz.NetworkState) error {
	_, err := d.request(ctx, cmdChangeNetworkState, []byte{byte(state)})
	return err
}

// EnqueueSendDataRequest encodes an ApsDataRequest onto the wire
// and waits only for the driver's own submit confirmation, not any
// eventual ZDP/ZCL reply — that correlation happens via Events().
func (d *SerialDriver) EnqueueSendDataRequest(ctx context.Context, req *deconz.ApsDataRequest) error {
	body := encodeApsDataRequest(req)
	_, err := d.request(ctx, cmdAPSDataRequest, body)
	return err
}

func (d *SerialDriver) Events() <-chan deconz.DriverEvent {
	return d.events
}

func encodeApsDataRequest(req *deconz.ApsDataRequest) []byte {
	buf := make([]byte, 0, 32+len(req.Asdu))
	buf = append(buf, req.RequestID, byte(req.DestAddrMode))
	switch req.DestAddrMode {
	case deconz.AddrModeGroup:
		buf = append(buf, byte(req.DestAddr16), byte(req.DestAddr16>>8))
	case deconz.AddrModeIEEE:
		buf = append(buf, req.DestAddr64[:]...)
		buf = append(buf, req.DestEndpoint)
	default:
		buf = append(buf, byte(req.DestAddr16), byte(req.DestAddr16>>8))
		buf = append(buf, req.DestEndpoint)
	}
	buf = append(buf, req.SrcEndpoint)
	buf = append(buf, byte(req.ProfileID), byte(req.ProfileID>>8))
	buf = append(buf, byte(req.ClusterID), byte(req.ClusterID>>8))
	buf = append(buf, byte(len(req.Asdu)), byte(len(req.Asdu)>>8))
	buf = append(buf, req.Asdu...)
	buf = append(buf, byte(req.TxOptions), req.Radius)
	return buf
}

// readLoop is the single reader goroutine: it demultiplexes replies to
// pending seq-keyed requests and turns unsolicited indications into
// deconz.DriverEvent values on d.events.
func (d *SerialDriver) readLoop() {
	defer d.wg.Done()
	for {
		f, err := readFrame(d.rd)
		if err != nil {
			select {
			case <-d.closeCh:
				return
			default:
			}
			d.log.Debug().Err(err).Msg("driver: read loop error")
			return
		}

		switch f.Command {
		case cmdAPSDataIndication:
			ev, err := decodeDataIndication(f.Payload)
			if err != nil {
				d.log.Debug().Err(err).Msg("driver: malformed data indication")
				continue
			}
			d.emit(ev)
		case cmdGreenPowerIndication:
			ev, err := decodeGreenPowerIndication(f.Payload)
			if err != nil {
				d.log.Debug().Err(err).Msg("driver: malformed green power indication")
				continue
			}
			d.emit(ev)
		default:
			d.mu.Lock()
			ch, ok := d.pending[f.Seq]
			d.mu.Unlock()
			if ok {
				ch <- f
			} else {
				d.log.Debug().Msg(fmt.Sprintf("driver: unmatched reply seq=%d command=0x%02x", f.Seq, f.Command))
			}
		}
	}
}

func (d *SerialDriver) emit(ev deconz.DriverEvent) {
	select {
	case d.events <- ev:
	default:
		d.log.Warn().Msg("driver: event channel full, dropping indication")
	}
}

func decodeDataIndication(payload []byte) (deconz.DriverEvent, error) {
	if len(payload) < 14 {
		return nil, errors.New("driver: short data indication")
	}
	off := 0
	srcAddrMode := deconz.AddrMode(payload[off])
	off++
	var resp deconz.ReceivedDataResponse
	resp.SrcAddrMode = srcAddrMode
	switch srcAddrMode {
	case deconz.AddrModeIEEE:
		copy(resp.SrcAddr64[:], payload[off:off+8])
		off += 8
	default:
		resp.SrcAddr16 = binary.LittleEndian.Uint16(payload[off : off+2])
		off += 2
	}
	resp.SrcEndpoint = payload[off]
	off++
	resp.DestAddrMode = deconz.AddrMode(payload[off])
	off++
	switch resp.DestAddrMode {
	case deconz.AddrModeGroup:
		resp.DestAddr16 = binary.LittleEndian.Uint16(payload[off : off+2])
		off += 2
	default:
		resp.DestAddr16 = binary.LittleEndian.Uint16(payload[off : off+2])
		off += 2
		resp.DestEndpoint = payload[off]
		off++
	}
	resp.ProfileID = binary.LittleEndian.Uint16(payload[off : off+2])
	off += 2
	resp.ClusterID = binary.LittleEndian.Uint16(payload[off : off+2])
	off += 2
	asduLen := int(binary.LittleEndian.Uint16(payload[off : off+2]))
	off += 2
	resp.Asdu = append([]byte(nil), payload[off:off+asduLen]...)
	off += asduLen
	if off < len(payload) {
		resp.LQI = payload[off]
		off++
	}
	if off < len(payload) {
		resp.RSSI = int8(payload[off])
	}
	return deconz.DataIndicationEvent{Response: resp}, nil
}

func decodeGreenPowerIndication(payload []byte) (deconz.DriverEvent, error) {
	if len(payload) < 11 {
		return nil, errors.New("driver: short green power indication")
	}
	srcID := binary.LittleEndian.Uint32(payload[0:4])
	seqNr := payload[4]
	commandID := payload[5]
	frameCounter := binary.LittleEndian.Uint32(payload[6:10])
	size := payload[10]
	frame := append([]byte(nil), payload[11:11+int(size)]...)
	return deconz.GreenPowerIndicationEvent{
		SrcID:            srcID,
		SeqNr:            seqNr,
		CommandID:        commandID,
		FrameCounter:     frameCounter,
		CommandFrameSize: size,
		CommandFrame:     frame,
	}, nil
}
