package deconz

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Adapter is the host-side protocol translation and request/response
// correlation engine: the ZDP dispatcher, inbound router, pending-request
// table, waitress, startup reconciler and coordinator endpoint installer
// composed into one object that owns the underlying Driver, its read
// loop, and transaction-correlation state.
type Adapter struct {
	driver Driver
	dir    DeviceDirectory
	sink   EventSink

	serialOpts  SerialPortOptions
	adapterOpts AdapterOptions
	networkOpts NetworkOptions

	txc          txCounter
	txOptions    TxOptions
	queue        *submitQueue
	pending      *PendingTable
	waitress     *Waitress
	metrics      *Metrics
	bus          *eventBus
	log          zerolog.Logger
	joinPermitted atomic.Bool

	coordinatorIEEE atomic.Uint64
	coordinatorNWK  atomic.Uint32 // stores uint16

	closeOnce sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// Option configures an Adapter at construction time.
type Option func(*Adapter)

// WithEventSink registers the sink that receives deviceJoined/
// deviceAnnounce/deviceLeave/zclPayload.
func WithEventSink(s EventSink) Option {
	return func(a *Adapter) { a.sink = s }
}

// WithDeviceDirectory supplies the IEEE->short-address resolver consulted
// by the inbound router.
func WithDeviceDirectory(d DeviceDirectory) Option {
	return func(a *Adapter) { a.dir = d }
}

// WithMetrics attaches a Metrics instance (see Metrics.Collectors for
// registering it with a prometheus.Registerer).
func WithMetrics(m *Metrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// WithLogger overrides the default zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// NewAdapter constructs an Adapter bound to driver. Start must be called
// before any dispatcher operation will complete.
func NewAdapter(driver Driver, serial SerialPortOptions, adapterOpts AdapterOptions, network NetworkOptions, opts ...Option) *Adapter {
	serial = defaultSerialOptions(serial)
	adapterOpts = defaultAdapterOptions(adapterOpts)

	a := &Adapter{
		driver:      driver,
		dir:         staticDirectory{},
		sink:        NoopEventSink{},
		serialOpts:  serial,
		adapterOpts: adapterOpts,
		networkOpts: network,
		txOptions:   txOptionsDefault(adapterOpts),
		log:         zerolog.Nop(),
		stopCh:      make(chan struct{}),
	}
	for _, o := range opts {
		o(a)
	}
	a.queue = newSubmitQueue(a.adapterOpts.Concurrent, a.adapterOpts.Delay, a.log)
	a.pending = NewPendingTable(a.metrics, a.log)
	a.waitress = NewWaitress(a.metrics)
	a.bus = newEventBus(a.sink, a.log)
	return a
}

// Start opens the driver, reconciles network parameters, launches
// the inbound-event consumer and the coordinator endpoint installer,
// and returns "resumed" on success.
func (a *Adapter) Start(ctx context.Context) (string, error) {
	if err := a.driver.Open(ctx, a.serialOpts.BaudRate); err != nil {
		return "", errors.Wrap(err, "deconz: open driver")
	}

	a.wg.Add(1)
	go a.inboundLoop()

	result, err := a.reconcileStartup(ctx)
	if err != nil {
		return "", err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		select {
		case <-time.After(3 * time.Second):
			a.installCoordinatorEndpoint(ctx)
		case <-a.stopCh:
		}
	}()

	return result, nil
}

// Stop closes the driver and stops all background work.
func (a *Adapter) Stop() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.stopCh)
		err = a.driver.Close()
		a.pending.Close()
		a.wg.Wait()
		a.bus.Close()
	})
	return err
}

// CoordinatorInfo is the result of GetCoordinator.
type CoordinatorInfo struct {
	NetworkAddress uint16
	ManufacturerID uint16
	IEEEAddr       uint64
	Endpoints      []byte
}

// coordinatorManufacturerID identifies this adapter's own coordinator
// node in NodeDescriptor-shaped responses.
const coordinatorManufacturerID uint16 = 0x1135

// GetCoordinator returns the coordinator's identity and fixed endpoint
// pair.
func (a *Adapter) GetCoordinator() CoordinatorInfo {
	return CoordinatorInfo{
		NetworkAddress: uint16(a.coordinatorNWK.Load()),
		ManufacturerID: coordinatorManufacturerID,
		IEEEAddr:       a.coordinatorIEEE.Load(),
		Endpoints:      []byte{1, GreenPowerEndpoint},
	}
}

// CoordinatorVersion decodes the driver's firmware version response.
type CoordinatorVersion struct {
	Revision         uint32
	HardwarePlatform string
	Major            byte
	Minor            byte
}

// GetCoordinatorVersion reads and decodes the firmware version.
func (a *Adapter) GetCoordinatorVersion(ctx context.Context) (CoordinatorVersion, error) {
	raw, err := a.driver.ReadFirmwareVersion(ctx)
	if err != nil {
		return CoordinatorVersion{}, errors.Wrap(err, "deconz: getCoordinatorVersion")
	}
	rev := uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16 | uint32(raw[3])<<24
	platform := "ConBee3"
	switch raw[1] {
	case 5:
		platform = "ConBee/RaspBee"
	case 7:
		platform = "ConBee2/RaspBee2"
	}
	return CoordinatorVersion{
		Revision:         rev,
		HardwarePlatform: platform,
		Minor:            raw[2],
		Major:            raw[3],
	}, nil
}

// NetworkParameters is the result of GetNetworkParameters.
type NetworkParameters struct {
	PANID         uint16
	ExtendedPANID [8]byte
	Channel       byte
}

// GetNetworkParameters reads the radio's current PAN ID, extended PAN ID
// and channel.
func (a *Adapter) GetNetworkParameters(ctx context.Context) (NetworkParameters, error) {
	panRaw, err := a.driver.ReadParameter(ctx, ParamNetworkPANID)
	if err != nil {
		return NetworkParameters{}, errors.Wrap(err, "deconz: read PAN_ID")
	}
	extRaw, err := a.driver.ReadParameter(ctx, ParamAPSExtPANID)
	if err != nil {
		return NetworkParameters{}, errors.Wrap(err, "deconz: read APS_EXT_PAN_ID")
	}
	chRaw, err := a.driver.ReadParameter(ctx, ParamCurrentChannel)
	if err != nil {
		return NetworkParameters{}, errors.Wrap(err, "deconz: read CHANNEL")
	}
	var np NetworkParameters
	np.PANID = u16le(panRaw)
	copy(np.ExtendedPANID[:], extRaw)
	if len(chRaw) > 0 {
		np.Channel = chRaw[0]
	}
	return np, nil
}

// SupportsBackup always returns false.
func (a *Adapter) SupportsBackup() bool { return false }

// WaitFor exposes the waitress directly to callers needing flexible,
// multi-field ZCL matching outside the synchronous send path.
func (a *Adapter) WaitFor(m WaitressMatcher, timeout time.Duration) (<-chan *ZclPayload, CancelFunc) {
	return a.waitress.WaitFor(m, timeout)
}

// The following operations are explicitly unsupported: transmit-power control, channel change after start,
// install-code provisioning, backup/restore, and the entire InterPAN and
// firmware-update paths.

func (a *Adapter) AddInstallCode(context.Context, uint64, []byte) error {
	return unsupported("addInstallCode")
}

func (a *Adapter) Reset(context.Context) error { return unsupported("reset") }

func (a *Adapter) Backup(context.Context) ([]byte, error) {
	return nil, unsupported("backup")
}

func (a *Adapter) RestoreChannelInterPAN(context.Context) error {
	return unsupported("restoreChannelInterPAN")
}

func (a *Adapter) SendZclFrameInterPANBroadcast(context.Context, []byte) error {
	return unsupported("sendZclFrameInterPANBroadcast")
}

func (a *Adapter) SendZclFrameInterPANToIeeeAddr(context.Context, uint64, []byte) error {
	return unsupported("sendZclFrameInterPANToIeeeAddr")
}

func (a *Adapter) SendZclFrameInterPANBroadcastWithResponse(context.Context, []byte) (*ZclPayload, error) {
	return nil, unsupported("sendZclFrameInterPANBroadcastWithResponse")
}

func (a *Adapter) SetChannelInterPAN(context.Context, byte) error {
	return unsupported("setChannelInterPAN")
}

func (a *Adapter) ChangeChannel(context.Context, byte) error {
	return unsupported("changeChannel")
}

func (a *Adapter) SetTransmitPower(context.Context, int) error {
	return unsupported("setTransmitPower")
}

func (a *Adapter) allocTSN() byte { return a.txc.next() }

func (a *Adapter) nextRequestID() byte { return a.txc.next() }

func (a *Adapter) logf(format string, args ...any) {
	a.log.Debug().Msg(fmt.Sprintf(format, args...))
}
