// Package config loads adapter configuration from file, environment and
// flags using viper, the way the rest of the corpus's CLI-driven repos
// wire their Config structs.
package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/samuel/go-deconz/deconz"
)

// Config is the top-level, viper-bound configuration.
type Config struct {
	SerialPort deconz.SerialPortOptions
	Adapter    deconz.AdapterOptions
	Network    deconz.NetworkOptions
}

// BindFlags registers the flag set consumed by Load onto fs, mirroring
// the default/flag-name conventions used across the pack's cobra-based
// CLIs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("serial.path", "", "serial device path (required)")
	fs.Int("serial.baud-rate", 38400, "serial baud rate")
	fs.Int("adapter.concurrent", 2, "maximum in-flight driver submissions")
	fs.Duration("adapter.delay", 0, "minimum pacing delay between submissions")
	fs.Uint16("network.pan-id", 0, "desired PAN ID (0 leaves it unmanaged)")
	fs.String("network.extended-pan-id", "", "desired extended PAN ID, 16 hex chars")
	fs.String("network.key", "", "desired network key, 32 hex chars")
	fs.IntSlice("network.channel-list", nil, "desired channel list, first element wins (11..26)")
}

// Load reads configuration from v (already wired to a config file,
// environment prefix and flag set via viper.BindPFlags) into a Config.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	cfg.SerialPort.Path = v.GetString("serial.path")
	if cfg.SerialPort.Path == "" {
		return Config{}, errors.New("config: serial.path is required")
	}
	cfg.SerialPort.BaudRate = v.GetInt("serial.baud-rate")

	cfg.Adapter.Concurrent = v.GetInt("adapter.concurrent")
	cfg.Adapter.Delay = v.GetDuration("adapter.delay")

	cfg.Network.PANID = uint16(v.GetUint32("network.pan-id"))

	if s := v.GetString("network.extended-pan-id"); s != "" {
		b, err := decodeFixedHex(s, 8)
		if err != nil {
			return Config{}, errors.Wrap(err, "config: network.extended-pan-id")
		}
		copy(cfg.Network.ExtendedPANID[:], b)
	}

	if s := v.GetString("network.key"); s != "" {
		b, err := decodeFixedHex(s, 16)
		if err != nil {
			return Config{}, errors.Wrap(err, "config: network.key")
		}
		copy(cfg.Network.NetworkKey[:], b)
	}

	for _, ch := range v.GetIntSlice("network.channel-list") {
		if ch < 0 || ch > 255 {
			return Config{}, errors.Errorf("config: channel %d out of byte range", ch)
		}
		cfg.Network.ChannelList = append(cfg.Network.ChannelList, byte(ch))
	}

	return cfg, nil
}

func decodeFixedHex(s string, n int) ([]byte, error) {
	s = strings.ReplaceAll(s, ":", "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) != n {
		return nil, fmt.Errorf("expected %d bytes, got %d", n, len(b))
	}
	return b, nil
}
