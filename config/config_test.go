package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresSerialPath(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	v := viper.New()
	require.NoError(t, v.BindPFlags(fs))

	_, err := Load(v)
	assert.Error(t, err)
}

func TestLoadAppliesDefaultsAndOverrides(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"--serial.path=/dev/ttyUSB0",
		"--adapter.delay=250ms",
		"--network.pan-id=4660",
		"--network.channel-list=15",
	}))

	v := viper.New()
	require.NoError(t, v.BindPFlags(fs))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", cfg.SerialPort.Path)
	assert.Equal(t, 38400, cfg.SerialPort.BaudRate)
	assert.Equal(t, 2, cfg.Adapter.Concurrent)
	assert.Equal(t, 250*time.Millisecond, cfg.Adapter.Delay)
	assert.Equal(t, uint16(4660), cfg.Network.PANID)
	require.Len(t, cfg.Network.ChannelList, 1)
	assert.Equal(t, byte(15), cfg.Network.ChannelList[0])
}
