package mux

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeConfig(t *testing.T) {
	cfg, err := DecodeConfig(map[string]interface{}{
		"max_open":            10,
		"keep_alive_interval": "5s",
		"high_channels":       true,
		"peer_channel_defaults": map[string]interface{}{
			"max_write_size":       1024,
			"check_read_overflow":  false,
			"read_high_water_mark": 4096,
		},
	})
	require.NoError(t, err)
	require.Equal(t, 10, cfg.MaxOpen)
	require.Equal(t, 5*time.Second, cfg.KeepAliveInterval)
	require.True(t, cfg.HighChannels)
	require.Equal(t, DefaultMaxHeaderSize, cfg.MaxHeaderSize)
	require.Equal(t, uint32(1024), cfg.PeerChannelDefaults.MaxWriteSize)
	require.NotNil(t, cfg.PeerChannelDefaults.CheckReadOverflow)
	require.False(t, *cfg.PeerChannelDefaults.CheckReadOverflow)
	require.Equal(t, 4096, cfg.PeerChannelDefaults.ReadHighWaterMark)
}

func TestDecodeConfigErrors(t *testing.T) {
	_, err := DecodeConfig(map[string]interface{}{"max_opne": 1})
	require.Error(t, err)

	_, err = DecodeConfig(map[string]interface{}{"max_header_size": -1})
	require.Error(t, err)

	_, err = DecodeConfig(map[string]interface{}{"keep_alive_interval": "soon"})
	require.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 512*1024, cfg.MaxHeaderSize)
	require.Equal(t, 30*time.Second, cfg.KeepAliveInterval)
	require.Equal(t, 16*1024, cfg.HighWaterMark)
}
