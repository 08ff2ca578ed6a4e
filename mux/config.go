package mux

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/mapstructure"
)

const (
	DefaultMaxHeaderSize     = 512 * 1024
	DefaultKeepAliveInterval = 30 * time.Second
	DefaultHighWaterMark     = 16 * 1024
	DefaultReadPieceSize     = 16 * 1024
)

// Config holds the settings of a Mux. Use DefaultConfig and modify the
// fields you need, or DecodeConfig to build one from a generic map.
type Config struct {
	// MaxOpen caps the number of open channels. Zero means unlimited.
	MaxOpen int `mapstructure:"max_open"`

	// MaxHeaderSize caps the bytes of a single header frame held in
	// memory. Zero means unlimited.
	MaxHeaderSize int `mapstructure:"max_header_size"`

	// HighChannels makes the allocator pick ids from [2^31, 2^32) instead of
	// [0, 2^31). The two ends of a carrier should use different halves.
	HighChannels bool `mapstructure:"high_channels"`

	// CoalesceWrites writes all frames of a scheduling pass to the carrier
	// in one go.
	CoalesceWrites bool `mapstructure:"coalesce_writes"`

	// KeepAliveInterval is the period of KEEP_ALIVE frames. Zero disables them.
	KeepAliveInterval time.Duration `mapstructure:"keep_alive_interval"`

	// HighWaterMark is the number of bytes the carrier outbox may hold
	// before the scheduler stops writing data.
	HighWaterMark int `mapstructure:"high_water_mark"`

	// ReadPieceSize is the largest piece of a frame read from the carrier
	// at once.
	ReadPieceSize int `mapstructure:"read_piece_size"`

	// PeerChannelDefaults are the options of channels opened by the peer.
	PeerChannelDefaults ChannelOptions `mapstructure:"peer_channel_defaults"`

	// ParseHandshakeData, if set, turns received handshake payloads into the
	// value handed to handshake handlers.
	ParseHandshakeData func([]byte) (any, error)

	Logger hclog.Logger
	Clock  clock.Clock
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		MaxHeaderSize:     DefaultMaxHeaderSize,
		KeepAliveInterval: DefaultKeepAliveInterval,
		HighWaterMark:     DefaultHighWaterMark,
		ReadPieceSize:     DefaultReadPieceSize,
		Logger:            hclog.NewNullLogger(),
		Clock:             clock.New(),
	}
}

// Validate checks the config for values that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.MaxOpen < 0:
		return errors.New("mux: max_open must not be negative")
	case c.MaxHeaderSize < 0:
		return errors.New("mux: max_header_size must not be negative")
	case c.KeepAliveInterval < 0:
		return errors.New("mux: keep_alive_interval must not be negative")
	case c.HighWaterMark < 0:
		return errors.New("mux: high_water_mark must not be negative")
	case c.ReadPieceSize < 0:
		return errors.New("mux: read_piece_size must not be negative")
	case c.PeerChannelDefaults.ReadHighWaterMark < 0:
		return errors.New("mux: peer_channel_defaults.read_high_water_mark must not be negative")
	}
	return nil
}

// withDefaults returns a copy of c with zero values that have a default
// filled in.
func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.HighWaterMark == 0 {
		cfg.HighWaterMark = DefaultHighWaterMark
	}
	if cfg.ReadPieceSize == 0 {
		cfg.ReadPieceSize = DefaultReadPieceSize
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return cfg
}

// DecodeConfig decodes raw on top of DefaultConfig. Durations may be given
// as strings such as "30s". Unknown keys are an error.
func DecodeConfig(raw map[string]interface{}) (*Config, error) {
	cfg := DefaultConfig()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("mux: decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
