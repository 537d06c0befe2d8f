// Package config handles runtime configuration loading and schema definition.
package config

import (
	"fmt"
	"time"

	"github.com/dayuer/midimapper-go/internal/lane"
)

// Config is the top-level midimapper configuration.
// Uses json tags in camelCase to match the JSON config file format.
type Config struct {
	Router    RouterConfig    `json:"router"`
	Keystroke KeystrokeConfig `json:"keystroke"`
	Monitor   MonitorConfig   `json:"monitor"`
	Redis     RedisConfig     `json:"redis"`
	Serial    SerialConfig    `json:"serial"`
}

// RouterConfig holds dispatch settings.
type RouterConfig struct {
	DefaultChannel int    `json:"defaultChannel"`          // 0-15, used by actions without a channel
	PollTimeoutMs  int    `json:"pollTimeoutMs,omitempty"` // bounded wait on the input port
	LongPressMs    int    `json:"longPressMs,omitempty"`   // tap / long-press threshold
	AsyncActions   bool   `json:"asyncActions,omitempty"`  // run actions on per-key lanes
	LaneMode       string `json:"laneMode,omitempty"`      // followup or interrupt, with asyncActions
	Mapping        string `json:"mapping,omitempty"`       // YAML action table; empty uses the built-in one
}

// KeystrokeConfig holds keystroke injection settings.
type KeystrokeConfig struct {
	Enabled    bool   `json:"enabled"`
	DeviceName string `json:"deviceName,omitempty"`
}

// MonitorConfig holds the websocket event feed settings.
type MonitorConfig struct {
	Addr string `json:"addr,omitempty"` // e.g. 127.0.0.1:18791; empty disables the feed
}

// RedisConfig holds the optional event publisher settings.
type RedisConfig struct {
	URL      string `json:"url,omitempty"` // redis://host:port; empty disables publishing
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
	Channel  string `json:"channel,omitempty"`
}

// SerialConfig holds serial transport settings.
type SerialConfig struct {
	Baud int `json:"baud,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Router: RouterConfig{
			DefaultChannel: 15,
			PollTimeoutMs:  100,
			LongPressMs:    500,
			LaneMode:       string(lane.ModeFollowup),
		},
		Keystroke: KeystrokeConfig{
			Enabled: true,
		},
		Redis: RedisConfig{
			Channel: "midimapper:events",
		},
		Serial: SerialConfig{
			Baud: 31250,
		},
	}
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	if c.Router.DefaultChannel < 0 || c.Router.DefaultChannel > 15 {
		return fmt.Errorf("router.defaultChannel %d out of range 0-15", c.Router.DefaultChannel)
	}
	if c.Router.PollTimeoutMs <= 0 {
		return fmt.Errorf("router.pollTimeoutMs must be positive")
	}
	if c.Router.LongPressMs <= 0 {
		return fmt.Errorf("router.longPressMs must be positive")
	}
	switch lane.Mode(c.Router.LaneMode) {
	case lane.ModeFollowup, lane.ModeInterrupt:
	default:
		return fmt.Errorf("router.laneMode %q must be %s or %s", c.Router.LaneMode, lane.ModeFollowup, lane.ModeInterrupt)
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive")
	}
	return nil
}

// PollTimeout returns the input wait as a duration.
func (r RouterConfig) PollTimeout() time.Duration {
	return time.Duration(r.PollTimeoutMs) * time.Millisecond
}

// LongPress returns the tap / long-press threshold as a duration.
func (r RouterConfig) LongPress() time.Duration {
	return time.Duration(r.LongPressMs) * time.Millisecond
}
