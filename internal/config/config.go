package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main verso configuration
type Config struct {
	// Transport holds the WebSocket endpoint settings
	Transport TransportConfig `json:"transport" mapstructure:"transport"`

	// Session holds stream session defaults
	Session SessionConfig `json:"session" mapstructure:"session"`

	// Gateway configuration
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`

	// Keepalive configuration
	Keepalive KeepaliveConfig `json:"keepalive" mapstructure:"keepalive"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// TransportConfig holds WebSocket transport configuration
type TransportConfig struct {
	// URL overrides endpoint derivation from the session address. When
	// empty the endpoint is wss://<domain>:5443/ws.
	URL             string `json:"url" mapstructure:"url"`
	DialTimeoutSec  int    `json:"dial_timeout_sec" mapstructure:"dial_timeout_sec"`
	WriteTimeoutSec int    `json:"write_timeout_sec" mapstructure:"write_timeout_sec"`
}

// SessionConfig holds stream session defaults
type SessionConfig struct {
	// ReadTimeoutMs is the rolling inbound silence budget per session
	ReadTimeoutMs int `json:"read_timeout_ms" mapstructure:"read_timeout_ms"`
}

// GatewayConfig holds gateway server configuration
type GatewayConfig struct {
	Port            int    `json:"port" mapstructure:"port"`
	Host            string `json:"host" mapstructure:"host"`
	SharedSecret    string `json:"shared_secret" mapstructure:"shared_secret"`
	TickIntervalSec int    `json:"tick_interval_sec" mapstructure:"tick_interval_sec"`
}

// KeepaliveConfig holds the keepalive ping schedule
type KeepaliveConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Schedule string `json:"schedule" mapstructure:"schedule"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Transport: TransportConfig{
			DialTimeoutSec:  30,
			WriteTimeoutSec: 30,
		},
		Session: SessionConfig{
			ReadTimeoutMs: 300000,
		},
		Gateway: GatewayConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			SharedSecret:    "",
			TickIntervalSec: 30,
		},
		Keepalive: KeepaliveConfig{
			Enabled:  true,
			Schedule: "@every 1m",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		DataDir: "",
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	v := NewValidator()

	if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
		return fmt.Errorf("invalid gateway port: %d", c.Gateway.Port)
	}
	if c.Gateway.SharedSecret == "" {
		return fmt.Errorf("gateway shared secret is required")
	}

	if c.Session.ReadTimeoutMs <= 0 {
		return fmt.Errorf("session read timeout must be positive: %d", c.Session.ReadTimeoutMs)
	}

	if c.Transport.URL != "" {
		if err := v.ValidateEndpoint(c.Transport.URL); err != nil {
			return err
		}
	}

	if err := v.ValidateLogLevel(c.Logging.Level); err != nil {
		return err
	}

	if c.Keepalive.Enabled {
		if err := v.ValidateSchedule(c.Keepalive.Schedule); err != nil {
			return err
		}
	}

	return nil
}
