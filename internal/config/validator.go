package config

import (
	"fmt"
	"net/url"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/taylen/verso/pkg/jid"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAddress validates a stream session address
func (v *Validator) ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if _, err := jid.Parse(address); err != nil {
		return fmt.Errorf("invalid address %q: %w", address, err)
	}

	return nil
}

// ValidateEndpoint validates a WebSocket endpoint URL
func (v *Validator) ValidateEndpoint(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL: %w", err)
	}

	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid endpoint scheme %q (must be ws or wss)", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("endpoint is missing a host")
	}

	return nil
}

// ValidateLogLevel validates a log level name
func (v *Validator) ValidateLogLevel(level string) error {
	if level == "" {
		return fmt.Errorf("log level cannot be empty")
	}

	if _, err := zerolog.ParseLevel(level); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}

	return nil
}

// ValidateSchedule validates a cron schedule expression
func (v *Validator) ValidateSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("schedule cannot be empty")
	}

	parser := cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	return nil
}
