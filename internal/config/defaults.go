package config

import (
	"time"

	"synolink/internal/protocol"
)

const (
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "console"
	DefaultPollInterval = 500 * time.Millisecond
)

// Default returns a config holding the built-in defaults.
func Default() Config {
	return Config{
		Synology: Synology{
			Host: protocol.DefaultSynologyHost,
			Port: protocol.DefaultSynologyPort,
		},
		Log: Log{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Search: Search{
			PollInterval: Duration{DefaultPollInterval},
		},
	}
}
