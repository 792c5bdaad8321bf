// Package daemon holds the startup and shutdown plumbing shared by the
// commands: logger setup, opening the modem session and waiting for a
// termination signal.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"psm-modem-console/internal/config"
	"psm-modem-console/internal/modem"
	"psm-modem-console/internal/serialport"
)

// ShutdownSignals end every long-running command.
var ShutdownSignals = []os.Signal{unix.SIGINT, unix.SIGTERM, unix.SIGHUP}

func NewLogger(suppressTimestamp bool) *log.Logger {
	logger := log.New(os.Stdout, "", log.LstdFlags)
	if suppressTimestamp {
		logger.SetFlags(0)
	}
	return logger
}

// LoadConfig reads filename, or returns the defaults when it is empty. A
// non-empty device overrides the configured one.
func LoadConfig(filename, device string) (*config.Config, error) {
	cfg := config.Default()
	if filename != "" {
		var err error
		if cfg, err = config.Load(filename); err != nil {
			return nil, err
		}
	}
	if device != "" {
		cfg.Serial.Device = device
	}
	return cfg, nil
}

// OpenSession opens the serial device and starts a session on it.
func OpenSession(device string, logger *log.Logger) (*modem.Session, error) {
	ch, err := serialport.Open(device)
	if err != nil {
		if errors.Is(err, serialport.ErrDeviceUnavailable) {
			return nil, fmt.Errorf("error in opening %s: %w", device, err)
		}
		return nil, err
	}
	logger.Printf("%s opened successfully", device)

	session, err := modem.NewSession(ch, logger)
	if err != nil {
		ch.Close()
		return nil, err
	}
	return session, nil
}

// SignalContext is cancelled on the first shutdown signal.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, ShutdownSignals...)
}
