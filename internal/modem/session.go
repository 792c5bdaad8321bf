// Package modem implements the PSM-aware AT command session: the DTR line is
// raised before any byte goes to a sleeping modem and lowered again afterwards
// unless the command itself changed the power saving mode.
package modem

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"psm-modem-console/internal/atcmd"
)

// ResponseBufferSize is the most a single response read returns.
const ResponseBufferSize = 256

// Transport is the serial channel as the session sees it. The Locker grants
// exclusive use of the read side; the background reader holds it around each
// of its reads.
type Transport interface {
	sync.Locker
	io.ReadWriteCloser
	DTRSetter
}

// Session is the only writer of the PSM state and the only component that
// moves the power line in response to command traffic.
type Session struct {
	mu     sync.Mutex // serializes Send, and guards state and reader
	t      Transport
	line   *PowerLine
	state  State
	reader *Reader
	logger *log.Logger

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewSession starts in the Awake state and asserts the power line so the
// line and the state agree from the first transaction on.
func NewSession(t Transport, logger *log.Logger) (*Session, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Session{
		t:      t,
		line:   NewPowerLine(t, logger),
		state:  Awake,
		logger: logger,
	}
	if err := s.line.Assert(); err != nil {
		return nil, err
	}
	return s, nil
}

// State returns the current PSM state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Send runs one transaction: wake the line if asleep, write cmd, read one
// response, commit the state the command implies and put the line back to
// sleep if that state is Asleep.
//
// The returned bytes may be empty when the modem stayed silent for the read
// timeout; that is not an error. Write and read failures are returned but the
// state bookkeeping still completes. If the line cannot be raised the command
// is not written; if it cannot be lowered the state is left as it was.
func (s *Session) Send(cmd atcmd.Command) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	transient := false
	if prev == Asleep {
		if err := s.line.Assert(); err != nil {
			return nil, err
		}
		transient = true
	}

	transition := Classify(cmd)
	pending := transition.target(prev)

	// Own the read side before writing so the background reader cannot
	// swallow the response.
	s.t.Lock()
	resp, ioErr := s.exchange(cmd)
	s.t.Unlock()

	if transition != NoChange {
		s.logger.Printf("PSM %s -> %s (%s)", prev, pending, transition)
	}

	var lineErr error
	switch {
	case pending == Asleep:
		lineErr = s.line.Deassert()
	case transition == ExitsPSM && !transient:
		lineErr = s.line.Assert()
	}
	if lineErr == nil {
		s.state = pending
	}

	return resp, errors.Join(ioErr, lineErr)
}

// exchange writes cmd and performs exactly one read. The caller holds the
// transport lock.
func (s *Session) exchange(cmd atcmd.Command) ([]byte, error) {
	s.logger.Printf("TX: %q", cmd)
	if _, err := s.t.Write(cmd.Bytes()); err != nil {
		s.logger.Printf("Error sending %q: %v", cmd, err)
		return nil, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	buf := make([]byte, ResponseBufferSize)
	n, err := s.t.Read(buf)
	if n > 0 {
		s.logger.Printf("RX: %q", buf[:n])
	}
	if err != nil {
		s.logger.Printf("Error reading response to %q: %v", cmd, err)
		return buf[:n], err
	}
	return buf[:n], nil
}

// StartReader starts the background reader delivering unsolicited output to
// sink. It is a no-op if a reader is already running.
func (s *Session) StartReader(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reader != nil {
		return
	}
	s.reader = NewReader(s.t, sink, s.logger)
	s.reader.Start()
}

// Shutdown closes the channel and stops the background reader. Later calls
// return the first result.
func (s *Session) Shutdown() error {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		reader := s.reader
		s.mu.Unlock()

		if reader != nil {
			reader.cancel()
		}
		s.shutdownErr = s.t.Close()
		if reader != nil {
			reader.Wait()
		}
	})
	return s.shutdownErr
}
