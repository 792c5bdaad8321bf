// Package serialport owns the modem's character device: opening it with the
// fixed line discipline the modem firmware expects, byte-level read/write,
// and the DTR control line.
package serialport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// BaudRate is fixed; the modem firmware is configured for 115200-8N1.
	BaudRate = 115200

	// ReadTimeout bounds every Read. A read that sees no data within this
	// window returns zero bytes and no error.
	ReadTimeout = 1 * time.Second

	DefaultDevice = "/dev/ttyUSB0"
)

var (
	ErrDeviceUnavailable = errors.New("serial device unavailable")
	ErrIO                = errors.New("serial i/o failure")
)

// Port is the subset of serial.Port the channel relies on.
type Port interface {
	io.ReadWriteCloser
	SetDTR(dtr bool) error
	SetReadTimeout(t time.Duration) error
}

var openPort = func(path string, mode *serial.Mode) (Port, error) {
	return serial.Open(path, mode)
}

// Channel is the single exclusively-owned handle to the modem device.
//
// The embedded mutex arbitrates reads between the session and the background
// reader: whoever holds it owns the byte stream until it unlocks. Read and
// Write do not take it themselves.
type Channel struct {
	sync.Mutex

	path string
	port Port

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// Open opens path as 115200 baud, 8 data bits, no parity, 1 stop bit, raw
// mode (no echo, no signal characters, no software flow control, no output
// post-processing) with a 1s read timeout and no minimum byte count.
func Open(path string) (*Channel, error) {
	mode := &serial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := openPort(path, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, path, err)
	}

	if err := port.SetReadTimeout(ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("%w: %s: set read timeout: %v", ErrDeviceUnavailable, path, err)
	}

	return newChannel(path, port), nil
}

func newChannel(path string, port Port) *Channel {
	return &Channel{
		path:   path,
		port:   port,
		closed: make(chan struct{}),
	}
}

func (c *Channel) Path() string {
	return c.path
}

func (c *Channel) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Write sends b to the device and blocks until the OS has accepted it.
func (c *Channel) Write(b []byte) (int, error) {
	if c.isClosed() {
		return 0, fmt.Errorf("write %s: %w", c.path, os.ErrClosed)
	}
	n, err := c.port.Write(b)
	if err != nil {
		return n, fmt.Errorf("%w: write %s: %v", ErrIO, c.path, err)
	}
	return n, nil
}

// Read blocks for at most ReadTimeout. It returns as soon as any data arrives;
// an elapsed timeout is reported as (0, nil).
func (c *Channel) Read(buf []byte) (int, error) {
	if c.isClosed() {
		return 0, fmt.Errorf("read %s: %w", c.path, os.ErrClosed)
	}
	n, err := c.port.Read(buf)
	if err != nil {
		if c.isClosed() {
			return n, fmt.Errorf("read %s: %w", c.path, os.ErrClosed)
		}
		return n, fmt.Errorf("%w: read %s: %v", ErrIO, c.path, err)
	}
	return n, nil
}

// SetDTR drives the Data Terminal Ready line through the modem-control ioctl.
func (c *Channel) SetDTR(dtr bool) error {
	if c.isClosed() {
		return fmt.Errorf("set DTR on %s: %w", c.path, os.ErrClosed)
	}
	if err := c.port.SetDTR(dtr); err != nil {
		return fmt.Errorf("set DTR=%t on %s: %v", dtr, c.path, err)
	}
	return nil
}

// Close releases the device. Calling it again returns the first result.
// It does not take the read lock, so it also unblocks an in-flight Read.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.closeErr = c.port.Close()
	})
	return c.closeErr
}
