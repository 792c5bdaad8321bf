package modem

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// fakeTransport records every line, write and read in order. Reads return
// queued chunks; with nothing queued they wait idleRead and return (0, nil),
// the way the device behaves on a read timeout.
type fakeTransport struct {
	lock sync.Mutex

	mu         sync.Mutex
	dtr        bool
	events     []string
	dtrAtWrite []bool
	responses  [][]byte
	writeErr   error
	readErr    error
	dtrErr     error
	closed     bool
	idleRead   time.Duration

	// reply, when set, queues the modem's answer as the command is written.
	reply func(cmd string) string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{idleRead: time.Millisecond}
}

func (f *fakeTransport) Lock()   { f.lock.Lock() }
func (f *fakeTransport) Unlock() { f.lock.Unlock() }

func (f *fakeTransport) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, os.ErrClosed
	}
	f.dtrAtWrite = append(f.dtrAtWrite, f.dtr)
	f.events = append(f.events, "write:"+string(b))
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	if f.reply != nil {
		if r := f.reply(string(b)); r != "" {
			f.responses = append(f.responses, []byte(r))
		}
	}
	return len(b), nil
}

func (f *fakeTransport) Read(buf []byte) (int, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return 0, fmt.Errorf("read: %w", os.ErrClosed)
	}
	if f.readErr != nil {
		f.events = append(f.events, "read")
		err := f.readErr
		f.mu.Unlock()
		return 0, err
	}
	if len(f.responses) > 0 {
		n := copy(buf, f.responses[0])
		f.responses = f.responses[1:]
		f.events = append(f.events, "read")
		f.mu.Unlock()
		return n, nil
	}
	f.events = append(f.events, "read")
	idle := f.idleRead
	f.mu.Unlock()

	time.Sleep(idle)
	return 0, nil
}

func (f *fakeTransport) SetDTR(dtr bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dtrErr != nil {
		return f.dtrErr
	}
	f.dtr = dtr
	if dtr {
		f.events = append(f.events, "dtr=1")
	} else {
		f.events = append(f.events, "dtr=0")
	}
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) queue(chunks ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range chunks {
		f.responses = append(f.responses, []byte(c))
	}
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
	f.dtrAtWrite = nil
}

func (f *fakeTransport) snapshot() (events []string, dtr bool, dtrAtWrite []bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...), f.dtr, append([]bool(nil), f.dtrAtWrite...)
}

func (f *fakeTransport) setDTRErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dtrErr = err
}
