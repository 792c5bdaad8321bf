package modem

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// errorSleep is the pause after a failed read before trying again.
const errorSleep = 500 * time.Millisecond

// Reader drains modem-initiated output in the background and hands it to a
// passive sink. It never writes and never touches the PSM state. Each read is
// taken under the transport lock, so while a session transaction holds the
// lock the reader waits and the response goes to the session alone.
type Reader struct {
	t      Transport
	sink   Sink
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

func NewReader(t Transport, sink Sink, logger *log.Logger) *Reader {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if sink == nil {
		sink = LogSink(logger)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Reader{
		t:      t,
		sink:   sink,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start launches the read loop. Only the first call has an effect.
func (r *Reader) Start() {
	r.once.Do(func() {
		go r.readLoop()
	})
}

// Stop cancels the loop and waits for it to exit. The loop notices within one
// read timeout; closing the transport makes it exit at once.
func (r *Reader) Stop() {
	r.cancel()
	r.Wait()
}

// Wait blocks until the read loop has exited. It must only be called after
// Start.
func (r *Reader) Wait() {
	<-r.done
}

func (r *Reader) readLoop() {
	defer close(r.done)

	buf := make([]byte, ResponseBufferSize)
	for {
		if r.ctx.Err() != nil {
			return
		}

		r.t.Lock()
		n, err := r.t.Read(buf)
		r.t.Unlock()

		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			r.sink.Unsolicited(data)
		}

		if err != nil {
			if errors.Is(err, os.ErrClosed) || errors.Is(err, io.EOF) {
				r.logger.Println("Serial port closed")
				return
			}
			r.logger.Printf("Read error: %v", err)
			select {
			case <-r.ctx.Done():
				return
			case <-time.After(errorSleep):
			}
		}
	}
}
