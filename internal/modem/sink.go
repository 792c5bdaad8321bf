package modem

import (
	"io"
	"log"
)

// Sink receives modem-initiated output (ring indications, SRING, NO CARRIER)
// collected by the background reader. Implementations must not block for
// long; the reader does not read while a sink is running.
type Sink interface {
	Unsolicited(data []byte)
}

type SinkFunc func(data []byte)

func (f SinkFunc) Unsolicited(data []byte) {
	f(data)
}

// LogSink writes each chunk as a URC line.
func LogSink(logger *log.Logger) Sink {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return SinkFunc(func(data []byte) {
		logger.Printf("URC: %q", data)
	})
}

// MultiSink fans one chunk out to every non-nil sink, in order.
func MultiSink(sinks ...Sink) Sink {
	var active []Sink
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	return SinkFunc(func(data []byte) {
		for _, s := range active {
			s.Unsolicited(data)
		}
	})
}
