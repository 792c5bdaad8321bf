package modem

import (
	"fmt"
	"io"
	"log"
)

// DTRSetter drives the Data Terminal Ready control bit.
type DTRSetter interface {
	SetDTR(dtr bool) error
}

// PowerLine is the DTR line seen as the modem's wake signal: asserted means
// the modem is reachable, deasserted lets it sleep. It keeps no state of its
// own; both operations are unconditional and idempotent.
type PowerLine struct {
	dtr    DTRSetter
	logger *log.Logger
}

func NewPowerLine(dtr DTRSetter, logger *log.Logger) *PowerLine {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &PowerLine{dtr: dtr, logger: logger}
}

func (p *PowerLine) Assert() error {
	if err := p.dtr.SetDTR(true); err != nil {
		return fmt.Errorf("%w: assert DTR: %v", ErrControlFailure, err)
	}
	p.logger.Println("DTR=1")
	return nil
}

func (p *PowerLine) Deassert() error {
	if err := p.dtr.SetDTR(false); err != nil {
		return fmt.Errorf("%w: deassert DTR: %v", ErrControlFailure, err)
	}
	p.logger.Println("DTR=0")
	return nil
}
