package atcmd

import (
	"errors"
	"fmt"
	"io"
	"log"
)

// Network holds the provisioning parameters for the data connection.
type Network struct {
	APN       string
	Server    string
	Port      int
	PIN       string
	Context   int
	Socket    int
	PSMRingMs int
}

// InitialSetup wakes the modem out of PSM, enables verbose errors, arms the
// ring indicator for PSM events and unlocks the SIM.
func InitialSetup(n Network) []Command {
	return []Command{
		AT(),
		ExitPSM(),
		CMEE(),
		PSMRI(n.PSMRingMs),
		CPIN(n.PIN),
	}
}

// OneTime configures the PDP context and the TCP socket. It only needs to run
// the first time a modem is provisioned.
func OneTime(n Network) []Command {
	return []Command{
		CGDCONT(n.Context, n.APN),
		SCFGEXT(n.Socket),
		SCFGEXT2(n.Socket),
		SCFG(n.Socket),
	}
}

func OpenSocket(n Network) []Command {
	return []Command{
		SGACT(n.Context, true),
		SD(n.Socket, n.Port, n.Server),
	}
}

func CloseSocket(n Network) []Command {
	return []Command{
		SH(n.Socket),
		SGACT(n.Context, false),
	}
}

// Sender issues one command and returns the raw response.
type Sender interface {
	Send(cmd Command) ([]byte, error)
}

// Run sends every command in order. A failed command does not stop the
// sequence; all failures are returned together.
func Run(s Sender, cmds []Command, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	var errs []error
	for i, cmd := range cmds {
		resp, err := s.Send(cmd)
		if err != nil {
			logger.Printf("Command %d/%d %q failed: %v", i+1, len(cmds), cmd.Text(), err)
			errs = append(errs, fmt.Errorf("%s: %w", cmd.Text(), err))
			continue
		}
		logger.Printf("Command %d/%d %q: %q", i+1, len(cmds), cmd.Text(), resp)
	}
	return errors.Join(errs...)
}
