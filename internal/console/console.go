// Package console is the interactive terminal menu over the modem session.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"psm-modem-console/internal/atcmd"
	"psm-modem-console/internal/modem"
)

type Session interface {
	Send(cmd atcmd.Command) ([]byte, error)
	State() modem.State
}

type Console struct {
	session Session
	network atcmd.Network
	in      *bufio.Scanner
	out     io.Writer
	logger  *log.Logger
}

func New(session Session, network atcmd.Network, in io.Reader, out io.Writer, logger *log.Logger) *Console {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Console{
		session: session,
		network: network,
		in:      bufio.NewScanner(in),
		out:     out,
		logger:  logger,
	}
}

// Run shows the menu until the user exits or input ends, then closes the
// socket and takes the modem out of power saving mode.
func (c *Console) Run() error {
	for {
		c.printMenu()
		choice, ok := c.readLine()
		if !ok || strings.EqualFold(choice, "s") {
			break
		}
		if err := c.Dispatch(choice); err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
	}
	return c.Leave()
}

// Leave runs the exit sequence. Both steps are attempted even if the first
// fails.
func (c *Console) Leave() error {
	return errors.Join(
		c.run(atcmd.CloseSocket(c.network)),
		c.send(atcmd.ExitPSM()),
	)
}

func (c *Console) printMenu() {
	fmt.Fprintf(c.out, "PSM state = %s\n", c.session.State())
	fmt.Fprintln(c.out, "------------------------------------")
	fmt.Fprintln(c.out, "1- Initial Setup")
	fmt.Fprintln(c.out, "2- Start TCP Connection")
	fmt.Fprintln(c.out, "3- Send Commands")
	fmt.Fprintln(c.out, "4- Enter PSM Mode")
	fmt.Fprintln(c.out, "5- Close TCP Connection")
	fmt.Fprintln(c.out, "6- Exit PSM Mode")
	fmt.Fprintln(c.out, "8- Restart Modem")
	fmt.Fprintln(c.out, "9- One Time Setup")
	fmt.Fprintln(c.out, "s/S- Exit.")
	fmt.Fprintln(c.out, "------------------------------------")
}

// Dispatch runs one menu choice. Unknown choices are ignored.
func (c *Console) Dispatch(choice string) error {
	switch choice {
	case "1":
		return c.run(atcmd.InitialSetup(c.network))
	case "2":
		if err := c.run(atcmd.OpenSocket(c.network)); err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
		return c.FreeCommands()
	case "3":
		return c.FreeCommands()
	case "4":
		return c.send(atcmd.EnterPSM())
	case "5":
		return c.run(atcmd.CloseSocket(c.network))
	case "6":
		return c.send(atcmd.ExitPSM())
	case "8":
		fmt.Fprintln(c.out, "Restarting...")
		return c.send(atcmd.Reboot())
	case "9":
		return c.run(atcmd.OneTime(c.network))
	default:
		c.logger.Printf("Unknown menu choice %q", choice)
		return nil
	}
}

// FreeCommands sends whatever the user types until "back" or end of input.
// Failures are reported and the prompt continues.
func (c *Console) FreeCommands() error {
	fmt.Fprintln(c.out, "Go Back to Menu Send: back")
	for {
		fmt.Fprint(c.out, "CODE:")
		line, ok := c.readLine()
		if !ok || strings.EqualFold(line, "back") {
			return nil
		}
		if line == "" {
			continue
		}
		if err := c.send(atcmd.New(line)); err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
	}
}

func (c *Console) send(cmd atcmd.Command) error {
	resp, err := c.session.Send(cmd)
	if len(resp) > 0 {
		fmt.Fprintf(c.out, "%s\n", resp)
	}
	return err
}

func (c *Console) run(cmds []atcmd.Command) error {
	return atcmd.Run(senderFunc(c.send), cmds, c.logger)
}

type senderFunc func(atcmd.Command) error

func (f senderFunc) Send(cmd atcmd.Command) ([]byte, error) {
	return nil, f(cmd)
}

func (c *Console) readLine() (string, bool) {
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}
