// Package atcmd builds the AT command lines sent to the modem and the
// provisioning sequences made of them.
package atcmd

import (
	"fmt"
	"strings"
)

// Command is one AT command line. It is always terminated by a carriage return.
type Command string

// New returns line as a Command, appending the terminating '\r' when missing.
func New(line string) Command {
	if strings.HasSuffix(line, "\r") {
		return Command(line)
	}
	return Command(line + "\r")
}

func (c Command) String() string {
	return string(c)
}

func (c Command) Bytes() []byte {
	return []byte(c)
}

// Text is the command without its line terminator.
func (c Command) Text() string {
	return strings.TrimRight(string(c), "\r")
}

// Basic verbs.

func AT() Command {
	return New("AT")
}

// CFUN selects the phone functionality level: 1 is full functionality
// (PSM off), 5 enables power saving.
func CFUN(level int) Command {
	return New(fmt.Sprintf("AT+CFUN=%d", level))
}

func EnterPSM() Command {
	return CFUN(5)
}

func ExitPSM() Command {
	return CFUN(1)
}

// CMEE enables verbose error result codes.
func CMEE() Command {
	return New("AT+CMEE=2")
}

// PSMRI sets the ring indicator pulse, in milliseconds, raised on an event
// while the modem is in power saving mode.
func PSMRI(pulseMs int) Command {
	return New(fmt.Sprintf("AT#PSMRI=%d", pulseMs))
}

func CPIN(pin string) Command {
	return New("AT+CPIN=" + pin)
}

// Reboot restarts the modem immediately.
func Reboot() Command {
	return New("AT#ENHRST=1,0")
}

// Context and socket verbs.

// SGACT activates (on) or deactivates a PDP context.
func SGACT(context int, on bool) Command {
	state := 0
	if on {
		state = 1
	}
	return New(fmt.Sprintf("AT#SGACT=%d,%d", context, state))
}

// SD dials a TCP connection on socket to ip:port in command mode.
func SD(socket int, port int, ip string) Command {
	return New(fmt.Sprintf("AT#SD=%d,0,%d,\"%s\",0,0,1", socket, port, ip))
}

// SH closes socket.
func SH(socket int) Command {
	return New(fmt.Sprintf("AT#SH=%d", socket))
}

// CGDCONT defines PDP context with the "IP" protocol and apn. The spacing is
// the exact line the target firmware has been provisioned with.
func CGDCONT(context int, apn string) Command {
	return New(fmt.Sprintf("AT+CGDCONT=%d, \"IP\" ,\" %s \", \"\",0,0,0,0", context, apn))
}

// SCFGEXT sets SRING to report connId and received length, no keepalive.
func SCFGEXT(socket int) Command {
	return New(fmt.Sprintf("AT#SCFGEXT=%d,1,0,0,0,0", socket))
}

// SCFGEXT2 enables connId and closure cause on NO CARRIER.
func SCFGEXT2(socket int) Command {
	return New(fmt.Sprintf("AT#SCFGEXT2=%d,0,0,0,0,2", socket))
}

// SCFG binds socket to context 2 with a 1500 byte packet size, no inactivity
// timeout and a 60s connection timeout.
func SCFG(socket int) Command {
	return New(fmt.Sprintf("AT#SCFG=%d,2,1500,0,600,0", socket))
}
