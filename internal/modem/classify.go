package modem

import (
	"strings"

	"psm-modem-console/internal/atcmd"
)

// Transition is the PSM effect a command has once the modem accepts it.
type Transition int

const (
	NoChange Transition = iota
	EntersPSM
	ExitsPSM
)

func (t Transition) String() string {
	switch t {
	case EntersPSM:
		return "enters-psm"
	case ExitsPSM:
		return "exits-psm"
	default:
		return "no-change"
	}
}

var (
	enterPSMText = atcmd.EnterPSM().Text()
	exitPSMText  = atcmd.ExitPSM().Text()
)

// Classify matches the whole command line, case-insensitively, against the
// two PSM verbs. It has no side effects.
func Classify(cmd atcmd.Command) Transition {
	text := cmd.Text()
	switch {
	case strings.EqualFold(text, enterPSMText):
		return EntersPSM
	case strings.EqualFold(text, exitPSMText):
		return ExitsPSM
	default:
		return NoChange
	}
}

// target is the state the session should commit after cmd completes when
// the session was in current beforehand.
func (t Transition) target(current State) State {
	switch t {
	case EntersPSM:
		return Asleep
	case ExitsPSM:
		return Awake
	default:
		return current
	}
}
