package modem

// State is the session's belief about the modem's power saving mode.
type State int

const (
	// Awake is the power-on default: PSM off, DTR asserted.
	Awake State = iota
	// Asleep means PSM is on and DTR is deasserted between transactions.
	Asleep
)

func (s State) String() string {
	switch s {
	case Awake:
		return "awake"
	case Asleep:
		return "asleep"
	default:
		return "unknown"
	}
}
