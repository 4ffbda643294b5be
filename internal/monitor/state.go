package monitor

// State is the loop's current phase.
type State int

const (
	StateStartup State = iota
	StateIdle
	StateFetching
	StateProcessing
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateStartup:
		return "startup"
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateProcessing:
		return "processing"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}
