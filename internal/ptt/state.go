package ptt

// State is the controller's recording state.
type State int32

const (
	// StateIdle means no session is pending or running.
	StateIdle State = iota
	// StateWarmingUp means a start was requested and the warm-up delay is running.
	StateWarmingUp
	// StateRecording means the capture goroutine is running.
	StateRecording
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWarmingUp:
		return "warming-up"
	case StateRecording:
		return "recording"
	default:
		return "unknown"
	}
}
