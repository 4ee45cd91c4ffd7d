package scripted

// State is the condition of a Stream at one poll.
type State int

const (
	// Open means the head chunk has bytes that can be read now.
	Open State = iota

	// BlockedOnPrompt means the head chunk is a prompt and no input is
	// pending.
	BlockedOnPrompt

	// WaitingOut means the head chunk's delay has not elapsed yet.
	WaitingOut

	// Terminated means the script is exhausted or the stream was closed.
	// It is final.
	Terminated
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case BlockedOnPrompt:
		return "blocked-on-prompt"
	case WaitingOut:
		return "waiting-out"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}
