package pipeline

// State is the lifecycle phase of an Orchestrator.
type State int32

const (
	// StateInit covers template parsing, partitioning and store setup.
	StateInit State = iota
	// StateRunning means producers and the consumer are active.
	StateRunning
	// StateDraining means all producers returned and the queue is stopped.
	StateDraining
	// StateDone means the store is closed and the report is final.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRunning:
		return "RUNNING"
	case StateDraining:
		return "DRAINING"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}
