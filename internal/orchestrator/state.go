package orchestrator

// State is a step of the run state machine.
type State string

const (
	StateValidating       State = "validating"
	StateStagingInput     State = "staging_input"
	StateAwaitingPipeline State = "awaiting_pipeline"
	StateSubmitting       State = "submitting"
	StateProcessing       State = "processing"
	StateRedistributing   State = "redistributing"
	StateCleaningUp       State = "cleaning_up"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// States lists every state in pipeline order.
func States() []State {
	return []State{
		StateValidating,
		StateStagingInput,
		StateAwaitingPipeline,
		StateSubmitting,
		StateProcessing,
		StateRedistributing,
		StateCleaningUp,
		StateDone,
		StateFailed,
	}
}

func (s State) String() string { return string(s) }

// Terminal reports whether no further transition follows.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
