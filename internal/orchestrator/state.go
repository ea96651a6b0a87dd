package orchestrator

// State of one Answer call.
type State int

const (
	StateInitial State = iota
	StateAwaitingModel
	StateDirectAnswer
	StateToolRequested
	StateExecutingTools
	StateAwaitingFollowup
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateAwaitingModel:
		return "awaiting_model"
	case StateDirectAnswer:
		return "direct_answer"
	case StateToolRequested:
		return "tool_requested"
	case StateExecutingTools:
		return "executing_tools"
	case StateAwaitingFollowup:
		return "awaiting_followup"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
