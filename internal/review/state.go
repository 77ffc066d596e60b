package review

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is a phase of one review operation.
type State string

const (
	StateStarted    State = "STARTED"
	StateDetecting  State = "DETECTING"
	StateRewriting  State = "REWRITING"
	StatePersisting State = "PERSISTING"
	StateLogged     State = "LOGGED"
	StateFailed     State = "FAILED"
)

var transitions = map[State][]State{
	StateStarted:    {StateDetecting, StatePersisting, StateFailed},
	StateDetecting:  {StateRewriting, StateFailed},
	StateRewriting:  {StatePersisting, StateFailed},
	StatePersisting: {StateLogged, StateFailed},
}

// CanTransition reports whether an operation may move from one state to
// another. LOGGED and FAILED are terminal.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// operation tracks one Confirm, Correct or Undo call.
type operation struct {
	id     string
	kind   string
	state  State
	logger *zap.Logger
}

func newOperation(kind, question string, logger *zap.Logger) *operation {
	id := uuid.NewString()
	op := &operation{
		id:    id,
		kind:  kind,
		state: StateStarted,
		logger: logger.With(
			zap.String("op_id", id),
			zap.String("op", kind),
			zap.String("question", question)),
	}
	op.logger.Debug("operation started", zap.String("state", string(StateStarted)))
	return op
}

func (op *operation) advance(to State) error {
	if !CanTransition(op.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, op.state, to)
	}
	op.logger.Debug("state transition",
		zap.String("from", string(op.state)),
		zap.String("to", string(to)))
	op.state = to
	return nil
}

// fail moves the operation to FAILED and returns err for the caller.
func (op *operation) fail(err error) error {
	if op.state != StateFailed && CanTransition(op.state, StateFailed) {
		op.state = StateFailed
	}
	op.logger.Warn("operation failed", zap.Error(err))
	return err
}
