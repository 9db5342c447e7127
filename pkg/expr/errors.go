package expr

import "fmt"

// EvaluationError is raised, as a panic, when an expression cannot be
// evaluated on a particular input. engine.Executor turns it back into an
// error.
type EvaluationError struct {
	msg string
}

func newEvaluationError(format string, args ...interface{}) *EvaluationError {
	return &EvaluationError{msg: fmt.Sprintf(format, args...)}
}

func (e *EvaluationError) Error() string { return "evaluation error: " + e.msg }
