package simba

import "github.com/lookatitude/simba/core"

// Fatal, pre-loop error codes: a run never starts if any of these apply.
const (
	ErrInvalidStudent      core.ErrorCode = "invalid_student_program"
	ErrInvalidTeacher      core.ErrorCode = "invalid_teacher_program"
	ErrEmptyTrainset       core.ErrorCode = "invalid_or_empty_trainset"
	ErrInvalidMetric       core.ErrorCode = "invalid_metric_function"
	ErrNoSuccessfulBootstr core.ErrorCode = "no_successful_bootstrap_candidates"
)

// NewFatalError wraps a pre-loop validation failure as a *core.Error tagged
// with op "simba.compile", so callers can branch on Code the same way they
// already do for the rest of the module's errors.
func NewFatalError(code core.ErrorCode, msg string, cause error) *core.Error {
	return core.NewError("simba.compile", code, msg, cause)
}
