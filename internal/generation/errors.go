package generation

import "fmt"

// PlanningError reports an unparseable or failed architecture plan after the
// single reformat attempt was exhausted. It terminates the run.
type PlanningError struct {
	Cause error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning failed: %v", e.Cause)
}

func (e *PlanningError) Unwrap() error { return e.Cause }

// ProducerError reports that one producer role failed after its retries were
// exhausted. It fails the whole fan-out round.
type ProducerError struct {
	Role  string
	Cause error
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("producer %q failed: %v", e.Role, e.Cause)
}

func (e *ProducerError) Unwrap() error { return e.Cause }

// ReviewParseError reports an unparseable review verdict. It is non-fatal:
// the reviewer degrades to an ITERATE verdict instead of failing the run.
type ReviewParseError struct {
	Cause error
}

func (e *ReviewParseError) Error() string {
	return fmt.Sprintf("review verdict unparseable: %v", e.Cause)
}

func (e *ReviewParseError) Unwrap() error { return e.Cause }

// StageError is the structured failure returned to callers: the stage that
// failed plus the originating cause. Callers receive either a complete
// artifact set or exactly one StageError, never a partial file set.
type StageError struct {
	RunID string
	Stage Stage
	Cause error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("run %s failed in stage %s: %v", e.RunID, e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error { return e.Cause }
