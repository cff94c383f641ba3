package generation

import "time"

// Stage identifies a pipeline state. Terminal stages are StageDone and
// StageFailed.
type Stage string

const (
	StageCompressing Stage = "compressing"
	StagePlanning    Stage = "planning"
	StageProducing   Stage = "producing"
	StageReviewing   Stage = "reviewing"
	StageIterating   Stage = "iterating"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// ProgressEvent reports one state transition of a run. Events are append-only
// and delivered in the order their originating transitions occur.
type ProgressEvent struct {
	RunID     string         `json:"run_id"`
	Stage     Stage          `json:"stage"`
	Percent   int            `json:"percent"`
	Message   string         `json:"message"`
	Iteration int            `json:"iteration"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ProgressFunc receives progress events during a run. Implementations must
// not block for long; events are emitted synchronously from the run loop.
type ProgressFunc func(ProgressEvent)
