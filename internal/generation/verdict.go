package generation

// ReviewStatus is the reviewer's decision.
type ReviewStatus string

const (
	// ReviewApprove accepts the merged artifact set as-is.
	ReviewApprove ReviewStatus = "approve"
	// ReviewIterate requests another production round with feedback applied.
	ReviewIterate ReviewStatus = "iterate"
)

// ReviewVerdict is the reviewer's structured judgement of a merged artifact
// set. QualityScore is informational only; control flow is driven solely by
// Status.
type ReviewVerdict struct {
	Status       ReviewStatus `json:"status"`
	Feedback     []string     `json:"feedback,omitempty"`
	QualityScore int          `json:"quality_score"`
}

// Result is the terminal payload of a successful run.
type Result struct {
	RunID string `json:"run_id"`

	// Files is the final merged artifact set, ordered by name.
	Files []Artifact `json:"files"`

	// Review is the last verdict observed before termination.
	Review ReviewVerdict `json:"review"`

	// ForcedAccept is set when the reviewer still wanted another round but
	// the iteration limit was reached and the run returned best-effort
	// output instead of looping.
	ForcedAccept bool `json:"forced_accept"`

	// Iterations is the number of review-triggered regeneration rounds
	// that ran (0 when the first round was approved).
	Iterations int `json:"iterations"`
}
