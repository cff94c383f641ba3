package agents

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/forged/internal/generation"
	"github.com/fyrsmithlabs/forged/internal/inference"
)

// Reviewer judges a merged artifact set.
type Reviewer struct {
	client inference.Client
	logger *zap.Logger
}

// NewReviewer creates a reviewer. logger may be nil.
func NewReviewer(client inference.Client, logger *zap.Logger) *Reviewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reviewer{client: client, logger: logger}
}

// iterateFallback is the verdict used when the reviewer's response cannot be
// parsed. Degrading to another round is safer than approving sight unseen or
// failing a run whose artifacts may be fine.
var iterateFallback = generation.ReviewVerdict{
	Status: generation.ReviewIterate,
	Feedback: []string{
		"Review output was malformed. Regenerate with attention to cross-file consistency and completeness.",
	},
}

// Review scores the artifact set. Gateway failures propagate; an unparseable
// verdict degrades to iterate instead of failing the run.
func (r *Reviewer) Review(ctx context.Context, artifacts []generation.Artifact) (generation.ReviewVerdict, error) {
	out, err := r.client.Invoke(ctx, string(RoleReviewer), reviewerInstructions, renderArtifacts(artifacts))
	if err != nil {
		return generation.ReviewVerdict{}, err
	}

	v, perr := ParseVerdict(out)
	if perr != nil {
		r.logger.Warn("review verdict unparseable, degrading to iterate",
			zap.Error(&generation.ReviewParseError{Cause: perr}))
		return iterateFallback, nil
	}
	return v, nil
}
