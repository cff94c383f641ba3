package agents

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/forged/internal/generation"
	"github.com/fyrsmithlabs/forged/internal/inference"
)

// Planner turns a compressed conversation context into an architecture plan.
type Planner struct {
	client inference.Client
	logger *zap.Logger
}

// NewPlanner creates a planner. logger may be nil.
func NewPlanner(client inference.Client, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{client: client, logger: logger}
}

// Plan produces the architecture plan for the context's active request. An
// unparseable response gets exactly one reformat re-prompt; a second parse
// failure returns a PlanningError. Gateway failures propagate unchanged.
func (p *Planner) Plan(ctx context.Context, cc *generation.ConversationContext) (*generation.ArchitecturePlan, error) {
	input := renderContext(cc)

	out, err := p.client.Invoke(ctx, string(RolePlanner), plannerInstructions, input)
	if err != nil {
		return nil, err
	}

	plan, perr := ParsePlan(out)
	if perr == nil {
		return plan, nil
	}

	p.logger.Warn("plan unparseable, re-prompting once", zap.Error(perr))

	out, err = p.client.Invoke(ctx, string(RolePlanner), plannerReformatInstructions,
		input+"\n\nYour previous response:\n"+out)
	if err != nil {
		return nil, err
	}

	plan, perr = ParsePlan(out)
	if perr != nil {
		return nil, &generation.PlanningError{Cause: perr}
	}
	return plan, nil
}
