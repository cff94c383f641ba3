package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/forged/internal/generation"
	"github.com/fyrsmithlabs/forged/internal/inference"
)

// Producer generates the file artifacts for one specialist role.
type Producer struct {
	role         Role
	instructions string
	client       inference.Client
	logger       *zap.Logger
}

// NewProducer creates a producer for the given role. Instruction templates
// are resolved here, once, not per call. logger may be nil.
func NewProducer(role Role, client inference.Client, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Producer{
		role:         role,
		instructions: producerInstructions(role),
		client:       client,
		logger:       logger,
	}
}

// Role returns the producer's role.
func (p *Producer) Role() Role { return p.role }

// Produce generates this role's artifacts from the plan and context. A
// response yielding no parseable files is an error; the engine treats it like
// any other producer failure.
func (p *Producer) Produce(ctx context.Context, plan *generation.ArchitecturePlan, cc *generation.ConversationContext) ([]generation.Artifact, error) {
	input := renderPlan(plan) + "\n" + renderContext(cc)

	out, err := p.client.Invoke(ctx, string(p.role), p.instructions, input)
	if err != nil {
		return nil, err
	}

	artifacts := ParseArtifacts(out)
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("response contained no parseable files")
	}

	p.logger.Debug("producer finished",
		zap.String("role", string(p.role)),
		zap.Int("artifacts", len(artifacts)))
	return artifacts, nil
}
