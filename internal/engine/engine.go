package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/forged/internal/agents"
	"github.com/fyrsmithlabs/forged/internal/compress"
	"github.com/fyrsmithlabs/forged/internal/generation"
	"github.com/fyrsmithlabs/forged/internal/inference"
)

var tracer = otel.Tracer("github.com/fyrsmithlabs/forged/internal/engine")

const (
	defaultMaxIterations = 2
	defaultTokenBudget   = 100_000
	defaultRunTimeout    = 10 * time.Minute
)

// Stage progress percentages reported to clients. Producing and reviewing
// repeat across iterations, so percent is a stage indicator, not a monotonic
// completion estimate.
const (
	percentCompressing = 5
	percentPlanning    = 15
	percentProducing   = 40
	percentReviewing   = 75
	percentIterating   = 80
	percentDone        = 100
)

// Config holds engine settings.
type Config struct {
	// MaxIterations is the number of review-triggered regeneration rounds
	// allowed after the first production pass. With N iterations a run
	// performs at most N+1 production rounds. Zero disables regeneration
	// entirely; a negative value selects the default.
	MaxIterations int

	// TokenBudget is the context size producers and planner receive.
	TokenBudget int

	// ProducerRoles lists producer roles in merge order. Empty uses the
	// default trio.
	ProducerRoles []string

	// RunTimeout bounds a whole run end to end.
	RunTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxIterations < 0 {
		c.MaxIterations = defaultMaxIterations
	}
	if c.TokenBudget <= 0 {
		c.TokenBudget = defaultTokenBudget
	}
	if len(c.ProducerRoles) == 0 {
		for _, r := range agents.DefaultProducerRoles() {
			c.ProducerRoles = append(c.ProducerRoles, string(r))
		}
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaultRunTimeout
	}
}

// Engine runs the generation pipeline. It is safe for concurrent use; each
// call to Generate is an independent run.
type Engine struct {
	cfg        Config
	client     inference.Client
	compressor *compress.Compressor
	planner    *agents.Planner
	producers  []*agents.Producer
	reviewer   *agents.Reviewer
	logger     *zap.Logger
}

// New creates an engine. The producer set is resolved here from the
// configured roles and stays fixed for the engine's lifetime. logger may be
// nil.
func New(cfg Config, client inference.Client, compressor *compress.Compressor, logger *zap.Logger) *Engine {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		cfg:        cfg,
		client:     client,
		compressor: compressor,
		planner:    agents.NewPlanner(client, logger),
		producers:  buildProducers(cfg.ProducerRoles, client, logger),
		reviewer:   agents.NewReviewer(client, logger),
		logger:     logger,
	}
}

func buildProducers(roles []string, client inference.Client, logger *zap.Logger) []*agents.Producer {
	producers := make([]*agents.Producer, 0, len(roles))
	for _, role := range roles {
		producers = append(producers, agents.NewProducer(agents.Role(role), client, logger))
	}
	return producers
}

// agentsFor returns the agent set for one run. A request naming a model gets
// agents bound to a gateway variant for that model; otherwise the engine's
// default set is reused.
func (e *Engine) agentsFor(model string) (*agents.Planner, []*agents.Producer, *agents.Reviewer) {
	if model == "" {
		return e.planner, e.producers, e.reviewer
	}
	sel, ok := e.client.(inference.ModelSelector)
	if !ok {
		e.logger.Warn("gateway does not support per-request models, using default",
			zap.String("model", model))
		return e.planner, e.producers, e.reviewer
	}
	client := sel.WithModel(model)
	return agents.NewPlanner(client, e.logger),
		buildProducers(e.cfg.ProducerRoles, client, e.logger),
		agents.NewReviewer(client, e.logger)
}

// Generate executes one run. onProgress may be nil; when set it receives one
// event per state transition, synchronously and in order. On failure the
// returned error is a StageError and no artifacts are returned.
func (e *Engine) Generate(ctx context.Context, req *generation.Request, onProgress generation.ProgressFunc) (*generation.Result, error) {
	runID := uuid.NewString()

	if err := req.Validate(); err != nil {
		return nil, &generation.StageError{RunID: runID, Stage: generation.StageFailed, Cause: err}
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.RunTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "engine.generate")
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.String("run.category", req.Category),
	)
	defer span.End()

	activeRuns.Inc()
	start := time.Now()
	defer func() {
		activeRuns.Dec()
		runDuration.Observe(time.Since(start).Seconds())
	}()

	planner, producers, reviewer := e.agentsFor(req.Model)

	logger := e.logger.With(zap.String("run_id", runID))
	logger.Info("run started",
		zap.Int("producers", len(producers)),
		zap.String("model", req.Model))

	emit := func(stage generation.Stage, percent, iteration int, message string, payload map[string]any) {
		if onProgress == nil {
			return
		}
		onProgress(generation.ProgressEvent{
			RunID:     runID,
			Stage:     stage,
			Percent:   percent,
			Message:   message,
			Iteration: iteration,
			Payload:   payload,
			Timestamp: time.Now(),
		})
	}

	fail := func(stage generation.Stage, iteration int, cause error) (*generation.Result, error) {
		logger.Error("run failed", zap.String("stage", string(stage)), zap.Error(cause))
		emit(generation.StageFailed, percentDone, iteration, cause.Error(), nil)
		runsTotal.WithLabelValues("failed").Inc()
		return nil, &generation.StageError{RunID: runID, Stage: stage, Cause: cause}
	}

	emit(generation.StageCompressing, percentCompressing, 0, "compressing context", nil)
	cc, err := e.compressor.Compress(req.Context(), e.cfg.TokenBudget)
	if err != nil {
		return fail(generation.StageCompressing, 0, err)
	}

	emit(generation.StagePlanning, percentPlanning, 0, "planning architecture", nil)
	plan, err := planner.Plan(ctx, cc)
	if err != nil {
		return fail(generation.StagePlanning, 0, err)
	}
	logger.Debug("plan ready",
		zap.Int("features", len(plan.Features)),
		zap.Strings("technologies", plan.Technologies))

	// The plan is fixed for the whole run; iterations regenerate files
	// against it with feedback folded into the context.
	iteration := 0
	var verdict generation.ReviewVerdict
	forced := false
	set := generation.NewArtifactSet()

	for {
		emit(generation.StageProducing, percentProducing, iteration, "generating files", nil)
		rounds, err := e.fanOut(ctx, producers, plan, cc)
		if err != nil {
			return fail(generation.StageProducing, iteration, err)
		}

		// Merge in producer order so same-named files resolve by the
		// configured role precedence regardless of goroutine timing.
		set = generation.NewArtifactSet()
		for _, artifacts := range rounds {
			set.Merge(artifacts)
		}

		emit(generation.StageReviewing, percentReviewing, iteration, "reviewing output",
			map[string]any{"files": set.Len()})
		verdict, err = reviewer.Review(ctx, set.List())
		if err != nil {
			return fail(generation.StageReviewing, iteration, err)
		}

		if verdict.Status == generation.ReviewApprove {
			break
		}
		if iteration >= e.cfg.MaxIterations {
			forced = true
			logger.Warn("iteration limit reached, returning best-effort output",
				zap.Int("iterations", iteration),
				zap.Strings("open_feedback", verdict.Feedback))
			break
		}

		iteration++
		emit(generation.StageIterating, percentIterating, iteration, "applying review feedback",
			map[string]any{"feedback": verdict.Feedback})
		cc = cc.WithTurn(generation.Turn{
			Role: generation.TurnRoleSystem,
			Text: "Reviewer feedback to address:\n- " + strings.Join(verdict.Feedback, "\n- "),
		})
	}

	emit(generation.StageDone, percentDone, iteration, "run complete",
		map[string]any{"files": set.Len(), "forced_accept": forced})
	runsTotal.WithLabelValues("success").Inc()
	runIterations.Observe(float64(iteration))
	logger.Info("run complete",
		zap.Int("files", set.Len()),
		zap.Int("iterations", iteration),
		zap.Bool("forced_accept", forced),
		zap.Duration("took", time.Since(start)))

	return &generation.Result{
		RunID:        runID,
		Files:        set.List(),
		Review:       verdict,
		ForcedAccept: forced,
		Iterations:   iteration,
	}, nil
}

// fanOut runs every producer concurrently against the same plan and context.
// The first failure cancels the rest and fails the round; results come back
// indexed by producer so merge order is stable.
func (e *Engine) fanOut(ctx context.Context, producers []*agents.Producer, plan *generation.ArchitecturePlan, cc *generation.ConversationContext) ([][]generation.Artifact, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([][]generation.Artifact, len(producers))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, p := range producers {
		wg.Add(1)
		go func(i int, p *agents.Producer) {
			defer wg.Done()

			artifacts, err := p.Produce(ctx, plan, cc)
			if err != nil {
				producerFailures.WithLabelValues(string(p.Role())).Inc()
				mu.Lock()
				if firstErr == nil {
					firstErr = &generation.ProducerError{Role: string(p.Role()), Cause: err}
					cancel()
				}
				mu.Unlock()
				return
			}
			results[i] = artifacts
		}(i, p)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
