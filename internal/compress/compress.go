package compress

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/forged/internal/generation"
)

const (
	defaultCapacityFraction = 0.85
	defaultKeepRecentTurns  = 4
	defaultSummaryMaxChars  = 600

	// excerptHeadLines is how many leading lines of a file survive
	// truncation verbatim; they usually hold the imports and the file's
	// identity.
	excerptHeadLines = 10

	truncationMarker = "... (truncated)"
)

// Config holds compressor settings.
type Config struct {
	// CapacityFraction is the fill ratio below which a context passes
	// through unchanged.
	CapacityFraction float64

	// KeepRecentTurns is the number of most recent turns kept verbatim
	// when older history is dropped.
	KeepRecentTurns int

	// TokenizerModel selects the tokenizer used for estimation.
	TokenizerModel string

	// SummaryMaxChars bounds the synthetic summary turn.
	SummaryMaxChars int
}

func (c *Config) applyDefaults() {
	if c.CapacityFraction <= 0 || c.CapacityFraction > 1 {
		c.CapacityFraction = defaultCapacityFraction
	}
	if c.KeepRecentTurns < 1 {
		c.KeepRecentTurns = defaultKeepRecentTurns
	}
	if c.TokenizerModel == "" {
		c.TokenizerModel = defaultTokenizerModel
	}
	if c.SummaryMaxChars <= 0 {
		c.SummaryMaxChars = defaultSummaryMaxChars
	}
}

// Compressor shrinks conversation contexts to a token budget.
type Compressor struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a compressor. logger may be nil.
func New(cfg Config, logger *zap.Logger) *Compressor {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compressor{cfg: cfg, logger: logger}
}

// Compress returns a context whose estimated size fits tokenBudget. Contexts
// already below the capacity threshold are returned unchanged. The input is
// never mutated; a reduced context is always a fresh value.
func (c *Compressor) Compress(cc *generation.ConversationContext, tokenBudget int) (*generation.ConversationContext, error) {
	if tokenBudget <= 0 {
		return nil, fmt.Errorf("compress: token budget must be positive, got %d", tokenBudget)
	}

	estimate := c.contextTokens(cc)
	threshold := int(float64(tokenBudget) * c.cfg.CapacityFraction)
	if estimate <= threshold {
		return cc, nil
	}

	out := cc.Clone()

	// Stage (a): drop oldest turns, keep the most recent N verbatim. The
	// final turn is the active user request and always survives.
	var dropped []generation.Turn
	if len(out.Turns) > c.cfg.KeepRecentTurns {
		cut := len(out.Turns) - c.cfg.KeepRecentTurns
		dropped = append(dropped, out.Turns[:cut]...)
		out.Turns = out.Turns[cut:]
	}
	if c.contextTokens(out) <= tokenBudget {
		c.logDrop(estimate, out, len(dropped), false)
		return out, nil
	}

	// Stage (b): fold the dropped turns into one synthetic summary turn so
	// key decisions survive the cut.
	if len(dropped) > 0 {
		var sb strings.Builder
		for _, t := range dropped {
			sb.WriteString(string(t.Role))
			sb.WriteString(": ")
			sb.WriteString(t.Text)
			sb.WriteString("\n")
		}
		summary := summarize(sb.String(), c.cfg.SummaryMaxChars)
		if summary != "" {
			turns := make([]generation.Turn, 0, len(out.Turns)+1)
			turns = append(turns, generation.Turn{
				Role: generation.TurnRoleSystem,
				Text: "Summary of earlier conversation: " + summary,
			})
			turns = append(turns, out.Turns...)
			out.Turns = turns
		}
	}
	if c.contextTokens(out) <= tokenBudget {
		c.logDrop(estimate, out, len(dropped), true)
		return out, nil
	}

	// Stage (c): truncate file contents down to structure-relevant
	// excerpts, then shrink further until the budget holds. File names are
	// never removed: the active file set must stay visible to producers.
	names := make([]string, 0, len(out.Files))
	for name := range out.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		out.Files[name] = excerptFile(out.Files[name])
	}
	c.shrinkToFit(out, names, tokenBudget)

	c.logDrop(estimate, out, len(dropped), true)
	return out, nil
}

// shrinkToFit repeatedly halves the largest file excerpt, then sheds the
// summary and any remaining history except the final user turn, until the
// estimate fits the budget.
func (c *Compressor) shrinkToFit(out *generation.ConversationContext, names []string, budget int) {
	const maxPasses = 64
	for pass := 0; pass < maxPasses && c.contextTokens(out) > budget; pass++ {
		largest := ""
		largestTokens := 0
		for _, name := range names {
			if n := c.estimateTokens(out.Files[name]); n > largestTokens {
				largest, largestTokens = name, n
			}
		}

		if largest != "" && largestTokens > perTurnOverhead {
			lines := strings.Split(out.Files[largest], "\n")
			if len(lines) > 1 {
				out.Files[largest] = strings.Join(lines[:len(lines)/2], "\n") + "\n" + truncationMarker
				continue
			}
			out.Files[largest] = truncationMarker
			continue
		}

		// Files are minimal; trim history down to the final turn.
		if len(out.Turns) > 1 {
			out.Turns = out.Turns[len(out.Turns)-1:]
			continue
		}
		break
	}
}

func (c *Compressor) contextTokens(cc *generation.ConversationContext) int {
	total := 0
	for _, t := range cc.Turns {
		total += c.estimateTokens(t.Text) + perTurnOverhead
	}
	for name, content := range cc.Files {
		total += c.estimateTokens(name) + c.estimateTokens(content) + perTurnOverhead
	}
	return total
}

func (c *Compressor) logDrop(before int, out *generation.ConversationContext, droppedTurns int, summarized bool) {
	c.logger.Debug("context compressed",
		zap.Int("tokens_before", before),
		zap.Int("tokens_after", c.contextTokens(out)),
		zap.Int("dropped_turns", droppedTurns),
		zap.Bool("summarized", summarized))
}

// structureLine matches lines worth keeping when a file body is truncated:
// imports, exports, declarations, routes, schema statements.
var structureLine = regexp.MustCompile(`(?i)^\s*(import\b|export\b|from\b|func\b|class\b|def\b|type\b|interface\b|const\b|let\b|var\b|module\b|package\b|create\s|alter\s|router\.|app\.|@)`)

// excerptFile keeps a file's leading lines plus any structure-relevant lines
// from the body, preferring declarations over full bodies.
func excerptFile(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) <= excerptHeadLines {
		return content
	}

	kept := make([]string, 0, excerptHeadLines+8)
	kept = append(kept, lines[:excerptHeadLines]...)
	for _, ln := range lines[excerptHeadLines:] {
		if structureLine.MatchString(ln) {
			kept = append(kept, ln)
		}
	}
	kept = append(kept, truncationMarker)
	return strings.Join(kept, "\n")
}
