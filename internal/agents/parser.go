package agents

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/forged/internal/generation"
)

// extractJSON pulls the first JSON object out of a model response. Models
// frequently wrap JSON in markdown fences or surround it with prose despite
// instructions, so the parser tolerates both.
func extractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	// Strip a markdown fence if the response is wrapped in one.
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	if start < 0 {
		return "", fmt.Errorf("no JSON object found in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '{':
			depth++
		case !inString && c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in response")
}

// ParsePlan decodes a planner response into an architecture plan.
func ParsePlan(text string) (*generation.ArchitecturePlan, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var plan generation.ArchitecturePlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, fmt.Errorf("decoding plan: %w", err)
	}
	if plan.Summary == "" && len(plan.Features) == 0 {
		return nil, fmt.Errorf("plan has neither summary nor features")
	}
	return &plan, nil
}

// ParseVerdict decodes a reviewer response into a verdict. Status values are
// normalized; anything that is not an approval reads as iterate.
func ParseVerdict(text string) (generation.ReviewVerdict, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return generation.ReviewVerdict{}, err
	}

	var v generation.ReviewVerdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return generation.ReviewVerdict{}, fmt.Errorf("decoding verdict: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(string(v.Status))) {
	case "approve", "approved", "accept", "accepted", "pass":
		v.Status = generation.ReviewApprove
	case "iterate", "revise", "reject", "fail":
		v.Status = generation.ReviewIterate
	default:
		return generation.ReviewVerdict{}, fmt.Errorf("unknown review status %q", v.Status)
	}

	if v.QualityScore < 0 {
		v.QualityScore = 0
	} else if v.QualityScore > 100 {
		v.QualityScore = 100
	}
	return v, nil
}

// fileHeader matches the producer output contract's file header line.
var fileHeader = regexp.MustCompile(`(?m)^//\s*File:\s*(\S+)\s*$`)

// ParseArtifacts extracts named files from a producer response. Each file is
// a header line followed by a fenced code block; a header without a fence
// falls back to the raw text up to the next header. Files appear in response
// order; duplicate names keep the last occurrence via ArtifactSet semantics
// downstream.
func ParseArtifacts(text string) []generation.Artifact {
	matches := fileHeader.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	artifacts := make([]generation.Artifact, 0, len(matches))
	for i, m := range matches {
		name := text[m[2]:m[3]]

		bodyStart := m[1]
		bodyEnd := len(text)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		body := text[bodyStart:bodyEnd]

		content, ok := extractFence(body)
		if !ok {
			content = strings.TrimSpace(body)
		}
		if content == "" {
			continue
		}

		artifacts = append(artifacts, generation.Artifact{
			Name:    name,
			Content: content,
			Kind:    generation.KindForName(name),
		})
	}
	return artifacts
}

// extractFence returns the content of the first fenced code block in text.
func extractFence(text string) (string, bool) {
	open := strings.Index(text, "```")
	if open < 0 {
		return "", false
	}
	rest := text[open+3:]

	// Skip the info string on the opening fence line.
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		return "", false
	}

	closing := strings.Index(rest, "```")
	if closing < 0 {
		// Unterminated fence: take everything. Truncated responses still
		// yield the partial file rather than nothing.
		return strings.TrimRight(rest, "\n"), true
	}
	return strings.TrimRight(rest[:closing], "\n"), true
}
