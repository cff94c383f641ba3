package compress

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// summarize produces a deterministic extractive summary of text, at most
// maxChars long. Sentences are scored by position, length, and inverse word
// frequency; the best are kept in original order so the summary stays
// readable. Sentences mentioning decisions or choices get a bonus since the
// summary's job is to preserve key decisions from dropped turns.
func summarize(text string, maxChars int) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return ""
	}
	if len(text) <= maxChars {
		return strings.TrimSpace(text)
	}

	scores := scoreSentences(sentences)

	type ranked struct {
		index int
		score float64
	}
	order := make([]ranked, len(sentences))
	for i, s := range scores {
		order[i] = ranked{index: i, score: s}
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].score > order[j].score })

	// Greedily take the highest-scoring sentences that fit.
	selected := make([]int, 0, len(sentences))
	used := 0
	for _, r := range order {
		n := len(sentences[r.index])
		if used+n+1 > maxChars {
			continue
		}
		selected = append(selected, r.index)
		used += n + 1
	}

	// Guarantee non-empty output even for a tiny budget.
	if len(selected) == 0 {
		best := sentences[order[0].index]
		if len(best) > maxChars && maxChars > 0 {
			best = best[:maxChars]
		}
		return best
	}

	sort.Ints(selected)
	parts := make([]string, len(selected))
	for i, idx := range selected {
		parts[i] = sentences[idx]
	}
	return strings.Join(parts, " ")
}

// decisionMarkers flag sentences likely to record a choice worth keeping.
var decisionMarkers = []string{
	"decided", "decision", "chose", "chosen", "agreed", "will use",
	"instead of", "must", "should", "require",
}

func scoreSentences(sentences []string) []float64 {
	freq := wordFrequency(sentences)

	scores := make([]float64, len(sentences))
	for i, sentence := range sentences {
		words := strings.Fields(sentence)

		// Earlier sentences carry more context.
		score := 0.3 / (float64(i) + 1.0)

		// Prefer medium-length sentences, peak around 20 words.
		lengthScore := math.Min(float64(len(words))/20.0, 1.0)
		if len(words) > 20 {
			lengthScore = math.Max(1.0-(float64(len(words))-20.0)/50.0, 0.1)
		}
		score += lengthScore * 0.3

		// Inverse-frequency term: rare content words matter more.
		var freqScore float64
		for _, w := range words {
			w = normalizeWord(w)
			if n, ok := freq[w]; ok && n > 1 {
				freqScore += 1.0 / float64(n)
			}
		}
		if len(words) > 0 {
			freqScore /= float64(len(words))
		}
		score += freqScore * 0.2

		lower := strings.ToLower(sentence)
		for _, marker := range decisionMarkers {
			if strings.Contains(lower, marker) {
				score += 0.2
				break
			}
		}

		scores[i] = score
	}
	return scores
}

func wordFrequency(sentences []string) map[string]int {
	freq := make(map[string]int)
	for _, sentence := range sentences {
		for _, w := range strings.Fields(sentence) {
			w = normalizeWord(w)
			if len(w) > 2 {
				freq[w]++
			}
		}
	}
	return freq
}

func normalizeWord(w string) string {
	return strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}))
}

const minSentenceLen = 10

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			s := strings.TrimSpace(current.String())
			if len(s) >= minSentenceLen {
				sentences = append(sentences, s)
				current.Reset()
			} else if r == '\n' {
				current.Reset()
			}
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
