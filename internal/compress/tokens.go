package compress

import "github.com/tmc/langchaingo/llms"

// perTurnOverhead approximates the framing tokens each conversation turn
// costs on the wire (role tag, separators).
const perTurnOverhead = 4

// defaultTokenizerModel selects the tokenizer used for estimates. The
// estimate only has to be consistent with itself, not with the serving
// model's exact tokenizer.
const defaultTokenizerModel = "gpt-4"

// estimateTokens returns the token estimate for a piece of text.
func (c *Compressor) estimateTokens(text string) int {
	return llms.CountTokens(c.cfg.TokenizerModel, text)
}
