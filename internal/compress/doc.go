// Package compress shrinks a conversation context to fit a token budget
// before it is sent to the inference service.
//
// Reduction is staged: oldest history turns are dropped first (keeping the
// most recent turns verbatim), then dropped turns are summarized into a
// single synthetic turn, then file contents are truncated down to
// structure-relevant excerpts. The most recent user turn and the active file
// set are never dropped. Given the same input and budget the output is
// identical: there is no randomness and no model call involved.
package compress
