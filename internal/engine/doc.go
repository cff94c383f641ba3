// Package engine drives a generation run through its pipeline: compress the
// conversation context, plan the architecture, fan out to parallel specialist
// producers, review the merged output, and iterate on feedback up to a
// bounded number of rounds. A run ends with either a complete artifact set or
// a single structured stage error, never a partial file set.
package engine
