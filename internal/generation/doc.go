// Package generation defines the shared data model for the project
// generation pipeline: requests, conversation context, architecture plans,
// generated artifacts, review verdicts, progress events, and the error
// taxonomy used across pipeline stages.
package generation
