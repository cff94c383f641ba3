// Package agents wraps the inference gateway with role-specific behavior:
// the planner turns a request into an architecture plan, producers generate
// file artifacts scoped to one responsibility each, and the reviewer scores
// the merged output. Roles are a fixed enumeration resolved once at pipeline
// construction; there is no dynamic dispatch per call.
package agents
