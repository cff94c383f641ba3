// Package inference provides the gateway to the external text-generation
// service. It applies per-call timeouts, bounded retry with exponential
// backoff for transient failures, outbound rate limiting and concurrency
// bounds, and normalizes provider responses into plain text.
//
// Each call is independent: no caching, and idempotence is not assumed.
package inference
