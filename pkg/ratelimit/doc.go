// Package ratelimit paces outbound requests with a randomized minimum
// spacing. The target site's anti-bot posture punishes burst traffic, so
// correctness depends on strict pacing rather than throughput: a single
// shared IntervalLimiter funnels every request path through one
// globally-paced point.
package ratelimit
