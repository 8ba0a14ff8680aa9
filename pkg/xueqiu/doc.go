// Package xueqiu implements the raw API channel: a rate-limited,
// retrying HTTP client with session-expiry detection, profile
// resolution, paginated post listing, and normalization of raw statuses
// into post records.
package xueqiu
