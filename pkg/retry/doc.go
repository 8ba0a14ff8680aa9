// Package retry provides backoff strategies for the transport's retry
// loop. The transport owns the attempt counting; this package only
// answers "how long before retry k".
package retry
