// Package reliable implements at-least-once delivery of commands to the World and
// carrier peers.
//
// Every command gets the next number from a process-wide Counter and is written
// with that sequence number. Until the peer acknowledges it (Acknowledge) or
// reports an error for it (Fail), the Engine rewrites the identical frame bytes
// on a fixed interval. One scheduler goroutine serves all pending requests from a
// min-heap ordered by due time, so the cost of an outstanding request is one heap
// entry rather than a timer.
//
// Resends never give up by default. When Config.MaxAttempts is set, a request
// that reaches the cap is dropped and reported to the expiry handler.
package reliable
