// Package broadcast implements the event fan-out hub using the actor
// pattern: a single goroutine owns the connection maps and consumes
// commands from a channel, so no mutexes guard shared state. Per-connection
// write goroutines absorb slow clients; a full send buffer evicts the
// client instead of stalling the fan-out.
//
// Each stream (agents, sentiment) is backed by a shared-store pub/sub
// subscription that is opened when the first local client registers and
// torn down when the last one leaves.
package broadcast
