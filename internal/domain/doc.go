// Package domain holds the core model types, event envelopes, sentinel
// errors and shared-store key shapes. It has no dependencies on transports
// or storage adapters.
package domain
