// Package logging provides concrete implementations of the sfdeploy.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: Writes prefixed messages to stderr, colouring outcome
//     markers when the destination is a terminal
//   - NullLogger: Discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
