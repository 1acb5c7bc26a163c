// Package errors provides standardized error handling patterns for homeguard components.
//
// # Overview
//
// The errors package implements a three-class error classification system:
// Transient (temporary, retryable), Invalid (bad input, non-retryable), and
// Fatal (unrecoverable, stop processing).
//
// This classification enables intelligent error handling strategies throughout
// the hub, allowing components to make informed decisions about dropping
// events, closing connections, and escalating failures without hardcoded
// error string matching.
//
// # Hub Error Taxonomy
//
// The hub defines a small set of standard error variables that drive
// connection and dispatch behavior:
//
//   - ErrUnknownRole: handshake declared a role outside the enumerated set
//     (fatal to the connection, closed immediately)
//   - ErrMissingDeviceID: a device connected without an identifier
//     (fatal to the connection, closed immediately)
//   - ErrValidation: a single reading or detection failed validation
//     (the unit is dropped, siblings continue)
//   - ErrDeviceOffline: a command targeted a device with no live connection
//   - ErrSerialization: a payload could not be encoded or decoded
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Component", "Method", "action")  // retryable
//	errors.WrapInvalid(err, "Component", "Method", "action")    // validation
//	errors.WrapFatal(err, "Component", "Method", "action")      // unrecoverable
//
// The generic Wrap() preserves the original error's classification.
//
// # Integration with errors.As/Is
//
// All error types support standard library error inspection:
//
//	if errors.Is(err, errors.ErrDeviceOffline) {
//	    // return structured error envelope to issuer
//	}
//
//	var ce *errors.ClassifiedError
//	if errors.As(err, &ce) {
//	    log.Printf("Component: %s, Class: %s", ce.Component, ce.Class)
//	}
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable and safe for concurrent access.
package errors
