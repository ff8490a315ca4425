// Package errs provides the error types shared by the fulfillment coordinator.
//
// Validation and lookup failures follow one pattern:
//   - a sentinel error variable (e.g. ErrValueIsRequired)
//   - a struct type carrying the details
//   - constructors with and without a cause
//   - Error() for formatting and Unwrap() returning the sentinel
//
// The same pattern covers the protocol failures raised by the peer links:
// FramingError, ConnectionError, HandshakeRejectedError, PeerReportedError and
// UnknownPackageError. Callers classify them with errors.Is against the sentinels
// and extract details with errors.As.
package errs
