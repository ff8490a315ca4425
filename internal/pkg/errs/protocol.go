package errs

import (
	"errors"
	"fmt"
)

var (
	ErrFraming           = errors.New("malformed frame")
	ErrConnection        = errors.New("connection failed")
	ErrHandshakeRejected = errors.New("handshake rejected")
	ErrPeerReported      = errors.New("peer reported error")
	ErrUnknownPackage    = errors.New("unknown package")
)

// FramingError reports a stream that ended mid-frame or declared an unusable length.
// The link that produced it is considered broken.
type FramingError struct {
	Reason string
	Cause  error
}

func NewFramingError(reason string) *FramingError {
	return &FramingError{Reason: reason}
}

func NewFramingErrorWithCause(reason string, cause error) *FramingError {
	return &FramingError{Reason: reason, Cause: cause}
}

func (e *FramingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", ErrFraming, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", ErrFraming, e.Reason)
}

func (e *FramingError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrFraming, e.Cause}
	}
	return []error{ErrFraming}
}

type ConnectionError struct {
	Peer  string
	Addr  string
	Cause error
}

func NewConnectionError(peer, addr string, cause error) *ConnectionError {
	return &ConnectionError{Peer: peer, Addr: addr, Cause: cause}
}

func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s at %s (cause: %v)", ErrConnection, e.Peer, e.Addr, e.Cause)
	}
	return fmt.Sprintf("%s: %s at %s", ErrConnection, e.Peer, e.Addr)
}

func (e *ConnectionError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrConnection, e.Cause}
	}
	return []error{ErrConnection}
}

// HandshakeRejectedError carries the verbatim result string of a failed registration.
type HandshakeRejectedError struct {
	Peer   string
	Result string
}

func NewHandshakeRejectedError(peer, result string) *HandshakeRejectedError {
	return &HandshakeRejectedError{Peer: peer, Result: result}
}

func (e *HandshakeRejectedError) Error() string {
	return fmt.Sprintf("%s: %s answered %q", ErrHandshakeRejected, e.Peer, e.Result)
}

func (e *HandshakeRejectedError) Unwrap() error {
	return ErrHandshakeRejected
}

type PeerReportedError struct {
	Peer      string
	OriginSeq int64
	Reason    string
}

func NewPeerReportedError(peer string, originSeq int64, reason string) *PeerReportedError {
	return &PeerReportedError{Peer: peer, OriginSeq: originSeq, Reason: reason}
}

func (e *PeerReportedError) Error() string {
	return fmt.Sprintf("%s: %s rejected seq %d: %s", ErrPeerReported, e.Peer, e.OriginSeq, sanitize(e.Reason))
}

func (e *PeerReportedError) Unwrap() error {
	return ErrPeerReported
}

type UnknownPackageError struct {
	PackageID int64
	Event     string
}

func NewUnknownPackageError(packageID int64, event string) *UnknownPackageError {
	return &UnknownPackageError{PackageID: packageID, Event: event}
}

func (e *UnknownPackageError) Error() string {
	return fmt.Sprintf("%s: %d (event: %s)", ErrUnknownPackage, e.PackageID, e.Event)
}

func (e *UnknownPackageError) Unwrap() error {
	return ErrUnknownPackage
}
