package rtp

import "fmt"

// ErrorKind classifies a transport anomaly per §7's error-handling design.
// The data plane never throws: every anomaly in Framing, Security, Endpoint
// and Sequence drops the offending packet and continues. Configuration
// errors are the one kind the control plane raises to its caller.
type ErrorKind int

const (
	// ErrorKindFraming covers too-short headers, invalid padding counts,
	// and unknown extension profiles.
	ErrorKindFraming ErrorKind = iota + 1
	// ErrorKindSecurity covers unprotect/protect failures and a
	// not-yet-ready SecureContext.
	ErrorKindSecurity
	// ErrorKindEndpoint covers unexpected remote sources and wildcard
	// destination addresses.
	ErrorKindEndpoint
	// ErrorKindSequence covers non-contiguous or duplicate sequence
	// numbers observed on receive.
	ErrorKindSequence
	// ErrorKindSocket covers socket conditions. Transient ones (ICMP
	// connection-reset, EAGAIN-style retries) do not close the channel; a
	// non-transient receive error is reported with this kind and closes it.
	ErrorKindSocket
	// ErrorKindConfiguration covers missing local/remote tracks or an
	// unsupported codec at send time; this is the one kind the control
	// plane is allowed to surface as a fatal error.
	ErrorKindConfiguration
	// ErrorKindTimeout covers the no-activity RTP timeout.
	ErrorKindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindFraming:
		return "Framing"
	case ErrorKindSecurity:
		return "Security"
	case ErrorKindEndpoint:
		return "Endpoint"
	case ErrorKindSequence:
		return "Sequence"
	case ErrorKindSocket:
		return "Socket"
	case ErrorKindConfiguration:
		return "Configuration"
	case ErrorKindTimeout:
		return "Timeout"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// TransportError is the typed error the transport layer attaches to any
// anomaly it reports, whether the anomaly is merely logged (Framing,
// Security, Endpoint, Sequence, Socket, Timeout) or raised to the caller
// (Configuration).
type TransportError struct {
	Kind        ErrorKind
	StreamIndex int
	Message     string
	Wrapped     error
}

func (e *TransportError) Error() string {
	if e.StreamIndex >= 0 {
		return fmt.Sprintf("rtp[%s] stream %d: %s", e.Kind, e.StreamIndex, e.Message)
	}
	return fmt.Sprintf("rtp[%s]: %s", e.Kind, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Wrapped
}

// Is supports errors.Is by comparing error kind.
func (e *TransportError) Is(target error) bool {
	t, ok := target.(*TransportError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewConfigError builds the one TransportError kind the control plane is
// expected to return to its caller rather than swallow (§7).
func NewConfigError(streamIndex int, message string, wrapped error) *TransportError {
	return &TransportError{Kind: ErrorKindConfiguration, StreamIndex: streamIndex, Message: message, Wrapped: wrapped}
}

// newDropError builds a non-fatal TransportError for the data-plane kinds;
// callers log it and drop the packet, they never propagate it further.
func newDropError(kind ErrorKind, streamIndex int, message string, wrapped error) *TransportError {
	return &TransportError{Kind: kind, StreamIndex: streamIndex, Message: message, Wrapped: wrapped}
}
