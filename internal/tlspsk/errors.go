package tlspsk

import "fmt"

// Code classifies a handshake or record-layer failure.
type Code int

const (
	CodeUnknown Code = iota

	// CodeNoCompatibleSuite means the server sent a handshake_failure alert,
	// typically because it accepts none of the offered PSK cipher suites.
	CodeNoCompatibleSuite

	// CodeAuthenticationFailed means the server rejected the pre-shared key
	// (decrypt_error / bad_record_mac alerts, or a Finished mismatch).
	CodeAuthenticationFailed

	// CodeProtocolError covers malformed or unexpected handshake traffic.
	CodeProtocolError

	// CodeInternalError is a local failure inside the engine.
	CodeInternalError

	// CodeConnectionClosed means the peer sent close_notify or the engine
	// was closed locally.
	CodeConnectionClosed

	// CodeTransportError means the underlying connection failed or closed.
	CodeTransportError

	// CodeHandshakeTimeout means the handshake did not complete in time.
	CodeHandshakeTimeout
)

func (c Code) String() string {
	switch c {
	case CodeNoCompatibleSuite:
		return "NO_COMPATIBLE_SUITE"
	case CodeAuthenticationFailed:
		return "AUTHENTICATION_FAILED"
	case CodeProtocolError:
		return "PROTOCOL_ERROR"
	case CodeInternalError:
		return "INTERNAL_ERROR"
	case CodeConnectionClosed:
		return "CONNECTION_CLOSED"
	case CodeTransportError:
		return "TRANSPORT_ERROR"
	case CodeHandshakeTimeout:
		return "HANDSHAKE_TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// HandshakeError is the engine's failure type. Messages never contain the
// pre-shared key or the identity.
type HandshakeError struct {
	Code  Code
	Msg   string
	cause error
}

func (e *HandshakeError) Error() string {
	s := fmt.Sprintf("tlspsk: %s", e.Code)
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

func (e *HandshakeError) Unwrap() error {
	return e.cause
}

func newError(code Code, msg string) *HandshakeError {
	return &HandshakeError{Code: code, Msg: msg}
}

func wrapError(code Code, msg string, cause error) *HandshakeError {
	return &HandshakeError{Code: code, Msg: msg, cause: cause}
}

// TLS alert descriptions the engine understands.
const (
	alertCloseNotify       = 0
	alertUnexpectedMessage = 10
	alertBadRecordMAC      = 20
	alertHandshakeFailure  = 40
	alertIllegalParameter  = 47
	alertDecryptError      = 51
	alertProtocolVersion   = 70
)

// alertError maps a fatal alert to the engine's error taxonomy.
func alertError(level, desc byte) *HandshakeError {
	var code Code
	switch desc {
	case alertCloseNotify:
		code = CodeConnectionClosed
	case alertHandshakeFailure:
		code = CodeNoCompatibleSuite
	case alertBadRecordMAC, alertDecryptError:
		code = CodeAuthenticationFailed
	case alertUnexpectedMessage, alertIllegalParameter, alertProtocolVersion:
		code = CodeProtocolError
	default:
		code = CodeUnknown
	}
	return newError(code, fmt.Sprintf("received alert %d (level %d)", desc, level))
}
