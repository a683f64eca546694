// Package tlspsk implements a TLS 1.2 client speaking only pre-shared-key
// cipher suites, as required by Secure ADS in PSK mode.
//
// TwinCAT's embedded TLS stack supports only plain-PSK suites and aborts the
// handshake when the ClientHello carries unrecognized extensions, which rules
// out crypto/tls. The engine here is non-blocking: the owning connection
// feeds it raw inbound bytes and drains the records it produces.
package tlspsk

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
)

// MaxPendingWrites caps the total plaintext buffered before the handshake
// completes. A write pushing the total past the cap fails; earlier buffered
// writes are preserved.
const MaxPendingWrites = 256 << 10 // 256 KiB

// State is the engine's lifecycle state.
type State int

const (
	StateInitial State = iota
	StateHandshaking
	StateEstablished
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateHandshaking:
		return "handshaking"
	case StateEstablished:
		return "established"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config carries the PSK credentials. Identity bytes go on the wire as
// provided; Key is used directly as the pre-shared secret.
type Config struct {
	Identity []byte
	Key      []byte

	// Rand is the entropy source; crypto/rand is used when nil.
	Rand io.Reader
}

// Engine drives one TLS-PSK client connection. It is not safe for concurrent
// use; the owning connection serializes all calls.
type Engine struct {
	cfg   Config
	state State
	hs    *handshakeState

	rd halfConn
	wr halfConn

	out      []byte // records ready for the transport
	inBuf    []byte // unconsumed transport bytes
	hsMsgBuf []byte // handshake messages reassembled across records

	pending     [][]byte // plaintext writes buffered pre-handshake
	pendingSize int

	done         chan error
	doneSignaled bool
	failure      error
}

// NewEngine validates the configuration and returns an idle engine.
func NewEngine(cfg Config) (*Engine, error) {
	if len(cfg.Identity) == 0 {
		return nil, newError(CodeInternalError, "PSK identity must not be empty")
	}
	if len(cfg.Key) == 0 {
		return nil, newError(CodeInternalError, "PSK key must not be empty")
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Reader
	}
	return &Engine{
		cfg:  cfg,
		done: make(chan error, 1),
	}, nil
}

// State returns the engine's current state.
func (e *Engine) State() State {
	return e.state
}

// HandshakeDone delivers exactly one value: nil once the handshake completes,
// or the failure that ended it.
func (e *Engine) HandshakeDone() <-chan error {
	return e.done
}

// Start generates the ClientHello. Must be called once, before any Feed.
func (e *Engine) Start() error {
	if e.state != StateInitial {
		return newError(CodeInternalError, fmt.Sprintf("start in state %s", e.state))
	}

	e.hs = &handshakeState{phase: phaseWaitServerHello}
	if err := e.hs.newClientRandom(e.cfg.Rand); err != nil {
		e.fail(err)
		return err
	}

	hello := e.hs.clientHelloBytes()
	e.hs.transcript.Write(hello)

	out, err := appendRecord(e.out, &e.wr, e.cfg.Rand, recordHandshake, hello)
	if err != nil {
		e.fail(err)
		return err
	}
	e.out = out
	e.state = StateHandshaking
	return nil
}

// Feed consumes raw bytes from the transport, advancing the handshake and
// decrypting application data. The returned slice holds any plaintext that
// became available. A non-nil error is terminal for the connection.
func (e *Engine) Feed(p []byte) ([]byte, error) {
	switch e.state {
	case StateFailed:
		return nil, e.failure
	case StateClosed:
		return nil, newError(CodeConnectionClosed, "engine closed")
	case StateInitial:
		return nil, newError(CodeInternalError, "feed before start")
	}

	e.inBuf = append(e.inBuf, p...)

	var plaintext []byte
	for {
		if len(e.inBuf) < recordHeaderLen {
			return plaintext, nil
		}
		recType := e.inBuf[0]
		if e.inBuf[1] != 0x03 {
			err := newError(CodeProtocolError, fmt.Sprintf("bad record version 0x%02X%02X", e.inBuf[1], e.inBuf[2]))
			e.fail(err)
			return plaintext, err
		}
		bodyLen := int(binary.BigEndian.Uint16(e.inBuf[3:5]))
		if bodyLen > maxCiphertext {
			err := newError(CodeProtocolError, fmt.Sprintf("record of %d bytes exceeds maximum", bodyLen))
			e.fail(err)
			return plaintext, err
		}
		if len(e.inBuf) < recordHeaderLen+bodyLen {
			return plaintext, nil
		}

		body := e.inBuf[recordHeaderLen : recordHeaderLen+bodyLen]
		appData, err := e.processRecord(recType, body)
		e.inBuf = e.inBuf[recordHeaderLen+bodyLen:]
		if err != nil {
			e.fail(err)
			return plaintext, err
		}
		plaintext = append(plaintext, appData...)
	}
}

// processRecord handles one complete record body, decrypting it when the
// read cipher is active.
func (e *Engine) processRecord(recType byte, body []byte) ([]byte, error) {
	if e.rd.active {
		content, err := e.rd.open(recType, body)
		if err != nil {
			return nil, err
		}
		body = content
	}

	switch recType {
	case recordHandshake:
		return nil, e.processHandshakeBytes(body)

	case recordChangeCipherSpec:
		if len(body) != 1 || body[0] != 1 {
			return nil, newError(CodeProtocolError, "malformed ChangeCipherSpec")
		}
		if e.hs == nil || e.hs.phase != phaseWaitChangeCipherSpec {
			return nil, newError(CodeProtocolError, "unexpected ChangeCipherSpec")
		}
		if err := e.hs.activateRead(&e.rd); err != nil {
			return nil, err
		}
		e.hs.phase = phaseWaitFinished
		return nil, nil

	case recordAlert:
		if len(body) != 2 {
			return nil, newError(CodeProtocolError, "malformed alert record")
		}
		level, desc := body[0], body[1]
		if level == 1 && desc != alertCloseNotify {
			// warning alerts carry no state change
			return nil, nil
		}
		return nil, alertError(level, desc)

	case recordApplicationData:
		if e.state != StateEstablished {
			return nil, newError(CodeProtocolError, "application data before handshake completion")
		}
		return body, nil

	default:
		return nil, newError(CodeProtocolError, fmt.Sprintf("unknown record type %d", recType))
	}
}

// processHandshakeBytes reassembles handshake messages, which may span or
// share records, and dispatches each complete one.
func (e *Engine) processHandshakeBytes(p []byte) error {
	e.hsMsgBuf = append(e.hsMsgBuf, p...)
	for {
		if len(e.hsMsgBuf) < 4 {
			return nil
		}
		msgLen := int(e.hsMsgBuf[1])<<16 | int(e.hsMsgBuf[2])<<8 | int(e.hsMsgBuf[3])
		if len(e.hsMsgBuf) < 4+msgLen {
			return nil
		}
		msg := e.hsMsgBuf[:4+msgLen]
		if err := e.processHandshakeMessage(msg[0], msg, msg[4:]); err != nil {
			return err
		}
		e.hsMsgBuf = e.hsMsgBuf[4+msgLen:]
	}
}

func (e *Engine) processHandshakeMessage(typ byte, raw, body []byte) error {
	hs := e.hs
	if hs == nil || hs.phase == phaseDone {
		return newError(CodeProtocolError, "handshake message after completion")
	}

	switch {
	case hs.phase == phaseWaitServerHello && typ == typeServerHello:
		hs.transcript.Write(raw)
		if err := hs.processServerHello(body); err != nil {
			return err
		}
		hs.phase = phaseWaitServerKexOrDone
		return nil

	case hs.phase == phaseWaitServerKexOrDone && typ == typeServerKeyExchange:
		hs.transcript.Write(raw)
		if err := hs.processServerKeyExchange(body); err != nil {
			return err
		}
		hs.phase = phaseWaitServerHelloDone
		return nil

	case (hs.phase == phaseWaitServerKexOrDone || hs.phase == phaseWaitServerHelloDone) && typ == typeServerHelloDone:
		if len(body) != 0 {
			return newError(CodeProtocolError, "non-empty ServerHelloDone")
		}
		hs.transcript.Write(raw)
		return e.sendClientFlight()

	case hs.phase == phaseWaitFinished && typ == typeFinished:
		if err := hs.verifyServerFinished(body); err != nil {
			return err
		}
		hs.transcript.Write(raw)
		hs.phase = phaseDone
		e.establish()
		return nil

	default:
		return newError(CodeProtocolError, fmt.Sprintf("handshake message %d unexpected in phase %d", typ, hs.phase))
	}
}

// sendClientFlight emits ClientKeyExchange, ChangeCipherSpec, and Finished.
func (e *Engine) sendClientFlight() error {
	hs := e.hs

	cke := clientKeyExchangeBytes(e.cfg.Identity)
	hs.transcript.Write(cke)
	out, err := appendRecord(e.out, &e.wr, e.cfg.Rand, recordHandshake, cke)
	if err != nil {
		return err
	}

	// ChangeCipherSpec goes out in the clear; the write cipher activates
	// right after it.
	out, err = appendRecord(out, &e.wr, e.cfg.Rand, recordChangeCipherSpec, []byte{1})
	if err != nil {
		return err
	}
	if err := hs.deriveKeys(e.cfg.Key, &e.wr); err != nil {
		return err
	}

	finished := hs.finishedBytes("client finished")
	hs.transcript.Write(finished)
	out, err = appendRecord(out, &e.wr, e.cfg.Rand, recordHandshake, finished)
	if err != nil {
		return err
	}

	e.out = out
	hs.phase = phaseWaitChangeCipherSpec
	return nil
}

// establish flips the engine to Established and drains buffered writes in
// FIFO order.
func (e *Engine) establish() {
	e.state = StateEstablished
	e.signalDone(nil)

	for _, p := range e.pending {
		if err := e.encryptWrite(p); err != nil {
			e.fail(err)
			return
		}
	}
	e.pending = nil
	e.pendingSize = 0
}

// Write submits plaintext. Before the handshake completes the data is
// buffered up to MaxPendingWrites; afterwards it is encrypted immediately.
func (e *Engine) Write(p []byte) error {
	switch e.state {
	case StateFailed:
		return e.failure
	case StateClosed:
		return newError(CodeConnectionClosed, "engine closed")
	case StateEstablished:
		return e.encryptWrite(p)
	default:
		if e.pendingSize+len(p) > MaxPendingWrites {
			return newError(CodeInternalError,
				fmt.Sprintf("pre-handshake write buffer full (%d buffered, %d submitted)", e.pendingSize, len(p)))
		}
		buf := make([]byte, len(p))
		copy(buf, p)
		e.pending = append(e.pending, buf)
		e.pendingSize += len(p)
		return nil
	}
}

// encryptWrite frames plaintext into application-data records.
func (e *Engine) encryptWrite(p []byte) error {
	for len(p) > 0 {
		n := len(p)
		if n > maxRecordPlaintext {
			n = maxRecordPlaintext
		}
		out, err := appendRecord(e.out, &e.wr, e.cfg.Rand, recordApplicationData, p[:n])
		if err != nil {
			return err
		}
		e.out = out
		p = p[n:]
	}
	return nil
}

// Outbound drains the records the engine has produced for the transport.
func (e *Engine) Outbound() []byte {
	out := e.out
	e.out = nil
	return out
}

// TransportClosed tells the engine the underlying connection is gone. Before
// Established this fails the handshake.
func (e *Engine) TransportClosed() {
	switch e.state {
	case StateInitial, StateHandshaking:
		e.fail(newError(CodeTransportError, "connection closed during handshake"))
	case StateEstablished:
		e.state = StateClosed
	}
}

// Close emits a close_notify when established and shuts the engine down.
// Closing mid-handshake counts as a handshake failure.
func (e *Engine) Close() {
	if e.state == StateEstablished {
		if out, err := appendRecord(e.out, &e.wr, e.cfg.Rand, recordAlert, []byte{1, alertCloseNotify}); err == nil {
			e.out = out
		}
	}
	if e.state != StateFailed {
		e.state = StateClosed
		e.signalDone(newError(CodeConnectionClosed, "engine closed"))
	}
}

// fail moves the engine to the Failed state and signals the handshake
// completion exactly once.
func (e *Engine) fail(err error) {
	if e.state == StateFailed {
		return
	}
	e.state = StateFailed
	e.failure = err
	e.signalDone(err)
}

func (e *Engine) signalDone(err error) {
	if e.doneSignaled {
		return
	}
	e.doneSignaled = true
	e.done <- err
}
