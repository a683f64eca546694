package tlspsk

import (
	"bytes"
	"crypto/hmac"
	"encoding/binary"
	"fmt"
	"io"
)

// Handshake message types.
const (
	typeClientHello       = 1
	typeServerHello       = 2
	typeServerKeyExchange = 12
	typeServerHelloDone   = 14
	typeClientKeyExchange = 16
	typeFinished          = 20
)

const (
	masterSecretLen = 48
	finishedLen     = 12
	randomLen       = 32
)

// handshakeState carries the client handshake through its phases. The
// transcript accumulates every handshake message verbatim; it is hashed with
// the suite's PRF hash once the suite is known.
type handshakeState struct {
	phase        hsPhase
	clientRandom [randomLen]byte
	serverRandom [randomLen]byte
	suite        *cipherSuite
	masterSecret []byte
	transcript   bytes.Buffer

	// server write parameters, held until the server's ChangeCipherSpec
	// switches the read half over.
	serverWriteKey []byte
	serverWriteMAC []byte
}

type hsPhase int

const (
	phaseWaitServerHello hsPhase = iota
	phaseWaitServerKexOrDone
	phaseWaitServerHelloDone
	phaseWaitChangeCipherSpec
	phaseWaitFinished
	phaseDone
)

// clientHelloBytes builds the ClientHello handshake message. The extensions
// vector is omitted entirely: TwinCAT's TLS stack aborts on any ClientHello
// that carries extensions it does not know.
func (hs *handshakeState) clientHelloBytes() []byte {
	body := make([]byte, 0, 2+randomLen+1+2+2*len(supportedSuites)+2)
	body = append(body, 0x03, 0x03) // client_version = TLS 1.2
	body = append(body, hs.clientRandom[:]...)
	body = append(body, 0) // empty session_id
	body = append(body, byte(len(supportedSuites)*2>>8), byte(len(supportedSuites)*2))
	for _, s := range supportedSuites {
		body = append(body, byte(s.id>>8), byte(s.id))
	}
	body = append(body, 1, 0) // null compression only
	return wrapHandshake(typeClientHello, body)
}

// wrapHandshake prepends the 4-byte handshake header.
func wrapHandshake(typ byte, body []byte) []byte {
	out := make([]byte, 4+len(body))
	out[0] = typ
	out[1] = byte(len(body) >> 16)
	out[2] = byte(len(body) >> 8)
	out[3] = byte(len(body))
	copy(out[4:], body)
	return out
}

// processServerHello validates the ServerHello body and fixes the suite.
func (hs *handshakeState) processServerHello(body []byte) error {
	if len(body) < 2+randomLen+1 {
		return newError(CodeProtocolError, "short ServerHello")
	}
	if binary.BigEndian.Uint16(body[0:2]) != versionTLS12 {
		return newError(CodeProtocolError, fmt.Sprintf("server negotiated version 0x%04X", binary.BigEndian.Uint16(body[0:2])))
	}
	copy(hs.serverRandom[:], body[2:2+randomLen])

	off := 2 + randomLen
	sessionLen := int(body[off])
	off++
	if len(body) < off+sessionLen+3 {
		return newError(CodeProtocolError, "short ServerHello")
	}
	off += sessionLen

	suiteID := binary.BigEndian.Uint16(body[off : off+2])
	off += 2
	suite := suiteByID(suiteID)
	if suite == nil {
		return newError(CodeNoCompatibleSuite, fmt.Sprintf("server selected unoffered suite 0x%04X", suiteID))
	}
	hs.suite = suite

	if body[off] != 0 {
		return newError(CodeProtocolError, "server selected non-null compression")
	}
	return nil
}

// processServerKeyExchange accepts the optional identity hint. The hint is
// ignored: the identity to present is fixed by configuration.
func (hs *handshakeState) processServerKeyExchange(body []byte) error {
	if len(body) < 2 {
		return newError(CodeProtocolError, "short ServerKeyExchange")
	}
	hintLen := int(binary.BigEndian.Uint16(body[0:2]))
	if len(body) != 2+hintLen {
		return newError(CodeProtocolError, "malformed ServerKeyExchange")
	}
	return nil
}

// clientKeyExchangeBytes carries the PSK identity, verbatim bytes.
func clientKeyExchangeBytes(identity []byte) []byte {
	body := make([]byte, 2+len(identity))
	binary.BigEndian.PutUint16(body[0:2], uint16(len(identity)))
	copy(body[2:], identity)
	return wrapHandshake(typeClientKeyExchange, body)
}

// deriveKeys computes the master secret, activates the write half, and
// stashes the server write parameters for activateRead.
func (hs *handshakeState) deriveKeys(psk []byte, wr *halfConn) error {
	premaster := pskPreMasterSecret(psk)

	seed := make([]byte, 0, 2*randomLen)
	seed = append(seed, hs.clientRandom[:]...)
	seed = append(seed, hs.serverRandom[:]...)
	hs.masterSecret = prf12(hs.suite.prfHash, premaster, "master secret", seed, masterSecretLen)

	keySeed := make([]byte, 0, 2*randomLen)
	keySeed = append(keySeed, hs.serverRandom[:]...)
	keySeed = append(keySeed, hs.clientRandom[:]...)
	n := 2*hs.suite.macLen + 2*hs.suite.keyLen
	keyBlock := prf12(hs.suite.prfHash, hs.masterSecret, "key expansion", keySeed, n)

	clientMAC := keyBlock[:hs.suite.macLen]
	serverMAC := keyBlock[hs.suite.macLen : 2*hs.suite.macLen]
	clientKey := keyBlock[2*hs.suite.macLen : 2*hs.suite.macLen+hs.suite.keyLen]
	serverKey := keyBlock[2*hs.suite.macLen+hs.suite.keyLen:]

	hs.serverWriteKey = serverKey
	hs.serverWriteMAC = serverMAC

	if err := wr.activate(hs.suite, clientKey, clientMAC); err != nil {
		return wrapError(CodeInternalError, "activate write cipher", err)
	}
	return nil
}

// activateRead switches the read half to the server write keys.
func (hs *handshakeState) activateRead(rd *halfConn) error {
	if err := rd.activate(hs.suite, hs.serverWriteKey, hs.serverWriteMAC); err != nil {
		return wrapError(CodeInternalError, "activate read cipher", err)
	}
	return nil
}

// finishedBytes computes the Finished message for the given side over the
// current transcript.
func (hs *handshakeState) finishedBytes(label string) []byte {
	h := hs.suite.prfHash()
	h.Write(hs.transcript.Bytes())
	verify := prf12(hs.suite.prfHash, hs.masterSecret, label, h.Sum(nil), finishedLen)
	return wrapHandshake(typeFinished, verify)
}

// verifyServerFinished checks the server's verify_data against the
// transcript as it stood before the server's Finished message.
func (hs *handshakeState) verifyServerFinished(body []byte) error {
	h := hs.suite.prfHash()
	h.Write(hs.transcript.Bytes())
	want := prf12(hs.suite.prfHash, hs.masterSecret, "server finished", h.Sum(nil), finishedLen)
	if len(body) != finishedLen || !hmac.Equal(body, want) {
		return newError(CodeAuthenticationFailed, "server Finished verification failed")
	}
	return nil
}

// newClientRandom fills the client random from the engine's entropy source.
func (hs *handshakeState) newClientRandom(rand io.Reader) error {
	if _, err := io.ReadFull(rand, hs.clientRandom[:]); err != nil {
		return wrapError(CodeInternalError, "generate client random", err)
	}
	return nil
}
