package secure

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ResponseError is returned when the server answers the ConnectInfo exchange
// with a non-zero error code. The connection must be closed.
type ResponseError struct {
	Code TLSError
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("secure: server rejected connect info: %s", e.Code)
}

// Exchange performs the ConnectInfo handshake on an established TLS tunnel:
// it writes the request and blocks until the server's response is fully read
// and decoded. A response with a non-zero error code yields a *ResponseError.
func Exchange(rw io.ReadWriter, req *ConnectInfo) (*ConnectInfo, error) {
	buf, err := req.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if _, err := rw.Write(buf); err != nil {
		return nil, fmt.Errorf("secure: write connect info: %w", err)
	}

	resp, err := ReadResponse(rw)
	if err != nil {
		return nil, err
	}
	if resp.Error != NoError {
		return nil, &ResponseError{Code: resp.Error}
	}
	return resp, nil
}

// ReadResponse reads exactly one ConnectInfo message from r, reassembling it
// across arbitrary read boundaries: first the two-byte length prefix, then the
// remainder of the declared length. No byte past the message is consumed.
func ReadResponse(r io.Reader) (*ConnectInfo, error) {
	var prefix [2]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, fmt.Errorf("secure: read connect info length: %w", err)
	}

	total := int(binary.LittleEndian.Uint16(prefix[:]))
	if total < BaseSize || total > MaxSize {
		return nil, fmt.Errorf("secure: connect info length out of range: %d", total)
	}

	buf := make([]byte, total)
	copy(buf, prefix[:])
	if _, err := io.ReadFull(r, buf[2:]); err != nil {
		return nil, fmt.Errorf("secure: read connect info body: %w", err)
	}

	resp, consumed, err := DecodeConnectInfo(buf)
	if err != nil {
		return nil, err
	}
	if consumed != total {
		return nil, fmt.Errorf("secure: connect info consumed %d of %d bytes", consumed, total)
	}
	return resp, nil
}
