package secure

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/mrpasztoradam/goadssec/internal/ams"
)

func encodedResponse(t *testing.T, tlsErr TLSError) []byte {
	t.Helper()
	resp := &ConnectInfo{
		Flags:    FlagResponse | FlagAmsAllowed,
		Version:  Version,
		Error:    tlsErr,
		NetID:    ams.NetID{192, 168, 1, 100, 1, 1},
		Hostname: "PLC-01",
	}
	buf, err := resp.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	return buf
}

func TestReadResponseOneBytePerRead(t *testing.T) {
	// Arbitrary chunking must yield exactly one decoded response.
	buf := encodedResponse(t, NoError)
	r := iotest.OneByteReader(bytes.NewReader(buf))

	resp, err := ReadResponse(r)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if resp.Hostname != "PLC-01" {
		t.Errorf("hostname = %q", resp.Hostname)
	}

	// Nothing past the message may have been consumed.
	if _, err := ReadResponse(r); !errors.Is(err, io.EOF) {
		t.Errorf("second ReadResponse = %v, want EOF", err)
	}
}

func TestReadResponseDoesNotOverconsume(t *testing.T) {
	buf := encodedResponse(t, NoError)
	trailing := []byte{0xAA, 0xBB, 0xCC}
	r := bytes.NewReader(append(append([]byte{}, buf...), trailing...))

	if _, err := ReadResponse(r); err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}

	rest, _ := io.ReadAll(r)
	if !bytes.Equal(rest, trailing) {
		t.Errorf("remaining bytes = % X, want % X", rest, trailing)
	}
}

func TestReadResponseRejectsBadLength(t *testing.T) {
	if _, err := ReadResponse(bytes.NewReader([]byte{0x02, 0x00})); err == nil {
		t.Error("ReadResponse accepted length 2")
	}
}

func TestReadResponseTruncatedBody(t *testing.T) {
	buf := encodedResponse(t, NoError)
	if _, err := ReadResponse(bytes.NewReader(buf[:40])); err == nil {
		t.Error("ReadResponse accepted truncated body")
	}
}

func TestExchangeSuccess(t *testing.T) {
	var written bytes.Buffer
	rw := struct {
		io.Reader
		io.Writer
	}{bytes.NewReader(encodedResponse(t, NoError)), &written}

	req := NewRequest(0, ams.NetID{10, 20, 30, 40, 1, 1}, "PC-01", "", "")
	resp, err := Exchange(rw, req)
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if resp.Error != NoError {
		t.Errorf("response error = %v", resp.Error)
	}

	wantReq, _ := req.MarshalBinary()
	if !bytes.Equal(written.Bytes(), wantReq) {
		t.Errorf("request on wire = % X, want % X", written.Bytes(), wantReq)
	}
}

func TestExchangeServerError(t *testing.T) {
	var written bytes.Buffer
	rw := struct {
		io.Reader
		io.Writer
	}{bytes.NewReader(encodedResponse(t, ErrUnknownCert)), &written}

	_, err := Exchange(rw, NewRequest(0, ams.NetID{}, "PC", "", ""))
	if err == nil {
		t.Fatal("Exchange accepted error response")
	}

	var respErr *ResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("error type = %T", err)
	}
	if respErr.Code != ErrUnknownCert {
		t.Errorf("code = %v, want UnknownCert", respErr.Code)
	}
	if !strings.Contains(err.Error(), "UnknownCert") {
		t.Errorf("error message %q does not name the code", err.Error())
	}
}
