package ams

import (
	"bytes"
	"testing"
)

func TestNetIDString(t *testing.T) {
	n := NetID{10, 20, 30, 40, 1, 1}
	if got, want := n.String(), "10.20.30.40.1.1"; got != want {
		t.Errorf("NetID.String() = %q, want %q", got, want)
	}
}

func TestParseNetID(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    NetID
		wantErr bool
	}{
		{name: "valid", in: "10.20.30.40.1.1", want: NetID{10, 20, 30, 40, 1, 1}},
		{name: "valid max octets", in: "255.255.255.255.255.255", want: NetID{255, 255, 255, 255, 255, 255}},
		{name: "too few octets", in: "10.20.30.40.1", wantErr: true},
		{name: "too many octets", in: "10.20.30.40.1.1.1", wantErr: true},
		{name: "octet out of range", in: "10.20.30.40.1.256", wantErr: true},
		{name: "negative octet", in: "10.20.30.40.1.-1", wantErr: true},
		{name: "not a number", in: "10.20.30.40.1.x", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNetID(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseNetID(%q) succeeded, want error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseNetID(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseNetID(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		TargetNetID: NetID{10, 20, 30, 40, 1, 1},
		TargetPort:  PortPLCRuntime1,
		SourceNetID: NetID{192, 168, 1, 100, 1, 1},
		SourcePort:  32905,
		CommandID:   0x0004,
		StateFlags:  StateFlagsRequest,
		DataLength:  8,
		ErrorCode:   0,
		InvokeID:    0xDEADBEEF,
	}

	buf, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if len(buf) != HeaderSize {
		t.Fatalf("MarshalBinary produced %d bytes, want %d", len(buf), HeaderSize)
	}

	var got Header
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if got != h {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestHeaderLayout(t *testing.T) {
	h := Header{
		TargetNetID: NetID{10, 20, 30, 40, 1, 1},
		TargetPort:  851,
		SourceNetID: NetID{1, 2, 3, 4, 1, 1},
		SourcePort:  32905,
		CommandID:   0x0001,
		StateFlags:  StateFlagsRequest,
		DataLength:  0x11223344,
		ErrorCode:   0x55667788,
		InvokeID:    0x99AABBCC,
	}

	buf, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	if !bytes.Equal(buf[0:6], []byte{10, 20, 30, 40, 1, 1}) {
		t.Errorf("target net ID bytes = % X", buf[0:6])
	}
	// 851 = 0x0353 little-endian
	if buf[6] != 0x53 || buf[7] != 0x03 {
		t.Errorf("target port bytes = % X", buf[6:8])
	}
	if !bytes.Equal(buf[20:24], []byte{0x44, 0x33, 0x22, 0x11}) {
		t.Errorf("data length bytes = % X", buf[20:24])
	}
	if !bytes.Equal(buf[24:28], []byte{0x88, 0x77, 0x66, 0x55}) {
		t.Errorf("error code bytes = % X", buf[24:28])
	}
	if !bytes.Equal(buf[28:32], []byte{0xCC, 0xBB, 0xAA, 0x99}) {
		t.Errorf("invoke ID bytes = % X", buf[28:32])
	}
}

func TestHeaderUnmarshalShort(t *testing.T) {
	var h Header
	if err := h.UnmarshalBinary(make([]byte, 31)); err == nil {
		t.Error("UnmarshalBinary accepted 31 bytes")
	}
}

func TestTCPHeaderRoundTrip(t *testing.T) {
	h := TCPHeader{Reserved: 0, Length: 96}
	buf, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	var got TCPHeader
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if got != h {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestRequestResponseFlags(t *testing.T) {
	req := Header{StateFlags: StateFlagsRequest}
	if !req.IsRequest() || req.IsResponse() {
		t.Error("request flags misclassified")
	}

	resp := Header{StateFlags: StateFlagsResponse}
	if resp.IsRequest() || !resp.IsResponse() {
		t.Error("response flags misclassified")
	}
}
