package secure

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/mrpasztoradam/goadssec/internal/ams"
)

func TestMarshalRouteAddRequest(t *testing.T) {
	// Self-signed certificate route registration with credentials.
	ci := NewRequest(
		FlagAddRemote|FlagSelfSigned|FlagIPAddr|FlagIgnoreCN,
		ams.NetID{10, 20, 30, 40, 1, 1},
		"PC-01", "Administrator", "1",
	)

	buf, err := ci.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	if len(buf) != 78 {
		t.Fatalf("encoded length = %d, want 78", len(buf))
	}
	if buf[0] != 0x4E || buf[1] != 0x00 {
		t.Errorf("length bytes = % X, want 4E 00", buf[0:2])
	}
	if buf[2] != 0xF0 || buf[3] != 0x00 {
		t.Errorf("flag bytes = % X, want F0 00", buf[2:4])
	}
	if buf[4] != 0x01 {
		t.Errorf("version byte = %02X, want 01", buf[4])
	}
	if buf[5] != 0x00 {
		t.Errorf("error byte = %02X, want 00", buf[5])
	}
	if !bytes.Equal(buf[6:12], []byte{0x0A, 0x14, 0x1E, 0x28, 0x01, 0x01}) {
		t.Errorf("net ID bytes = % X", buf[6:12])
	}
	if buf[12] != 13 || buf[13] != 1 {
		t.Errorf("credential length bytes = %d, %d, want 13, 1", buf[12], buf[13])
	}
	if !bytes.Equal(buf[14:32], make([]byte, 18)) {
		t.Errorf("reserved bytes not zero: % X", buf[14:32])
	}
	if !bytes.Equal(buf[32:37], []byte("PC-01")) {
		t.Errorf("hostname bytes = % X", buf[32:37])
	}
	if !bytes.Equal(buf[37:64], make([]byte, 27)) {
		t.Errorf("hostname padding not zero: % X", buf[37:64])
	}
	if !bytes.Equal(buf[64:77], []byte("Administrator")) {
		t.Errorf("username bytes = % X", buf[64:77])
	}
	if buf[77] != '1' {
		t.Errorf("password byte = %02X, want %02X", buf[77], '1')
	}
}

func TestDecodeServerResponse(t *testing.T) {
	buf := make([]byte, 64)
	binary.LittleEndian.PutUint16(buf[0:2], 64)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(FlagResponse|FlagAmsAllowed))
	buf[4] = 1
	buf[5] = 0
	copy(buf[6:12], []byte{0xC0, 0xA8, 0x01, 0x64, 0x01, 0x01})
	copy(buf[32:], "PLC-01")

	ci, consumed, err := DecodeConnectInfo(buf)
	if err != nil {
		t.Fatalf("DecodeConnectInfo: %v", err)
	}
	if consumed != 64 {
		t.Errorf("consumed = %d, want 64", consumed)
	}
	if !ci.Flags.Has(FlagResponse | FlagAmsAllowed) {
		t.Errorf("flags = 0x%04X", uint16(ci.Flags))
	}
	if ci.Version != 1 || ci.Error != NoError {
		t.Errorf("version = %d, error = %v", ci.Version, ci.Error)
	}
	if want := (ams.NetID{192, 168, 1, 100, 1, 1}); ci.NetID != want {
		t.Errorf("net ID = %v, want %v", ci.NetID, want)
	}
	if ci.Hostname != "PLC-01" {
		t.Errorf("hostname = %q", ci.Hostname)
	}
	if ci.HasCredentials() {
		t.Error("response unexpectedly carries credentials")
	}
}

func TestDecodeRejectsLengthOutOfRange(t *testing.T) {
	buf := make([]byte, 64)
	buf[0] = 0x02 // declared length 2
	for i := 2; i < 64; i++ {
		buf[i] = byte(i * 7)
	}

	_, _, err := DecodeConnectInfo(buf)
	if err == nil {
		t.Fatal("DecodeConnectInfo accepted out-of-range length")
	}
	if !strings.Contains(err.Error(), "length out of range") {
		t.Errorf("error = %v, want length out of range", err)
	}
}

func TestDecodeRejectsShortInput(t *testing.T) {
	if _, _, err := DecodeConnectInfo(make([]byte, 63)); err == nil {
		t.Error("DecodeConnectInfo accepted 63 bytes")
	}
}

func TestDecodeRejectsLoneCredential(t *testing.T) {
	buf := make([]byte, 70)
	binary.LittleEndian.PutUint16(buf[0:2], 70)
	buf[12] = 6 // username length without password
	copy(buf[64:], "achmed")

	if _, _, err := DecodeConnectInfo(buf); err == nil {
		t.Error("DecodeConnectInfo accepted username without password")
	}
}

func TestDecodeRejectsLengthCredentialMismatch(t *testing.T) {
	buf := make([]byte, 70)
	binary.LittleEndian.PutUint16(buf[0:2], 70)
	buf[12] = 2
	buf[13] = 2 // 64+2+2 = 68 != 70

	if _, _, err := DecodeConnectInfo(buf); err == nil {
		t.Error("DecodeConnectInfo accepted mismatched length")
	}
}

func TestRoundTripWithCredentials(t *testing.T) {
	tests := []struct {
		name string
		ci   *ConnectInfo
	}{
		{
			name: "no credentials",
			ci:   NewRequest(0, ams.NetID{1, 2, 3, 4, 1, 1}, "host", "", ""),
		},
		{
			name: "with credentials",
			ci:   NewRequest(FlagAddRemote|FlagSelfSigned, ams.NetID{10, 0, 0, 1, 1, 1}, "engineering-pc", "user", "pa55w0rd"),
		},
		{
			name: "windows-1252 username",
			ci:   NewRequest(FlagAddRemote|FlagSelfSigned, ams.NetID{10, 0, 0, 1, 1, 1}, "PC", "Jürgen", "geheim"),
		},
		{
			name: "empty hostname",
			ci:   NewRequest(0, ams.NetID{}, "", "", ""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := tt.ci.MarshalBinary()
			if err != nil {
				t.Fatalf("MarshalBinary: %v", err)
			}

			wantLen, err := tt.ci.Length()
			if err != nil {
				t.Fatalf("Length: %v", err)
			}
			if len(buf) != wantLen {
				t.Errorf("encoded %d bytes, Length() = %d", len(buf), wantLen)
			}

			got, consumed, err := DecodeConnectInfo(buf)
			if err != nil {
				t.Fatalf("DecodeConnectInfo: %v", err)
			}
			if consumed != len(buf) {
				t.Errorf("consumed %d of %d bytes", consumed, len(buf))
			}
			if *got != *tt.ci {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, tt.ci)
			}
		})
	}
}

func TestWindows1252EncodingOnWire(t *testing.T) {
	ci := NewRequest(0, ams.NetID{}, "Büro-PC", "", "")
	buf, err := ci.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	// 0xFC is u-umlaut in Windows-1252; UTF-8 would take two bytes.
	if !bytes.Equal(buf[32:39], []byte{'B', 0xFC, 'r', 'o', '-', 'P', 'C'}) {
		t.Errorf("hostname bytes = % X", buf[32:40])
	}
}

func TestHostnameTruncatedToField(t *testing.T) {
	long := strings.Repeat("h", 40)
	ci := NewRequest(0, ams.NetID{}, long, "", "")
	buf, err := ci.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if len(buf) != BaseSize {
		t.Fatalf("encoded length = %d", len(buf))
	}

	got, _, err := DecodeConnectInfo(buf)
	if err != nil {
		t.Fatalf("DecodeConnectInfo: %v", err)
	}
	if got.Hostname != strings.Repeat("h", 32) {
		t.Errorf("hostname = %q, want 32 h's", got.Hostname)
	}
}

func TestMarshalRejectsLoneCredential(t *testing.T) {
	ci := NewRequest(0, ams.NetID{}, "pc", "user", "")
	if _, err := ci.MarshalBinary(); err == nil {
		t.Error("MarshalBinary accepted username without password")
	}
}

func TestTLSErrorNames(t *testing.T) {
	tests := []struct {
		err  TLSError
		want string
	}{
		{NoError, "NoError"},
		{ErrVersion, "Version"},
		{ErrCnMismatch, "CnMismatch"},
		{ErrUnknownCert, "UnknownCert"},
		{ErrUnknownUser, "UnknownUser"},
		{TLSError(9), "TLSError(9)"},
	}
	for _, tt := range tests {
		if got := tt.err.String(); got != tt.want {
			t.Errorf("TLSError(%d).String() = %q, want %q", uint8(tt.err), got, tt.want)
		}
	}
}
