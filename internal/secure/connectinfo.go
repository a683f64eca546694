// Package secure implements the Secure ADS application-layer handshake.
//
// After the TLS tunnel is established, client and server exchange a single
// ConnectInfo request/response pair before any AMS traffic flows. The message
// is undocumented by Beckhoff; the layout here matches what TwinCAT routers
// speak on port 8016.
package secure

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding/charmap"

	"github.com/mrpasztoradam/goadssec/internal/ams"
)

const (
	// BaseSize is the size of a ConnectInfo without credentials.
	BaseSize = 64

	// MaxSize is the largest valid ConnectInfo message.
	MaxSize = 512

	// hostnameFieldLen is the fixed size of the null-padded hostname field.
	hostnameFieldLen = 32

	// Version is the only protocol version in the wild.
	Version = 1
)

// Flags is the ConnectInfo flag bitfield.
type Flags uint16

const (
	FlagResponse   Flags = 0x01 // set on server responses
	FlagAmsAllowed Flags = 0x02 // server grants AMS traffic
	FlagServerInfo Flags = 0x04
	FlagOwnFile    Flags = 0x08
	FlagSelfSigned Flags = 0x10 // client authenticates with a self-signed cert
	FlagIPAddr     Flags = 0x20 // register the route by IP address
	FlagIgnoreCN   Flags = 0x40 // ask the router to skip CN checks
	FlagAddRemote  Flags = 0x80 // register a new remote route
)

// Has reports whether all bits of mask are set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

// TLSError is the error code field of a ConnectInfo response.
type TLSError uint8

const (
	NoError        TLSError = 0
	ErrVersion     TLSError = 1
	ErrCnMismatch  TLSError = 2
	ErrUnknownCert TLSError = 3
	ErrUnknownUser TLSError = 4
)

func (e TLSError) String() string {
	switch e {
	case NoError:
		return "NoError"
	case ErrVersion:
		return "Version"
	case ErrCnMismatch:
		return "CnMismatch"
	case ErrUnknownCert:
		return "UnknownCert"
	case ErrUnknownUser:
		return "UnknownUser"
	default:
		return fmt.Sprintf("TLSError(%d)", uint8(e))
	}
}

// ConnectInfo is the Secure ADS application-layer handshake message.
//
// Credentials are present iff both Username and Password are non-empty; the
// wire form prefixes each with a single length byte. All strings travel as
// Windows-1252.
type ConnectInfo struct {
	Flags    Flags
	Version  uint8
	Error    TLSError
	NetID    ams.NetID
	Hostname string
	Username string
	Password string
}

// NewRequest builds a client ConnectInfo with Version set.
func NewRequest(flags Flags, netID ams.NetID, hostname, username, password string) *ConnectInfo {
	return &ConnectInfo{
		Flags:    flags,
		Version:  Version,
		NetID:    netID,
		Hostname: hostname,
		Username: username,
		Password: password,
	}
}

// HasCredentials reports whether the message carries a username/password pair.
func (ci *ConnectInfo) HasCredentials() bool {
	return ci.Username != "" && ci.Password != ""
}

// Length returns the declared total length of the encoded message.
func (ci *ConnectInfo) Length() (int, error) {
	user, pwd, err := ci.credentialBytes()
	if err != nil {
		return 0, err
	}
	return BaseSize + len(user) + len(pwd), nil
}

func (ci *ConnectInfo) credentialBytes() (user, pwd []byte, err error) {
	if (ci.Username != "") != (ci.Password != "") {
		return nil, nil, fmt.Errorf("secure: username and password must both be set or both be empty")
	}
	if !ci.HasCredentials() {
		return nil, nil, nil
	}
	user, err = encodeString(ci.Username)
	if err != nil {
		return nil, nil, fmt.Errorf("secure: encode username: %w", err)
	}
	pwd, err = encodeString(ci.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("secure: encode password: %w", err)
	}
	if len(user) > 255 || len(pwd) > 255 {
		return nil, nil, fmt.Errorf("secure: credential longer than 255 bytes")
	}
	return user, pwd, nil
}

// MarshalBinary encodes the ConnectInfo into its wire form (little-endian).
func (ci *ConnectInfo) MarshalBinary() ([]byte, error) {
	user, pwd, err := ci.credentialBytes()
	if err != nil {
		return nil, err
	}

	total := BaseSize + len(user) + len(pwd)
	if total > MaxSize {
		return nil, fmt.Errorf("secure: connect info of %d bytes exceeds maximum %d", total, MaxSize)
	}

	host, err := encodeString(ci.Hostname)
	if err != nil {
		return nil, fmt.Errorf("secure: encode hostname: %w", err)
	}
	if len(host) > hostnameFieldLen {
		host = host[:hostnameFieldLen]
	}

	buf := make([]byte, total)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(total))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(ci.Flags))
	buf[4] = ci.Version
	buf[5] = byte(ci.Error)
	copy(buf[6:12], ci.NetID[:])
	buf[12] = byte(len(user))
	buf[13] = byte(len(pwd))
	// bytes 14..31 reserved, zero
	copy(buf[32:32+hostnameFieldLen], host)
	copy(buf[BaseSize:], user)
	copy(buf[BaseSize+len(user):], pwd)
	return buf, nil
}

// DecodeConnectInfo decodes a ConnectInfo from the front of data and returns
// the number of bytes consumed. Violations of the length and credential
// invariants are hard protocol errors.
func DecodeConnectInfo(data []byte) (*ConnectInfo, int, error) {
	if len(data) < BaseSize {
		return nil, 0, fmt.Errorf("secure: connect info requires %d bytes, got %d", BaseSize, len(data))
	}

	total := int(binary.LittleEndian.Uint16(data[0:2]))
	if total < BaseSize || total > MaxSize {
		return nil, 0, fmt.Errorf("secure: connect info length out of range: %d", total)
	}
	if len(data) < total {
		return nil, 0, fmt.Errorf("secure: connect info requires %d bytes, got %d", total, len(data))
	}

	userLen := int(data[12])
	pwdLen := int(data[13])
	if (userLen > 0) != (pwdLen > 0) {
		return nil, 0, fmt.Errorf("secure: connect info carries username without password or vice versa")
	}
	if BaseSize+userLen+pwdLen != total {
		return nil, 0, fmt.Errorf("secure: connect info length %d does not match credential lengths %d+%d",
			total, userLen, pwdLen)
	}

	ci := &ConnectInfo{
		Flags:   Flags(binary.LittleEndian.Uint16(data[2:4])),
		Version: data[4],
		Error:   TLSError(data[5]),
	}
	copy(ci.NetID[:], data[6:12])

	host, err := decodeString(bytes.TrimRight(data[32:32+hostnameFieldLen], "\x00"))
	if err != nil {
		return nil, 0, fmt.Errorf("secure: decode hostname: %w", err)
	}
	ci.Hostname = host

	if userLen > 0 {
		user, err := decodeString(data[BaseSize : BaseSize+userLen])
		if err != nil {
			return nil, 0, fmt.Errorf("secure: decode username: %w", err)
		}
		pwd, err := decodeString(data[BaseSize+userLen : BaseSize+userLen+pwdLen])
		if err != nil {
			return nil, 0, fmt.Errorf("secure: decode password: %w", err)
		}
		ci.Username, ci.Password = user, pwd
	}

	return ci, total, nil
}

// encodeString converts a Go string to Windows-1252 bytes.
func encodeString(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return charmap.Windows1252.NewEncoder().Bytes([]byte(s))
}

// decodeString converts Windows-1252 bytes to a Go string.
func decodeString(b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
