package goadssec

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mrpasztoradam/goadssec/internal/secure"
	"github.com/mrpasztoradam/goadssec/internal/tlspsk"
)

// Mode identifies the Secure ADS authentication variant.
type Mode int

const (
	// ModeSelfSigned authenticates with a self-signed client certificate,
	// optionally registering a route with credentials on first contact.
	ModeSelfSigned Mode = iota + 1

	// ModeSharedCA authenticates with a certificate issued by a CA the
	// target trusts.
	ModeSharedCA

	// ModePSK authenticates with a TLS pre-shared key.
	ModePSK
)

func (m Mode) String() string {
	switch m {
	case ModeSelfSigned:
		return "self-signed"
	case ModeSharedCA:
		return "shared-ca"
	case ModePSK:
		return "psk"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// PSKLength is the required pre-shared key size in bytes.
const PSKLength = 32

// SecureConfig selects one of the three Secure ADS authentication variants.
// Construct it with SelfSigned, SharedCA, or PreSharedKey; the zero value is
// invalid.
type SecureConfig struct {
	mode Mode

	// certificate modes
	keypair tls.Certificate
	caPool  *x509.CertPool

	// self-signed route registration
	username string
	password string
	ipAddr   bool
	ignoreCN bool

	// PSK mode
	identity string
	key      []byte

	hostname string
}

// SelfSigned configures Secure ADS with a self-signed client certificate.
// Without credentials the target must already know the certificate (an
// established route).
func SelfSigned(keypair tls.Certificate) *SecureConfig {
	return &SecureConfig{mode: ModeSelfSigned, keypair: keypair}
}

// SharedCA configures Secure ADS with a client certificate issued by a CA
// shared with the target. The server certificate is verified against caPool;
// hostname verification stays off because device CNs rarely match.
func SharedCA(keypair tls.Certificate, caPool *x509.CertPool) *SecureConfig {
	return &SecureConfig{mode: ModeSharedCA, keypair: keypair, caPool: caPool}
}

// PreSharedKey configures Secure ADS with a raw 32-byte pre-shared key. The
// identity goes on the wire exactly as given.
func PreSharedKey(identity string, key []byte) (*SecureConfig, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, fmt.Errorf("goadssec: PSK identity must not be blank")
	}
	if len(key) != PSKLength {
		return nil, fmt.Errorf("goadssec: PSK must be %d bytes, got %d", PSKLength, len(key))
	}
	k := make([]byte, PSKLength)
	copy(k, key)
	return &SecureConfig{mode: ModePSK, identity: identity, key: k}, nil
}

// PreSharedKeyHex is PreSharedKey for a 64-character hex key string.
func PreSharedKeyHex(identity, hexKey string) (*SecureConfig, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("goadssec: PSK hex key: %w", err)
	}
	return PreSharedKey(identity, key)
}

// PreSharedKeyPassword derives the key from identity and password using the
// TwinCAT convention; see DerivePSK.
func PreSharedKeyPassword(identity, password string) (*SecureConfig, error) {
	return PreSharedKey(identity, DerivePSK(identity, password))
}

// DerivePSK implements the default TwinCAT key derivation:
// SHA-256(uppercase(identity) || password). The identity is uppercased only
// for derivation; the wire keeps its original spelling.
func DerivePSK(identity, password string) []byte {
	h := sha256.New()
	h.Write([]byte(strings.ToUpper(identity)))
	h.Write([]byte(password))
	return h.Sum(nil)
}

// WithRouteRegistration adds credentials for self-signed route registration.
// The target stores the certificate fingerprint on first contact.
func (sc *SecureConfig) WithRouteRegistration(username, password string) *SecureConfig {
	sc.username = username
	sc.password = password
	return sc
}

// WithIPAddr asks the target to register the route by IP address.
func (sc *SecureConfig) WithIPAddr() *SecureConfig {
	sc.ipAddr = true
	return sc
}

// WithIgnoreCN asks the target to skip common-name checks on the route.
func (sc *SecureConfig) WithIgnoreCN() *SecureConfig {
	sc.ignoreCN = true
	return sc
}

// WithHostname overrides the hostname announced in the ConnectInfo exchange.
// The system hostname is used otherwise.
func (sc *SecureConfig) WithHostname(hostname string) *SecureConfig {
	sc.hostname = hostname
	return sc
}

// Mode returns the configured authentication variant.
func (sc *SecureConfig) Mode() Mode {
	return sc.mode
}

// validate is called from client construction.
func (sc *SecureConfig) validate() error {
	switch sc.mode {
	case ModeSelfSigned:
		if len(sc.keypair.Certificate) == 0 {
			return fmt.Errorf("goadssec: self-signed mode requires a client certificate")
		}
		if (sc.username != "") != (sc.password != "") {
			return fmt.Errorf("goadssec: route registration requires both username and password")
		}
	case ModeSharedCA:
		if len(sc.keypair.Certificate) == 0 {
			return fmt.Errorf("goadssec: shared-CA mode requires a client certificate")
		}
		if sc.caPool == nil {
			return fmt.Errorf("goadssec: shared-CA mode requires a CA pool")
		}
	case ModePSK:
		if strings.TrimSpace(sc.identity) == "" {
			return fmt.Errorf("goadssec: PSK identity must not be blank")
		}
		if len(sc.key) != PSKLength {
			return fmt.Errorf("goadssec: PSK must be %d bytes", PSKLength)
		}
	default:
		return fmt.Errorf("goadssec: secure config without a mode; use SelfSigned, SharedCA, or PreSharedKey")
	}
	return nil
}

// tlsConfig builds the crypto/tls configuration for the certificate modes.
// Endpoint identification is disabled: device certificates routinely carry
// IPs or mismatched CNs. For shared-CA mode the chain is still verified
// against the configured pool via VerifyPeerCertificate.
func (sc *SecureConfig) tlsConfig() *tls.Config {
	cfg := &tls.Config{
		Certificates:       []tls.Certificate{sc.keypair},
		MinVersion:         tls.VersionTLS12,
		MaxVersion:         tls.VersionTLS12,
		InsecureSkipVerify: true,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
		},
	}

	if sc.mode == ModeSharedCA {
		pool := sc.caPool
		cfg.VerifyPeerCertificate = func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			if len(rawCerts) == 0 {
				return fmt.Errorf("goadssec: server presented no certificate")
			}
			certs := make([]*x509.Certificate, 0, len(rawCerts))
			for _, raw := range rawCerts {
				cert, err := x509.ParseCertificate(raw)
				if err != nil {
					return fmt.Errorf("goadssec: parse server certificate: %w", err)
				}
				certs = append(certs, cert)
			}
			opts := x509.VerifyOptions{
				Roots:         pool,
				Intermediates: x509.NewCertPool(),
			}
			for _, cert := range certs[1:] {
				opts.Intermediates.AddCert(cert)
			}
			if _, err := certs[0].Verify(opts); err != nil {
				return fmt.Errorf("goadssec: server certificate not signed by shared CA: %w", err)
			}
			return nil
		}
	}

	return cfg
}

// pskConfig builds the PSK engine configuration.
func (sc *SecureConfig) pskConfig() *tlspsk.Config {
	return &tlspsk.Config{
		Identity: []byte(sc.identity),
		Key:      sc.key,
	}
}

// connectInfoFlags derives the ConnectInfo request flags from the variant.
func (sc *SecureConfig) connectInfoFlags() secure.Flags {
	if sc.mode != ModeSelfSigned {
		return 0
	}
	if sc.username == "" {
		// Established route: the target already pinned the certificate.
		return secure.FlagSelfSigned
	}
	flags := secure.FlagAddRemote | secure.FlagSelfSigned
	if sc.ipAddr {
		flags |= secure.FlagIPAddr
	}
	if sc.ignoreCN {
		flags |= secure.FlagIgnoreCN
	}
	return flags
}
