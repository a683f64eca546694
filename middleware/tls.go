package middleware

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// loadKeypair loads a PEM certificate/key pair from disk.
func loadKeypair(certFile, keyFile string) (tls.Certificate, error) {
	if certFile == "" || keyFile == "" {
		return tls.Certificate{}, fmt.Errorf("secure mode requires cert_file and key_file")
	}
	keypair, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("load client keypair: %w", err)
	}
	return keypair, nil
}

// loadCertPool loads a PEM CA bundle into a cert pool.
func loadCertPool(caFile string) (*x509.CertPool, error) {
	if caFile == "" {
		return nil, fmt.Errorf("shared-ca mode requires ca_file")
	}
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates parsed from %s", caFile)
	}
	return pool, nil
}
