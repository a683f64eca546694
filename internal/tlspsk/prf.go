package tlspsk

import (
	"crypto/hmac"
	"hash"
)

// pHash implements P_hash from RFC 5246 section 5.
func pHash(newHash func() hash.Hash, secret, seed []byte, n int) []byte {
	out := make([]byte, 0, n)

	mac := hmac.New(newHash, secret)
	mac.Write(seed)
	a := mac.Sum(nil) // A(1)

	for len(out) < n {
		mac.Reset()
		mac.Write(a)
		mac.Write(seed)
		out = append(out, mac.Sum(nil)...)

		mac.Reset()
		mac.Write(a)
		a = mac.Sum(nil)
	}
	return out[:n]
}

// prf12 is the TLS 1.2 pseudo-random function (RFC 5246 section 5) with the
// hash negotiated by the cipher suite.
func prf12(newHash func() hash.Hash, secret []byte, label string, seed []byte, n int) []byte {
	labelAndSeed := make([]byte, 0, len(label)+len(seed))
	labelAndSeed = append(labelAndSeed, label...)
	labelAndSeed = append(labelAndSeed, seed...)
	return pHash(newHash, secret, labelAndSeed, n)
}

// pskPreMasterSecret builds the plain-PSK premaster secret (RFC 4279
// section 2): a zero-filled other_secret of the key's length, then the key,
// both with 16-bit length prefixes.
func pskPreMasterSecret(psk []byte) []byte {
	n := len(psk)
	out := make([]byte, 0, 4+2*n)
	out = append(out, byte(n>>8), byte(n))
	out = append(out, make([]byte, n)...)
	out = append(out, byte(n>>8), byte(n))
	out = append(out, psk...)
	return out
}
