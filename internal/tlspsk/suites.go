package tlspsk

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
)

// Cipher suite identifiers (RFC 4279 / RFC 5487). Only pure-PSK CBC suites:
// TwinCAT's embedded TLS accepts nothing with a key-exchange beyond plain PSK.
const (
	TLSPSKWithAES128CBCSHA    uint16 = 0x008C
	TLSPSKWithAES256CBCSHA    uint16 = 0x008D
	TLSPSKWithAES128CBCSHA256 uint16 = 0x00AE
	TLSPSKWithAES256CBCSHA384 uint16 = 0x00AF
)

type cipherSuite struct {
	id      uint16
	name    string
	keyLen  int
	macLen  int
	macHash func() hash.Hash
	prfHash func() hash.Hash
}

// supportedSuites is the offer list, in preference order. The order is part
// of the wire contract: strongest MAC first.
var supportedSuites = []cipherSuite{
	{
		id:      TLSPSKWithAES256CBCSHA384,
		name:    "TLS_PSK_WITH_AES_256_CBC_SHA384",
		keyLen:  32,
		macLen:  48,
		macHash: sha512.New384,
		prfHash: sha512.New384,
	},
	{
		id:      TLSPSKWithAES128CBCSHA256,
		name:    "TLS_PSK_WITH_AES_128_CBC_SHA256",
		keyLen:  16,
		macLen:  32,
		macHash: sha256.New,
		prfHash: sha256.New,
	},
	{
		id:      TLSPSKWithAES256CBCSHA,
		name:    "TLS_PSK_WITH_AES_256_CBC_SHA",
		keyLen:  32,
		macLen:  20,
		macHash: sha1.New,
		prfHash: sha256.New,
	},
	{
		id:      TLSPSKWithAES128CBCSHA,
		name:    "TLS_PSK_WITH_AES_128_CBC_SHA",
		keyLen:  16,
		macLen:  20,
		macHash: sha1.New,
		prfHash: sha256.New,
	},
}

func suiteByID(id uint16) *cipherSuite {
	for i := range supportedSuites {
		if supportedSuites[i].id == id {
			return &supportedSuites[i]
		}
	}
	return nil
}
