package tlspsk

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"encoding/binary"
	"hash"
	"io"
)

// TLS record content types.
const (
	recordChangeCipherSpec = 20
	recordAlert            = 21
	recordHandshake        = 22
	recordApplicationData  = 23
)

const (
	versionTLS12 = 0x0303

	recordHeaderLen = 5

	// maxCiphertext bounds a record body: 2^14 plaintext plus expansion
	// (RFC 5246 section 6.2.3).
	maxCiphertext = 16384 + 2048

	// maxRecordPlaintext is the largest plaintext the engine puts into a
	// single outgoing record.
	maxRecordPlaintext = 16384
)

// halfConn is one direction of the record layer. Before activation records
// pass in the clear; after changeCipherSpec it applies AES-CBC with
// HMAC (MAC-then-encrypt, explicit IV per TLS 1.2).
type halfConn struct {
	active bool
	seq    uint64
	block  cipher.Block
	mac    hash.Hash
}

func (hc *halfConn) activate(suite *cipherSuite, key, macKey []byte) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	hc.block = block
	hc.mac = hmac.New(suite.macHash, macKey)
	hc.seq = 0
	hc.active = true
	return nil
}

// computeMAC builds the record MAC over sequence number and TLSCompressed
// header plus content.
func (hc *halfConn) computeMAC(recType byte, payload []byte) []byte {
	var hdr [13]byte
	binary.BigEndian.PutUint64(hdr[0:8], hc.seq)
	hdr[8] = recType
	binary.BigEndian.PutUint16(hdr[9:11], versionTLS12)
	binary.BigEndian.PutUint16(hdr[11:13], uint16(len(payload)))

	hc.mac.Reset()
	hc.mac.Write(hdr[:])
	hc.mac.Write(payload)
	return hc.mac.Sum(nil)
}

// seal encrypts one record payload: random IV, content || MAC || padding.
func (hc *halfConn) seal(rand io.Reader, recType byte, payload []byte) ([]byte, error) {
	mac := hc.computeMAC(recType, payload)
	hc.seq++

	blockSize := hc.block.BlockSize()
	padLen := blockSize - (len(payload)+len(mac)+1)%blockSize
	plain := make([]byte, 0, len(payload)+len(mac)+padLen+1)
	plain = append(plain, payload...)
	plain = append(plain, mac...)
	for i := 0; i <= padLen; i++ {
		plain = append(plain, byte(padLen))
	}

	iv := make([]byte, blockSize)
	if _, err := io.ReadFull(rand, iv); err != nil {
		return nil, wrapError(CodeInternalError, "generate record IV", err)
	}

	out := make([]byte, blockSize+len(plain))
	copy(out, iv)
	cipher.NewCBCEncrypter(hc.block, iv).CryptBlocks(out[blockSize:], plain)
	return out, nil
}

// open decrypts and authenticates one record body, returning the content.
func (hc *halfConn) open(recType byte, body []byte) ([]byte, error) {
	blockSize := hc.block.BlockSize()
	if len(body) < 2*blockSize || len(body)%blockSize != 0 {
		return nil, newError(CodeAuthenticationFailed, "malformed encrypted record")
	}

	iv := body[:blockSize]
	plain := make([]byte, len(body)-blockSize)
	cipher.NewCBCDecrypter(hc.block, iv).CryptBlocks(plain, body[blockSize:])

	padLen := int(plain[len(plain)-1])
	macLen := hc.mac.Size()
	if padLen+1+macLen > len(plain) {
		return nil, newError(CodeAuthenticationFailed, "bad record padding")
	}
	for _, b := range plain[len(plain)-padLen-1:] {
		if int(b) != padLen {
			return nil, newError(CodeAuthenticationFailed, "bad record padding")
		}
	}

	content := plain[:len(plain)-padLen-1-macLen]
	gotMAC := plain[len(content) : len(content)+macLen]
	wantMAC := hc.computeMAC(recType, content)
	hc.seq++
	if !hmac.Equal(gotMAC, wantMAC) {
		return nil, newError(CodeAuthenticationFailed, "record MAC mismatch")
	}
	return content, nil
}

// appendRecord frames payload as one TLS record, encrypting when the write
// half is active, and appends it to dst.
func appendRecord(dst []byte, hc *halfConn, rand io.Reader, recType byte, payload []byte) ([]byte, error) {
	body := payload
	if hc.active {
		sealed, err := hc.seal(rand, recType, payload)
		if err != nil {
			return dst, err
		}
		body = sealed
	}

	var hdr [recordHeaderLen]byte
	hdr[0] = recType
	binary.BigEndian.PutUint16(hdr[1:3], versionTLS12)
	binary.BigEndian.PutUint16(hdr[3:5], uint16(len(body)))
	dst = append(dst, hdr[:]...)
	dst = append(dst, body...)
	return dst, nil
}
