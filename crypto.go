package ipmigo

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
)

// hashAlgorithm identifies the underlying digest used by an authentication
// or integrity algorithm (Section 13.28).
type hashAlgorithm uint8

const (
	hashNone hashAlgorithm = iota
	hashSHA1
	hashMD5
	hashSHA256
)

func (h hashAlgorithm) new() func() hash.Hash {
	switch h {
	case hashSHA1:
		return sha1.New
	case hashMD5:
		return md5.New
	case hashSHA256:
		return sha256.New
	default:
		panic(fmt.Sprintf("ipmigo: no digest for hash algorithm %d", h))
	}
}

// Size returns the digest length in bytes produced by this algorithm.
func (h hashAlgorithm) Size() int {
	switch h {
	case hashSHA1:
		return sha1.Size
	case hashMD5:
		return md5.Size
	case hashSHA256:
		return sha256.Size
	default:
		return 0
	}
}

// hmacSum computes HMAC(alg, key, msg...), concatenating msg parts before MAC'ing.
func hmacSum(alg hashAlgorithm, key []byte, msg ...[]byte) []byte {
	mac := hmac.New(alg.new(), key)
	for _, m := range msg {
		mac.Write(m)
	}
	return mac.Sum(nil)
}

// hmacEqual performs a constant-time comparison of two MACs, as required
// for all RAKP/authcode verification (Design Note: constant-time compares).
func hmacEqual(a, b []byte) bool {
	return hmac.Equal(a, b)
}

// aes128CBCEncrypt encrypts plaintext (which must already be padded to a
// multiple of aes.BlockSize) into a newly allocated slice using AES-CBC-128
// and the given IV.
// It does not add any padding; callers apply the IPMI confidentiality pad
// themselves (Section 13.29).
func aes128CBCEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	if len(plaintext)%aes.BlockSize != 0 {
		return nil, &ArgumentError{Value: len(plaintext), Message: "plaintext is not a multiple of the AES block size"}
	}
	block, err := aes.NewCipher(key[:16])
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plaintext)
	return out, nil
}

// aes128CBCDecrypt decrypts ciphertext (a multiple of aes.BlockSize) using
// AES-CBC-128 and the given IV. No padding is stripped here.
func aes128CBCDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, &MessageError{Message: fmt.Sprintf("ciphertext is not a multiple of the AES block size : %d", len(ciphertext))}
	}
	block, err := aes.NewCipher(key[:16])
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return out, nil
}

// csprngBytes returns n cryptographically random bytes, seeded from the
// system entropy source. A failure here is fatal to the caller - there is
// no safe fallback for session randoms or IVs.
func csprngBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, &TransportError{Cause: err, Message: "failed to read CSPRNG entropy"}
	}
	return b, nil
}

// encryptPayload applies the Section 13.29 confidentiality transform:
// IV (16 random bytes) || AES-CBC-128(K2, plaintext || pad || pad_len).
func encryptPayload(src, k2 []byte) ([]byte, error) {
	srcLen := len(src)
	padLen := 0
	if mod := (srcLen + 1) % aes.BlockSize; mod != 0 {
		padLen = aes.BlockSize - mod
	}
	input := make([]byte, srcLen+padLen+1)
	copy(input, src)
	for i := 0; i < padLen; i++ {
		input[srcLen+i] = byte(i + 1)
	}
	input[srcLen+padLen] = byte(padLen)

	iv, err := csprngBytes(aes.BlockSize)
	if err != nil {
		return nil, err
	}
	ct, err := aes128CBCEncrypt(k2, iv, input)
	if err != nil {
		return nil, err
	}
	return append(iv, ct...), nil
}

// decryptPayload reverses encryptPayload, returning the original plaintext
// with the confidentiality pad stripped.
func decryptPayload(src, k2 []byte) ([]byte, error) {
	if l := len(src); l < aes.BlockSize*2 {
		return nil, &MessageError{Message: fmt.Sprintf("encrypted payload is too short : %d", l)}
	}
	iv, ct := src[:aes.BlockSize], src[aes.BlockSize:]
	plain, err := aes128CBCDecrypt(k2, iv, ct)
	if err != nil {
		return nil, err
	}
	padLen := int(plain[len(plain)-1])
	if padLen+1 > len(plain) {
		return nil, &MessageError{Message: fmt.Sprintf("invalid confidentiality pad length : %d", padLen)}
	}
	return plain[:len(plain)-padLen-1], nil
}
