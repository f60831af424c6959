package ipmigo

import (
	"fmt"
)

// Authentication Algorithm (Section 13.28)
type authAlgorithm uint8

const (
	authRakpNone authAlgorithm = iota
	authRakpHmacSHA1
	authRakpHmacMD5
	authRakpHmacSHA256
)

func (a authAlgorithm) String() string {
	switch a {
	case authRakpNone:
		return "RAKP-none"
	case authRakpHmacSHA1:
		return "RAKP-HMAC-SHA1"
	case authRakpHmacMD5:
		return "RAKP-HMAC-MD5"
	case authRakpHmacSHA256:
		return "RAKP-HMAC-SHA256"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

func (a authAlgorithm) hash() hashAlgorithm {
	switch a {
	case authRakpNone:
		return hashNone
	case authRakpHmacSHA1:
		return hashSHA1
	case authRakpHmacMD5:
		return hashMD5
	case authRakpHmacSHA256:
		return hashSHA256
	default:
		panic(fmt.Sprintf("ipmigo: unsupported auth algorithm - %s", a))
	}
}

// Integrity Algorithm (Section 13.28.4)
type integrityAlgorithm uint8

const (
	integrityNone integrityAlgorithm = iota
	integrityHmacSHA1_96
	integrityHmacMD5_128
	integrityMD5_128
	integrityHmacSHA256_128
)

func (a integrityAlgorithm) String() string {
	switch a {
	case integrityNone:
		return "None"
	case integrityHmacSHA1_96:
		return "HMAC-SHA1-96"
	case integrityHmacMD5_128:
		return "HMAC-MD5-128"
	case integrityMD5_128:
		return "MD5-128"
	case integrityHmacSHA256_128:
		return "HMAC-SHA256-128"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// macLength returns the length, in bytes, of the truncated authcode carried
// in the session trailer for this algorithm.
func (a integrityAlgorithm) macLength() int {
	switch a {
	case integrityNone:
		return 0
	case integrityHmacSHA1_96:
		return 12
	case integrityHmacMD5_128, integrityHmacSHA256_128:
		return 16
	case integrityMD5_128:
		return 16
	default:
		return 0
	}
}

func (a integrityAlgorithm) hash() hashAlgorithm {
	switch a {
	case integrityHmacSHA1_96:
		return hashSHA1
	case integrityHmacMD5_128, integrityMD5_128:
		return hashMD5
	case integrityHmacSHA256_128:
		return hashSHA256
	default:
		panic(fmt.Sprintf("ipmigo: unsupported integrity algorithm - %s", a))
	}
}

// Confidentiality Algorithm (Section 13.28.5)
type cryptAlgorithm uint8

const (
	cryptNone cryptAlgorithm = iota
	cryptAesCBC_128
	cryptXRC4_128
	cryptXRC4_40
)

func (a cryptAlgorithm) String() string {
	switch a {
	case cryptNone:
		return "None"
	case cryptAesCBC_128:
		return "AES-CBC-128"
	case cryptXRC4_128:
		return "xRC4-128"
	case cryptXRC4_40:
		return "xRC4-40"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// Cipher Suite (Section 22.15.2)
type cipherSuite struct {
	Auth      authAlgorithm
	Integrity integrityAlgorithm
	Crypt     cryptAlgorithm
}

func (c *cipherSuite) Equal(o *cipherSuite) bool {
	return c.Auth == o.Auth && c.Integrity == o.Integrity && c.Crypt == o.Crypt
}

func (c *cipherSuite) String() string {
	return fmt.Sprintf(`{"Auth":"%s","Integrity":"%s","Crypt":"%s"}`, c.Auth, c.Integrity, c.Crypt)
}

// Cipher Suite IDs (Table 22-20). All 18 reserved IDs must decode; only
// suite 3 (spec-required fallback) and suite 17 (SHA-256) need be preferred.
var cipherSuiteIDs = []cipherSuite{
	{authRakpNone, integrityNone, cryptNone},                // 0
	{authRakpHmacSHA1, integrityNone, cryptNone},             // 1
	{authRakpHmacSHA1, integrityHmacSHA1_96, cryptNone},      // 2
	{authRakpHmacSHA1, integrityHmacSHA1_96, cryptAesCBC_128},// 3 (required fallback)
	{authRakpHmacSHA1, integrityHmacSHA1_96, cryptXRC4_128},  // 4
	{authRakpHmacSHA1, integrityHmacSHA1_96, cryptXRC4_40},   // 5
	{authRakpHmacMD5, integrityNone, cryptNone},              // 6
	{authRakpHmacMD5, integrityHmacMD5_128, cryptNone},       // 7
	{authRakpHmacMD5, integrityHmacMD5_128, cryptAesCBC_128}, // 8
	{authRakpHmacMD5, integrityHmacMD5_128, cryptXRC4_128},   // 9
	{authRakpHmacMD5, integrityHmacMD5_128, cryptXRC4_40},    // 10
	{authRakpHmacMD5, integrityMD5_128, cryptNone},           // 11
	{authRakpHmacMD5, integrityMD5_128, cryptAesCBC_128},     // 12
	{authRakpHmacMD5, integrityMD5_128, cryptXRC4_128},       // 13
	{authRakpHmacMD5, integrityMD5_128, cryptXRC4_40},        // 14
	{authRakpHmacSHA256, integrityNone, cryptNone},                  // 15
	{authRakpHmacSHA256, integrityHmacSHA256_128, cryptNone},        // 16
	{authRakpHmacSHA256, integrityHmacSHA256_128, cryptAesCBC_128},  // 17 (preferred)
}

// DefaultCipherSuitePreference is the order bestCipherSuite walks when
// probing a BMC's advertised suites (Section 4.4: "best-available selector").
var DefaultCipherSuitePreference = []uint{17, 3}

func suiteToTriple(id uint) (*cipherSuite, error) {
	if id >= uint(len(cipherSuiteIDs)) {
		return nil, &UnsupportedError{Message: "reserved or unknown cipher suite ID", Value: id}
	}
	s := cipherSuiteIDs[id]
	return &s, nil
}

func requiredAuthentication(cid uint) bool {
	suite, err := suiteToTriple(cid)
	if err != nil {
		panic(err)
	}
	switch suite.Auth {
	case authRakpNone:
		return false
	case authRakpHmacSHA1, authRakpHmacMD5, authRakpHmacSHA256:
		return true
	default:
		panic(fmt.Sprintf("ipmigo: unsupported authentication algorithm - %s", suite.Auth))
	}
}

func requiredIntegrity(cid uint) bool {
	suite, err := suiteToTriple(cid)
	if err != nil {
		panic(err)
	}
	return suite.Integrity != integrityNone
}

func requiredConfidentiality(cid uint) bool {
	suite, err := suiteToTriple(cid)
	if err != nil {
		panic(err)
	}
	switch suite.Crypt {
	case cryptNone:
		return false
	case cryptAesCBC_128:
		return true
	default:
		panic(fmt.Sprintf("ipmigo: unsupported confidentiality algorithm - %s", suite.Crypt))
	}
}

// bestCipherSuite picks the first ID from preference that appears in
// supported (as reported by a Get Channel Cipher Suites response), falling
// back to suite 3 which every conforming BMC must support.
func bestCipherSuite(supported []uint, preference []uint) uint {
	supportedSet := make(map[uint]bool, len(supported))
	for _, id := range supported {
		supportedSet[id] = true
	}
	for _, id := range preference {
		if supportedSet[id] {
			return id
		}
	}
	return 3
}
