package ipmigo

import (
	"encoding/binary"
)

// RAKP key-derivation helpers (Section 13.32). The teacher this package is
// descended from hardcoded every RAKP HMAC to SHA-1; this generalizes each
// derivation to the negotiated authentication/integrity algorithm so cipher
// suites 15-17 (RAKP-HMAC-SHA256) work the same way suites 1-14 always did.
//
// Per Section 13.32: RAKP Messages 2 and 3, and the Session Integrity Key
// itself, are keyed with the password (or KG key, if the BMC uses one) and
// MAC'd with the authentication algorithm's hash. K1 and K2 are then each
// HMAC(SIK, const) using the integrity algorithm's hash - falling back to
// the authentication algorithm's hash when the suite carries no integrity
// algorithm (confidentiality-only suites still need a K2).

var rakpConst1 = [20]byte{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
var rakpConst2 = [20]byte{2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2}

// rakpAuthKey returns the key used to MAC RAKP Messages 2/3: the KG key as
// given if the BMC has one configured (two-key RAKP), otherwise the user
// password zero-padded to passwordMaxLengthV2_0 bytes per Section 13.20's
// BN construction.
func rakpAuthKey(args *Arguments) []byte {
	if len(args.KG) > 0 {
		key := make([]byte, len(args.KG))
		copy(key, args.KG)
		return key
	}
	key := make([]byte, passwordMaxLengthV2_0)
	copy(key, args.Password)
	return key
}

// rakp2HMAC computes the HMAC that authenticates RAKP Message 2's
// KeyExchangeAuthCode field (Section 13.21, "HMAC generation for Message 2").
func rakp2HMAC(alg authAlgorithm, args *Arguments, r1 *rakpMessage1, r2 *rakpMessage2) []byte {
	data := make([]byte, 58+len(r1.Username))
	binary.LittleEndian.PutUint32(data, r2.ConsoleID)     // SIDm
	binary.LittleEndian.PutUint32(data[4:], r1.ManagedID) // SIDc
	copy(data[8:], r1.ConsoleRand[:])                      // Rm
	copy(data[24:], r2.ManagedRand[:])                     // Rc
	copy(data[40:], r2.ManagedGUID[:])                     // GUIDc
	data[56] = r1.RequestedRole()                          // ROLEm
	data[57] = byte(len(r1.Username))                      // ULENGTHm
	copy(data[58:], r1.Username)                           // UNAMEm
	return hmacSum(alg.hash(), rakpAuthKey(args), data)
}

// rakp3HMAC computes RAKP Message 3's KeyExchangeAuthCode (Section 13.22).
func rakp3HMAC(alg authAlgorithm, args *Arguments, r1 *rakpMessage1, r2 *rakpMessage2) []byte {
	data := make([]byte, 22+len(r1.Username))
	copy(data, r2.ManagedRand[:])                          // Rc
	binary.LittleEndian.PutUint32(data[16:], r2.ConsoleID) // SIDm
	data[20] = r1.RequestedRole()                          // ROLEm
	data[21] = byte(len(r1.Username))                      // ULENGTHm
	copy(data[22:], r1.Username)                           // UNAMEm
	return hmacSum(alg.hash(), rakpAuthKey(args), data)
}

// rakp4HMAC computes RAKP Message 4's IntegrityCheckValue (Section 13.23),
// keyed with the already-derived Session Integrity Key rather than the
// password.
func rakp4HMAC(alg authAlgorithm, sik []byte, r1 *rakpMessage1, r2 *rakpMessage2) []byte {
	data := make([]byte, 36)
	copy(data, r1.ConsoleRand[:])                          // Rm
	binary.LittleEndian.PutUint32(data[16:], r1.ManagedID) // SIDc
	copy(data[20:], r2.ManagedGUID[:])                     // GUIDc
	return hmacSum(alg.hash(), sik, data)
}

// generateSIK derives the Session Integrity Key from both consoles' random
// numbers and the requested role (Section 13.32).
func generateSIK(alg authAlgorithm, args *Arguments, r1 *rakpMessage1, r2 *rakpMessage2) []byte {
	data := make([]byte, 34+len(r1.Username))
	copy(data, r1.ConsoleRand[:])      // Rm
	copy(data[16:], r2.ManagedRand[:]) // Rc
	data[32] = r1.RequestedRole()      // ROLEm
	data[33] = byte(len(r1.Username))  // ULENGTHm
	copy(data[34:], r1.Username)       // UNAMEm
	return hmacSum(alg.hash(), rakpAuthKey(args), data)
}

// kDeriveAlgorithm picks the hash used for K1/K2: the integrity algorithm's,
// or the authentication algorithm's when the suite has no integrity (e.g.
// suite 15, auth-only).
func kDeriveAlgorithm(authAlg authAlgorithm, integrityAlg integrityAlgorithm) hashAlgorithm {
	if integrityAlg != integrityNone {
		return integrityAlg.hash()
	}
	return authAlg.hash()
}

func generateK1(authAlg authAlgorithm, integrityAlg integrityAlgorithm, sik []byte) []byte {
	return hmacSum(kDeriveAlgorithm(authAlg, integrityAlg), sik, rakpConst1[:])
}

func generateK2(authAlg authAlgorithm, integrityAlg integrityAlgorithm, sik []byte) []byte {
	return hmacSum(kDeriveAlgorithm(authAlg, integrityAlg), sik, rakpConst2[:])
}
