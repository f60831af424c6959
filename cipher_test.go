package ipmigo

import "testing"

func TestSuiteToTripleKnownValues(t *testing.T) {
	cases := []struct {
		id        uint
		auth      authAlgorithm
		integrity integrityAlgorithm
		crypt     cryptAlgorithm
	}{
		{0, authRakpNone, integrityNone, cryptNone},
		{3, authRakpHmacSHA1, integrityHmacSHA1_96, cryptAesCBC_128},
		{8, authRakpHmacMD5, integrityHmacMD5_128, cryptAesCBC_128},
		{15, authRakpHmacSHA256, integrityNone, cryptNone},
		{17, authRakpHmacSHA256, integrityHmacSHA256_128, cryptAesCBC_128},
	}
	for _, c := range cases {
		suite, err := suiteToTriple(c.id)
		if err != nil {
			t.Fatalf("suiteToTriple(%d): %v", c.id, err)
		}
		if suite.Auth != c.auth || suite.Integrity != c.integrity || suite.Crypt != c.crypt {
			t.Errorf("suiteToTriple(%d) = %+v, want {%s,%s,%s}", c.id, suite, c.auth, c.integrity, c.crypt)
		}
	}
}

func TestSuiteToTripleOutOfRange(t *testing.T) {
	if _, err := suiteToTriple(18); err == nil {
		t.Error("expected an error for cipher suite ID 18")
	}
}

func TestRequiredAuthIntegrityConfidentiality(t *testing.T) {
	if requiredAuthentication(0) {
		t.Error("suite 0 requires no authentication")
	}
	if !requiredAuthentication(3) {
		t.Error("suite 3 requires authentication")
	}
	if requiredIntegrity(1) {
		t.Error("suite 1 requires no integrity")
	}
	if !requiredIntegrity(3) {
		t.Error("suite 3 requires integrity")
	}
	if requiredConfidentiality(2) {
		t.Error("suite 2 requires no confidentiality")
	}
	if !requiredConfidentiality(3) {
		t.Error("suite 3 requires confidentiality")
	}
}

func TestBestCipherSuitePrefersHigherSecurity(t *testing.T) {
	got := bestCipherSuite([]uint{0, 1, 2, 3, 17}, DefaultCipherSuitePreference)
	if got != 17 {
		t.Errorf("bestCipherSuite = %d, want 17", got)
	}
}

func TestBestCipherSuiteFallsBackToMandatorySuite(t *testing.T) {
	got := bestCipherSuite([]uint{0, 1, 2}, DefaultCipherSuitePreference)
	if got != 3 {
		t.Errorf("bestCipherSuite = %d, want 3 (mandatory fallback)", got)
	}
}

func TestIntegrityAlgorithmMacLength(t *testing.T) {
	cases := map[integrityAlgorithm]int{
		integrityNone:           0,
		integrityHmacSHA1_96:    12,
		integrityHmacMD5_128:    16,
		integrityMD5_128:        16,
		integrityHmacSHA256_128: 16,
	}
	for alg, want := range cases {
		if got := alg.macLength(); got != want {
			t.Errorf("%s.macLength() = %d, want %d", alg, got, want)
		}
	}
}
