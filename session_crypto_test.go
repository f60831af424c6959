package ipmigo

import "testing"

func testRAKPFixture() (*Arguments, *rakpMessage1, *rakpMessage2) {
	args := &Arguments{
		CipherSuiteID: 3, // RAKP-HMAC-SHA1 / HMAC-SHA1-96 / AES-CBC-128
		Username:      "admin",
		Password:      "admin-password",
	}
	r1 := &rakpMessage1{
		ManagedID:      0x11223344,
		PrivilegeLevel: PrivilegeAdministrator,
		Username:       args.Username,
	}
	copy(r1.ConsoleRand[:], []byte("0123456789abcdef"))

	r2 := &rakpMessage2{
		ConsoleID: 0x49504d49,
	}
	copy(r2.ManagedRand[:], []byte("fedcba9876543210"))
	copy(r2.ManagedGUID[:], []byte("GUID-0123456789-"))

	return args, r1, r2
}

func TestRAKP2HMACRoundTrip(t *testing.T) {
	args, r1, r2 := testRAKPFixture()

	suite, err := suiteToTriple(args.CipherSuiteID)
	if err != nil {
		t.Fatal(err)
	}
	r2.KeyExchangeAuthCode = rakp2HMAC(suite.Auth, args, r1, r2)

	if err := r2.ValidateAuthCode(args, r1); err != nil {
		t.Errorf("ValidateAuthCode with a matching HMAC failed: %v", err)
	}
}

func TestRAKP2HMACRejectsTamperedCode(t *testing.T) {
	args, r1, r2 := testRAKPFixture()
	suite, _ := suiteToTriple(args.CipherSuiteID)
	r2.KeyExchangeAuthCode = rakp2HMAC(suite.Auth, args, r1, r2)
	r2.KeyExchangeAuthCode[0] ^= 0xff

	if err := r2.ValidateAuthCode(args, r1); err == nil {
		t.Error("expected ValidateAuthCode to reject a tampered HMAC")
	}
}

func TestGenerateSIKIsStableAndKeyDependent(t *testing.T) {
	args, r1, r2 := testRAKPFixture()
	suite, _ := suiteToTriple(args.CipherSuiteID)

	sik1 := generateSIK(suite.Auth, args, r1, r2)
	sik2 := generateSIK(suite.Auth, args, r1, r2)
	if string(sik1) != string(sik2) {
		t.Error("generateSIK is not deterministic for identical inputs")
	}

	other := *args
	other.Password = "different-password"
	sik3 := generateSIK(suite.Auth, &other, r1, r2)
	if string(sik1) == string(sik3) {
		t.Error("generateSIK did not change when the password changed")
	}
}

func TestGenerateK1K2Distinct(t *testing.T) {
	args, r1, r2 := testRAKPFixture()
	suite, _ := suiteToTriple(args.CipherSuiteID)
	sik := generateSIK(suite.Auth, args, r1, r2)

	k1 := generateK1(suite.Auth, suite.Integrity, sik)
	k2 := generateK2(suite.Auth, suite.Integrity, sik)

	if len(k1) == 0 || len(k2) == 0 {
		t.Fatal("K1/K2 must not be empty when authentication is required")
	}
	if string(k1) == string(k2) {
		t.Error("K1 and K2 must differ (distinct HMAC constants)")
	}
}

func TestKDeriveAlgorithmFallsBackWithoutIntegrity(t *testing.T) {
	got := kDeriveAlgorithm(authRakpHmacSHA256, integrityNone)
	if got != hashSHA256 {
		t.Errorf("kDeriveAlgorithm fallback = %v, want hashSHA256", got)
	}
}

func TestRAKP4HMACRoundTrip(t *testing.T) {
	args, r1, r2 := testRAKPFixture()
	suite, _ := suiteToTriple(args.CipherSuiteID)
	sik := generateSIK(suite.Auth, args, r1, r2)

	full := rakp4HMAC(suite.Auth, sik, r1, r2)
	r3 := &rakpMessage3{SIK: sik}
	r4 := &rakpMessage4{IntegrityCheckValue: full[:integrityHmacSHA1_96.macLength()]}

	if err := r4.ValidateAuthCode(args, r1, r2, r3); err != nil {
		t.Errorf("RAKP4 ValidateAuthCode failed: %v", err)
	}
}
