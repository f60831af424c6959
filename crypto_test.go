package ipmigo

import (
	"bytes"
	"testing"
)

func TestHmacSum(t *testing.T) {
	key := []byte("a-session-key")
	msg1 := []byte("hello, ")
	msg2 := []byte("world")

	got := hmacSum(hashSHA1, key, msg1, msg2)
	want := hmacSum(hashSHA1, key, append(append([]byte{}, msg1...), msg2...))

	if !bytes.Equal(got, want) {
		t.Errorf("hmacSum with split args = %x, want %x", got, want)
	}
	if len(got) != hashSHA1.Size() {
		t.Errorf("hmacSum length = %d, want %d", len(got), hashSHA1.Size())
	}
}

func TestHmacEqual(t *testing.T) {
	a := []byte{1, 2, 3, 4}
	b := []byte{1, 2, 3, 4}
	c := []byte{1, 2, 3, 5}

	if !hmacEqual(a, b) {
		t.Error("hmacEqual(a, b) = false, want true")
	}
	if hmacEqual(a, c) {
		t.Error("hmacEqual(a, c) = true, want false")
	}
}

func TestAES128CBCRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 16)
	iv := bytes.Repeat([]byte{0x24}, 16)
	plaintext := bytes.Repeat([]byte{0xaa}, 32) // two blocks

	ct, err := aes128CBCEncrypt(key, iv, plaintext)
	if err != nil {
		t.Fatalf("aes128CBCEncrypt: %v", err)
	}
	if len(ct) != len(plaintext) {
		t.Fatalf("ciphertext length = %d, want %d", len(ct), len(plaintext))
	}

	pt, err := aes128CBCDecrypt(key, iv, ct)
	if err != nil {
		t.Fatalf("aes128CBCDecrypt: %v", err)
	}
	if !bytes.Equal(pt, plaintext) {
		t.Errorf("decrypted = %x, want %x", pt, plaintext)
	}
}

func TestAES128CBCEncryptRejectsUnalignedInput(t *testing.T) {
	key := make([]byte, 16)
	iv := make([]byte, 16)
	if _, err := aes128CBCEncrypt(key, iv, []byte{1, 2, 3}); err == nil {
		t.Error("expected an error for a non-block-aligned plaintext")
	}
}

func TestEncryptDecryptPayloadRoundTrip(t *testing.T) {
	k2 := bytes.Repeat([]byte{0x11}, 20)

	for _, n := range []int{0, 1, 15, 16, 17, 100} {
		src := bytes.Repeat([]byte{0x5a}, n)

		enc, err := encryptPayload(src, k2)
		if err != nil {
			t.Fatalf("encryptPayload(%d bytes): %v", n, err)
		}

		dec, err := decryptPayload(enc, k2)
		if err != nil {
			t.Fatalf("decryptPayload(%d bytes): %v", n, err)
		}
		if !bytes.Equal(dec, src) {
			t.Errorf("round trip for %d bytes = %x, want %x", n, dec, src)
		}
	}
}

func TestDecryptPayloadRejectsShortInput(t *testing.T) {
	k2 := bytes.Repeat([]byte{0x11}, 20)
	if _, err := decryptPayload([]byte{1, 2, 3}, k2); err == nil {
		t.Error("expected an error for a too-short encrypted payload")
	}
}

func TestCsprngBytesLength(t *testing.T) {
	b, err := csprngBytes(16)
	if err != nil {
		t.Fatalf("csprngBytes: %v", err)
	}
	if len(b) != 16 {
		t.Errorf("csprngBytes(16) returned %d bytes", len(b))
	}
}
