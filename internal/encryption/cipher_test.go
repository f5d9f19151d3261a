package encryption

import (
	"bytes"
	"crypto/aes"
	"encoding/base64"
	"testing"

	"github.com/anthropics/invisible-gallery/internal/domain"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	secret := []byte("gallery-secret")
	payloads := [][]byte{
		[]byte("x"),
		[]byte("a short artwork payload"),
		bytes.Repeat([]byte{0xAB}, aes.BlockSize),     // exactly one block
		bytes.Repeat([]byte{0x00}, 3*aes.BlockSize+7), // spans blocks with zeros
	}

	for _, plaintext := range payloads {
		blob, err := Encrypt(plaintext, secret)
		if err != nil {
			t.Fatalf("Encrypt(%d bytes): %v", len(plaintext), err)
		}
		got, err := Decrypt(blob, secret)
		if err != nil {
			t.Fatalf("Decrypt(%d bytes): %v", len(blob), err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Errorf("round trip mismatch for %d-byte payload", len(plaintext))
		}
	}
}

func TestEncrypt_FreshIVPerCall(t *testing.T) {
	secret := []byte("gallery-secret")
	plaintext := []byte("same plaintext twice")

	a, err := Encrypt(plaintext, secret)
	if err != nil {
		t.Fatalf("first Encrypt: %v", err)
	}
	b, err := Encrypt(plaintext, secret)
	if err != nil {
		t.Fatalf("second Encrypt: %v", err)
	}

	if bytes.Equal(a[:aes.BlockSize], b[:aes.BlockSize]) {
		t.Error("IV was reused across encryptions")
	}
	if bytes.Equal(a, b) {
		t.Error("identical blobs for two encryptions of the same plaintext")
	}
}

func TestEncrypt_EmptyPlaintext(t *testing.T) {
	_, err := Encrypt(nil, []byte("secret"))
	if err != domain.ErrEmptyContent {
		t.Errorf("expected ErrEmptyContent, got %v", err)
	}
}

func TestEncrypt_EmptySecret(t *testing.T) {
	_, err := Encrypt([]byte("data"), nil)
	if err == nil {
		t.Error("expected error for empty secret, got nil")
	}
}

func TestDecrypt_ShortBlob(t *testing.T) {
	secret := []byte("secret")
	for _, blob := range [][]byte{nil, {0x01}, make([]byte, aes.BlockSize)} {
		if _, err := Decrypt(blob, secret); err != domain.ErrDecryption {
			t.Errorf("Decrypt(%d bytes) = %v, want ErrDecryption", len(blob), err)
		}
	}
}

func TestDecrypt_MisalignedCiphertext(t *testing.T) {
	secret := []byte("secret")
	blob, err := Encrypt([]byte("some artwork content"), secret)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := Decrypt(blob[:len(blob)-3], secret); err != domain.ErrDecryption {
		t.Errorf("expected ErrDecryption for truncated blob, got %v", err)
	}
}

func TestDecrypt_CorruptedPadding(t *testing.T) {
	secret := []byte("secret")
	blob, err := Encrypt([]byte("some artwork content"), secret)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	// Flip a bit in the second-to-last ciphertext block; CBC propagates it
	// into the final plaintext block and breaks the padding.
	corrupted := append([]byte(nil), blob...)
	corrupted[len(corrupted)-aes.BlockSize-1] ^= 0xFF
	got, err := Decrypt(corrupted, secret)
	if err == nil && bytes.Equal(got, []byte("some artwork content")) {
		t.Error("corrupted blob decrypted to the original plaintext")
	}
}

func TestDecrypt_WrongSecret(t *testing.T) {
	plaintext := []byte("the hidden artwork")
	blob, err := Encrypt(plaintext, []byte("right secret"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	// Without a MAC, a wrong key has a ~1/256 chance of producing padding
	// that happens to parse; it can never reproduce the plaintext.
	got, err := Decrypt(blob, []byte("wrong secret"))
	if err == nil {
		if bytes.Equal(got, plaintext) {
			t.Error("wrong secret returned the original plaintext")
		}
	} else if err != domain.ErrDecryption {
		t.Errorf("expected generic ErrDecryption, got %v", err)
	}
}

func TestDeriveKey_Deterministic(t *testing.T) {
	a, err := DeriveKey([]byte("secret"))
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	b, err := DeriveKey([]byte("secret"))
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("same secret derived different keys")
	}
	if len(a) != 32 {
		t.Errorf("key length = %d, want 32", len(a))
	}

	c, err := DeriveKey([]byte("other secret"))
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	if bytes.Equal(a, c) {
		t.Error("different secrets derived the same key")
	}
}

func TestGenerateKey(t *testing.T) {
	k1, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	k2, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if k1 == k2 {
		t.Error("two generated keys are identical")
	}

	raw, err := base64.StdEncoding.DecodeString(k1)
	if err != nil {
		t.Fatalf("generated key is not valid base64: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("decoded key length = %d, want 32", len(raw))
	}
}
