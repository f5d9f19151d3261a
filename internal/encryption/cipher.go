// Package encryption implements the content cipher: AES-256-CBC with PKCS7
// padding under a key derived from a static secret. Every encryption uses a
// fresh random IV, which is prepended to the ciphertext, so the same
// plaintext never produces the same blob twice.
package encryption

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/anthropics/invisible-gallery/internal/domain"
)

// keyInfo binds derived keys to this use. Changing it invalidates every
// previously encrypted blob.
const keyInfo = "invisible-gallery/artwork-content/v1"

// DeriveKey derives a 32-byte AES key from an arbitrary-length secret using
// HKDF-SHA256. Deterministic: the same secret always yields the same key, so
// previously encrypted artworks stay decryptable.
func DeriveKey(secret []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, domain.WrapEngineError(domain.ErrEncryption.Code, "derive key", fmt.Errorf("empty secret"))
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyInfo)), key); err != nil {
		return nil, domain.WrapEngineError(domain.ErrEncryption.Code, "derive key", err)
	}
	return key, nil
}

// Encrypt encrypts plaintext under the key derived from secret and returns
// iv || ciphertext as a single blob.
func Encrypt(plaintext, secret []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, domain.ErrEmptyContent
	}

	key, err := DeriveKey(secret)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, domain.WrapEngineError(domain.ErrEncryption.Code, "init cipher", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, domain.WrapEngineError(domain.ErrEncryption.Code, "generate iv", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)
	return out, nil
}

// Decrypt splits the leading IV off the blob, decrypts the remainder under
// the key derived from secret, and removes the padding. Every anomaly (blob
// shorter than one IV, misaligned ciphertext, invalid padding from a wrong
// secret) is reported as the same generic error so a caller cannot tell
// which check failed.
func Decrypt(blob, secret []byte) ([]byte, error) {
	if len(blob) < 2*aes.BlockSize || len(blob)%aes.BlockSize != 0 {
		return nil, domain.ErrDecryption
	}

	key, err := DeriveKey(secret)
	if err != nil {
		return nil, domain.ErrDecryption
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, domain.ErrDecryption
	}

	iv := blob[:aes.BlockSize]
	padded := make([]byte, len(blob)-aes.BlockSize)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, blob[aes.BlockSize:])

	plaintext, ok := pkcs7Unpad(padded, aes.BlockSize)
	if !ok {
		return nil, domain.ErrDecryption
	}
	return plaintext, nil
}

// GenerateKey returns a fresh random 256-bit secret, base64-encoded for
// storage in configuration.
func GenerateKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", domain.WrapEngineError(domain.ErrEncryption.Code, "generate key", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, false
		}
	}
	return data[:len(data)-n], true
}
