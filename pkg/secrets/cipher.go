// Package secrets provides the credential encryption collaborator used by
// the session store. The engine never generates or stores keys; callers
// supply the passphrase and salt that a blob was sealed under.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the recommended salt length for NewSalt.
	SaltSize = 32

	keySize    = 32
	iterations = 100000
)

// ErrCiphertextTooShort is returned when a blob is shorter than the GCM nonce.
var ErrCiphertextTooShort = errors.New("secrets: ciphertext too short")

// Cipher seals and opens opaque byte blobs. Symmetric: Decrypt(Encrypt(x))
// round-trips under the same key.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// AESCipher implements Cipher with AES-256-GCM and a PBKDF2-derived key.
type AESCipher struct {
	key []byte
}

// NewAESCipher derives the key from passphrase and salt.
func NewAESCipher(passphrase string, salt []byte) *AESCipher {
	return &AESCipher{
		key: pbkdf2.Key([]byte(passphrase), salt, iterations, keySize, sha256.New),
	}
}

// NewSalt generates a random salt of SaltSize bytes.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// Encrypt seals plaintext, prefixing the random nonce.
func (c *AESCipher) Encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a blob produced by Encrypt. Fails on a truncated blob,
// a tampered blob, or a key derived from the wrong passphrase/salt.
func (c *AESCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, ErrCiphertextTooShort
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
