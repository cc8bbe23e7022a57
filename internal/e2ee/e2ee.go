// Package e2ee implements the optional end-to-end encryption layer: each
// data-channel chunk is sealed with AES-256-GCM under a session-constant
// key that never reaches the server. The wire shape of an encrypted chunk
// is a 12-byte IV followed by the ciphertext with its 16-byte tag.
package e2ee

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32

	// IVSize is the per-chunk nonce prefix length.
	IVSize = 12

	// TagSize is the GCM authentication tag length.
	TagSize = 16

	// Overhead is the total per-chunk expansion; plaintext chunks shrink
	// by this much so the wire frame stays within the frame budget.
	Overhead = IVSize + TagSize
)

var (
	ErrInvalidKey    = errors.New("encryption key must be 32 bytes")
	ErrFrameTooShort = errors.New("encrypted frame is too short")
)

// Cipher seals and opens chunk frames with a fixed session key.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a chunk cipher from a raw 256-bit key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// GenerateKey returns a fresh random 256-bit session key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

// Seal encrypts one chunk into an IV-prefixed frame with a random nonce.
func (c *Cipher) Seal(plain []byte) ([]byte, error) {
	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}
	frame := make([]byte, IVSize, IVSize+len(plain)+TagSize)
	copy(frame, iv)
	return c.aead.Seal(frame, iv, plain, nil), nil
}

// Open authenticates and decrypts one IV-prefixed frame.
func (c *Cipher) Open(frame []byte) ([]byte, error) {
	if len(frame) < IVSize+TagSize {
		return nil, ErrFrameTooShort
	}
	iv, ciphertext := frame[:IVSize], frame[IVSize:]
	plain, err := c.aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt chunk: %w", err)
	}
	return plain, nil
}

// EncodeKey renders a key the way it travels in the URL fragment.
func EncodeKey(key []byte) string {
	return base64.RawURLEncoding.EncodeToString(key)
}

// DecodeKey parses a base64url key from a URL fragment or flag.
func DecodeKey(value string) ([]byte, error) {
	key, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	return key, nil
}
