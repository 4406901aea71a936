// Package statecrypt seals a client name into the OAuth 2.0 state value.
//
// The token is base64url(IV | AES-256-CBC(name) | HMAC-SHA256(IV | ciphertext)).
// A fresh IV per call makes every token unpredictable, and the MAC lets
// a shared callback endpoint trust the client name it decrypts.
package statecrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// EnvKey is the environment variable holding the base64 combined key.
const EnvKey = "OAUTH2_STATE_KEY"

const (
	aesKeySize      = 32 // AES-256
	macKeySize      = 32 // HMAC-SHA256
	CombinedKeySize = aesKeySize + macKeySize
	macSize         = sha256.Size
)

var (
	// ErrMissingKey indicates the combined key is not configured.
	ErrMissingKey = errors.New("statecrypt: combined key not configured")

	// ErrInvalidKey indicates the combined key is malformed or has the wrong size.
	ErrInvalidKey = errors.New("statecrypt: invalid combined key")

	// ErrEmptyName indicates an empty client name or token.
	ErrEmptyName = errors.New("statecrypt: client name is empty")

	// ErrIntegrity indicates the token is malformed or its MAC does not verify.
	ErrIntegrity = errors.New("statecrypt: state integrity check failed")
)

// Cryptor encrypts and authenticates client names. It is safe for
// concurrent use.
type Cryptor struct {
	aesKey []byte
	macKey []byte
}

// New creates a Cryptor from a 64-byte combined key (AES key | HMAC key).
func New(combinedKey []byte) (*Cryptor, error) {
	if len(combinedKey) != CombinedKeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, CombinedKeySize, len(combinedKey))
	}

	k := make([]byte, CombinedKeySize)
	copy(k, combinedKey)
	return &Cryptor{
		aesKey: k[:aesKeySize],
		macKey: k[aesKeySize:],
	}, nil
}

// NewFromBase64 creates a Cryptor from a base64 (standard, padded or not)
// combined key.
func NewFromBase64(encoded string) (*Cryptor, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrMissingKey
	}

	k, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		k, err = base64.RawStdEncoding.DecodeString(encoded)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode base64: %v", ErrInvalidKey, err)
	}
	return New(k)
}

// FromEnv creates a Cryptor from the OAUTH2_STATE_KEY environment variable.
func FromEnv() (*Cryptor, error) {
	v := os.Getenv(EnvKey)
	if strings.TrimSpace(v) == "" {
		return nil, fmt.Errorf("%w: %s is not set; generate one with `bee-oauth2 keygen`", ErrMissingKey, EnvKey)
	}
	c, err := NewFromBase64(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EnvKey, err)
	}
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCryptor *Cryptor
	defaultErr     error
)

// Default returns the process-wide Cryptor, loading the key from the
// environment on first use. A load failure is returned on every call.
func Default() (*Cryptor, error) {
	defaultOnce.Do(func() {
		defaultCryptor, defaultErr = FromEnv()
	})
	return defaultCryptor, defaultErr
}

// GenerateCombinedKey returns a new random combined key, base64 encoded.
func GenerateCombinedKey() (string, error) {
	k := make([]byte, CombinedKeySize)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		return "", fmt.Errorf("statecrypt: random key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(k), nil
}

// EncryptClientName seals name into an opaque, URL-safe token. Every call
// yields a different token.
func (c *Cryptor) EncryptClientName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrEmptyName
	}

	block, err := aes.NewCipher(c.aesKey)
	if err != nil {
		return "", fmt.Errorf("statecrypt: aes.NewCipher: %w", err)
	}

	plain := pad([]byte(name), aes.BlockSize)

	out := make([]byte, aes.BlockSize+len(plain), aes.BlockSize+len(plain)+macSize)
	iv := out[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("statecrypt: random iv: %w", err)
	}
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], plain)

	out = append(out, c.sum(out)...)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// DecryptClientName verifies token and returns the client name it seals.
// Any malformed or tampered token fails with ErrIntegrity.
func (c *Cryptor) DecryptClientName(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrEmptyName
	}

	// Strict rejects non-zero trailing bits, so each token has one spelling.
	raw, err := base64.RawURLEncoding.Strict().DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: malformed token", ErrIntegrity)
	}

	// IV, at least one block of ciphertext, MAC
	if len(raw) < 2*aes.BlockSize+macSize || (len(raw)-macSize)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: malformed token", ErrIntegrity)
	}

	body, mac := raw[:len(raw)-macSize], raw[len(raw)-macSize:]
	if !hmac.Equal(mac, c.sum(body)) {
		return "", ErrIntegrity
	}

	block, err := aes.NewCipher(c.aesKey)
	if err != nil {
		return "", fmt.Errorf("statecrypt: aes.NewCipher: %w", err)
	}

	iv, ct := body[:aes.BlockSize], body[aes.BlockSize:]
	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	name, err := unpad(plain, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	return string(name), nil
}

func (c *Cryptor) sum(data []byte) []byte {
	m := hmac.New(sha256.New, c.macKey)
	m.Write(data)
	return m.Sum(nil)
}

// pad applies PKCS#7 padding.
func pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(append([]byte(nil), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad strips PKCS#7 padding.
func unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, errors.New("bad padding")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, errors.New("bad padding")
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, errors.New("bad padding")
		}
	}
	return b[:len(b)-n], nil
}
