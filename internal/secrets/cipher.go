// Package secrets provides reversible authenticated encryption for the
// stored client password. Both store variants share one Cipher instance.
package secrets

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// Envelope layout: base64(nonce) "." base64(tag) "." base64(ciphertext).
// Self-contained; nothing beyond the configured passphrase is needed to
// decrypt.
const envelopeParts = 3

var (
	// ErrNoPassphrase is returned by New when the configured passphrase is
	// blank. This is a deployment mistake and should abort startup.
	ErrNoPassphrase = errors.New("encryption passphrase not configured")

	// ErrInvalidEnvelope is returned when a stored value does not parse as a
	// nonce.tag.ciphertext envelope.
	ErrInvalidEnvelope = errors.New("malformed ciphertext envelope")

	// ErrAuthentication is returned when the envelope parses but the
	// authentication tag does not verify: either the value was tampered with
	// or the passphrase changed. Callers must surface it, never retry with a
	// modified key.
	ErrAuthentication = errors.New("ciphertext failed authentication")
)

// Cipher encrypts and decrypts single string values under a key derived once
// from the operator-supplied passphrase. Construct one at startup and inject
// it wherever needed; derivation is deterministic, so the same passphrase
// always yields the same key.
type Cipher struct {
	aead cipher.AEAD
}

// New derives a 256-bit key from passphrase (single SHA-256 pass) and returns
// a Cipher using ChaCha20-Poly1305.
func New(passphrase string) (*Cipher, error) {
	if strings.TrimSpace(passphrase) == "" {
		return nil, ErrNoPassphrase
	}

	key := sha256.Sum256([]byte(passphrase))
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce and returns the
// envelope. Two calls with identical plaintext produce different envelopes.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)

	// Seal appends the 16-byte Poly1305 tag after the ciphertext.
	split := len(sealed) - chacha20poly1305.Overhead
	ciphertext, tag := sealed[:split], sealed[split:]

	enc := base64.StdEncoding
	return enc.EncodeToString(nonce) + "." + enc.EncodeToString(tag) + "." + enc.EncodeToString(ciphertext), nil
}

// Decrypt parses an envelope and returns the plaintext. ErrInvalidEnvelope
// means the value is not even envelope-shaped; ErrAuthentication means it is,
// but the tag does not verify under the configured key.
func (c *Cipher) Decrypt(envelope string) (string, error) {
	parts := strings.Split(envelope, ".")
	if len(parts) != envelopeParts {
		return "", fmt.Errorf("%w: expected %d components, got %d", ErrInvalidEnvelope, envelopeParts, len(parts))
	}

	enc := base64.StdEncoding
	nonce, err := enc.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: bad nonce encoding", ErrInvalidEnvelope)
	}
	tag, err := enc.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: bad tag encoding", ErrInvalidEnvelope)
	}
	ciphertext, err := enc.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext encoding", ErrInvalidEnvelope)
	}
	if len(nonce) != chacha20poly1305.NonceSize || len(tag) != chacha20poly1305.Overhead {
		return "", fmt.Errorf("%w: wrong component length", ErrInvalidEnvelope)
	}

	plaintext, err := c.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrAuthentication
	}

	return string(plaintext), nil
}
