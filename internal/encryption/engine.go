// Package encryption implements at-rest encryption for draft payloads using
// AES-256-GCM with per-record keys derived from a process-lifetime master key.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the AES-256 key size in bytes.
	KeySize = 32
	// SaltSize is the per-record PBKDF2 salt size in bytes.
	SaltSize = 32
	// IVSize is the AES-GCM nonce size in bytes.
	IVSize = 12
	// TagSize is the GCM authentication tag size in bytes.
	TagSize = 16
)

// argon2id parameters for master key derivation. Runs once at startup.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
)

var (
	// ErrDecryptFailed is returned when authentication fails during decryption.
	// The envelope was tampered with or encrypted under a different key.
	ErrDecryptFailed = errors.New("encryption: decryption failed, integrity check did not pass")
	// ErrInvalidEnvelope is returned when an envelope's fields have the wrong shape.
	ErrInvalidEnvelope = errors.New("encryption: invalid envelope")
)

// Envelope is the stored form of an encrypted record. Ciphertext and tag are
// kept as separate fields; the per-record salt lets decryption re-derive the key.
type Envelope struct {
	Ciphertext []byte
	IV         []byte
	Salt       []byte
	Tag        []byte
}

// Engine encrypts and decrypts records. The master key is derived once from
// the operator passphrase with argon2id and held for the process lifetime;
// each Encrypt call derives a fresh per-record key with PBKDF2.
// Engine is safe for concurrent use: all state is immutable after construction.
type Engine struct {
	masterKey  []byte
	iterations int
	digest     func() hash.Hash
}

// NewEngine derives the master key from passphrase and salt and returns a
// ready Engine. digest selects the PBKDF2 hash, "sha256" or "sha512".
// A failure here must abort startup; running without at-rest encryption is
// not a supported degraded mode.
func NewEngine(passphrase string, salt []byte, iterations int, digest string) (*Engine, error) {
	if passphrase == "" {
		return nil, errors.New("encryption: passphrase must not be empty")
	}
	if len(salt) < 16 {
		return nil, errors.New("encryption: master key salt must be at least 16 bytes")
	}
	if iterations < 1 {
		return nil, errors.New("encryption: iteration count must be positive")
	}
	var h func() hash.Hash
	switch digest {
	case "sha256":
		h = sha256.New
	case "sha512":
		h = sha512.New
	default:
		return nil, fmt.Errorf("encryption: unsupported digest %q", digest)
	}
	master := argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, KeySize)
	return &Engine{
		masterKey:  master,
		iterations: iterations,
		digest:     h,
	}, nil
}

// Encrypt encrypts plaintext under a fresh per-record key and returns the
// envelope. Two calls with the same plaintext produce different salts, IVs
// and ciphertexts.
func (e *Engine) Encrypt(plaintext []byte) (*Envelope, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("encryption: generate salt: %w", err)
	}
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("encryption: generate iv: %w", err)
	}

	gcm, err := e.aead(salt)
	if err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)
	split := len(sealed) - TagSize
	return &Envelope{
		Ciphertext: sealed[:split],
		IV:         iv,
		Salt:       salt,
		Tag:        sealed[split:],
	}, nil
}

// Decrypt re-derives the per-record key from the envelope's salt and returns
// the plaintext. Any mismatch in the authentication tag, from tampering with
// the ciphertext, IV, salt or tag, yields ErrDecryptFailed and no plaintext.
func (e *Engine) Decrypt(env *Envelope) ([]byte, error) {
	if env == nil || len(env.IV) != IVSize || len(env.Tag) != TagSize || len(env.Salt) == 0 {
		return nil, ErrInvalidEnvelope
	}

	gcm, err := e.aead(env.Salt)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(env.Ciphertext)+TagSize)
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.Tag...)

	plaintext, err := gcm.Open(nil, env.IV, sealed, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

// aead builds the AES-256-GCM cipher for the per-record key derived from salt.
func (e *Engine) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(e.masterKey, salt, e.iterations, KeySize, e.digest)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("encryption: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("encryption: create gcm: %w", err)
	}
	return gcm, nil
}
