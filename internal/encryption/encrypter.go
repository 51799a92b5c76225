// Package encryption seals cache values at rest.
package encryption

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/charlesng35/dbcache/pkg/codec"
	"github.com/charlesng35/dbcache/pkg/crypto"
)

// ErrInvalidPayload is returned by Decrypt for payloads that are malformed, tampered
// with, sealed under a different key, or do not decode into the value type.
var ErrInvalidPayload = errors.New("encryption: invalid payload")

// Encrypter serializes values with a codec and seals them with AES-GCM using a key
// derived from the master secret.
type Encrypter[V any] struct {
	key   []byte
	codec codec.Codec[V]
}

type encrypterConfig struct {
	params crypto.Argon2Parameters
	salt   []byte
}

// Option configures the Encrypter key derivation.
type Option func(*encrypterConfig)

// WithSalt overrides the salt used for Argon2 key derivation.
func WithSalt(salt []byte) Option {
	cp := append([]byte(nil), salt...)
	return func(cfg *encrypterConfig) {
		cfg.salt = cp
	}
}

// WithArgon2Parameters overrides the Argon2 parameters used during key derivation.
func WithArgon2Parameters(params crypto.Argon2Parameters) Option {
	return func(cfg *encrypterConfig) {
		cfg.params = params
	}
}

// New derives the AES key from masterKey and returns an Encrypter for V values.
// Processes sharing a cache table must use the same master key, salt and parameters.
func New[V any](masterKey []byte, c codec.Codec[V], opts ...Option) (*Encrypter[V], error) {
	if len(masterKey) == 0 {
		return nil, errors.New("encryption: master key is required")
	}
	if c == nil {
		return nil, errors.New("encryption: codec is required")
	}

	cfg := encrypterConfig{params: crypto.DefaultArgon2Params()}
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(cfg.salt) == 0 {
		cfg.salt = deriveSalt(masterKey)
	} else if len(cfg.salt) < crypto.MinSaltLength {
		return nil, fmt.Errorf("encryption: salt must be at least %d bytes (got %d)", crypto.MinSaltLength, len(cfg.salt))
	}

	key, err := crypto.DeriveKey(masterKey, cfg.salt, cfg.params)
	if err != nil {
		return nil, fmt.Errorf("encryption: derive key: %w", err)
	}

	return &Encrypter[V]{key: key, codec: c}, nil
}

// Encrypt serializes value and returns the sealed, base64 encoded payload.
func (e *Encrypter[V]) Encrypt(value V) (string, error) {
	raw, err := e.codec.Encode(value)
	if err != nil {
		return "", fmt.Errorf("encryption: encode value: %w", err)
	}
	return crypto.Encrypt(raw, e.key)
}

// Decrypt opens payload and decodes it into V.
func (e *Encrypter[V]) Decrypt(payload string) (V, error) {
	var zero V

	raw, err := crypto.Decrypt(payload, e.key)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	value, err := e.codec.Decode(raw)
	if err != nil {
		return zero, fmt.Errorf("%w: decode value: %v", ErrInvalidPayload, err)
	}
	return value, nil
}

func deriveSalt(masterKey []byte) []byte {
	sum := sha256.Sum256(masterKey)
	return sum[:crypto.MinSaltLength]
}
