package crypto

import (
	"fmt"

	"golang.org/x/crypto/argon2"
)

// MinSaltLength is the shortest salt accepted by DeriveKey.
const MinSaltLength = 16

// Argon2Parameters controls the cost factors for Argon2id key derivation.
type Argon2Parameters struct {
	// Time is the number of iterations.
	Time uint32 `mapstructure:"time"`
	// Memory is the amount of memory (in kibibytes) to use.
	Memory uint32 `mapstructure:"memory"`
	// Threads is the degree of parallelism.
	Threads uint8 `mapstructure:"threads"`
	// KeyLength is the derived key size in bytes; it selects the AES variant.
	KeyLength uint32 `mapstructure:"key_length"`
}

// DefaultArgon2Params returns the parameters used to derive the cache encryption key.
func DefaultArgon2Params() Argon2Parameters {
	return Argon2Parameters{
		Time:      2,
		Memory:    64 * 1024, // 64 MiB
		Threads:   4,
		KeyLength: 32,
	}
}

// Validate ensures the parameters are usable for Argon2id and AES.
func (p Argon2Parameters) Validate() error {
	switch {
	case p.Time == 0:
		return fmt.Errorf("argon2: time cost must be greater than zero")
	case p.Threads == 0:
		return fmt.Errorf("argon2: parallelism must be greater than zero")
	case p.Memory < 8*uint32(p.Threads):
		return fmt.Errorf("argon2: memory cost must be at least 8 * threads")
	}
	switch p.KeyLength {
	case 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("argon2: key length must be 16, 24, or 32 bytes (got %d)", p.KeyLength)
	}
}

// DeriveKey stretches secret into an AES key with Argon2id.
func DeriveKey(secret, salt []byte, params Argon2Parameters) ([]byte, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("argon2: secret is required")
	}
	if len(salt) < MinSaltLength {
		return nil, fmt.Errorf("argon2: salt must be at least %d bytes (got %d)", MinSaltLength, len(salt))
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return argon2.IDKey(secret, salt, params.Time, params.Memory, params.Threads, params.KeyLength), nil
}
