package cache

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDecryption matches any *DecryptionError.
	ErrDecryption = errors.New("cache: decryption failed")
	// ErrConstraint matches any *ConstraintError.
	ErrConstraint = errors.New("cache: duplicate key")
	// ErrUnsupported is returned when the row store lacks a capability.
	ErrUnsupported = errors.New("cache: operation not supported by row store")
)

// DecryptionError reports a live row whose value could not be opened.
type DecryptionError struct {
	Key string
	Err error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("cache: decrypt %q: %v", e.Key, e.Err)
}

func (e *DecryptionError) Unwrap() error { return e.Err }

func (e *DecryptionError) Is(target error) bool { return target == ErrDecryption }

// EncryptionError reports a value that could not be serialized or sealed.
type EncryptionError struct {
	Key string
	Err error
}

func (e *EncryptionError) Error() string {
	return fmt.Sprintf("cache: encrypt %q: %v", e.Key, e.Err)
}

func (e *EncryptionError) Unwrap() error { return e.Err }

// ConstraintError reports an insert that collided with existing rows.
type ConstraintError struct {
	Keys []string
	Err  error
}

func (e *ConstraintError) Error() string {
	if len(e.Keys) == 0 {
		return fmt.Sprintf("cache: duplicate key on insert: %v", e.Err)
	}
	return fmt.Sprintf("cache: duplicate key on insert of [%s]: %v", strings.Join(e.Keys, ", "), e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

func (e *ConstraintError) Is(target error) bool { return target == ErrConstraint }
