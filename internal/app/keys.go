package app

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// DecodeKey decodes a key from hex or base64 encoding to raw bytes.
// Hex is tried first since `cachectl keygen` emits hex. Values that decode as
// neither are used verbatim.
func DecodeKey(value string) ([]byte, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil, fmt.Errorf("key value is empty")
	}

	if len(v)%2 == 0 {
		if decoded, err := hex.DecodeString(v); err == nil {
			return decoded, nil
		}
	}

	if decoded, err := base64.StdEncoding.DecodeString(v); err == nil {
		return decoded, nil
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(v); err == nil {
		return decoded, nil
	}

	return []byte(v), nil
}

// EncryptionMaterial decodes the master key and the optional salt.
// An empty salt is returned as nil so the encrypter derives its default.
func (c EncryptionConfig) EncryptionMaterial() (key, salt []byte, err error) {
	key, err = DecodeKey(c.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("encryption.key: %w", err)
	}
	if strings.TrimSpace(c.Salt) == "" {
		return key, nil, nil
	}
	salt, err = DecodeKey(c.Salt)
	if err != nil {
		return nil, nil, fmt.Errorf("encryption.salt: %w", err)
	}
	return key, salt, nil
}
