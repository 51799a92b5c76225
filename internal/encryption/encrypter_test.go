package encryption

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/dbcache/pkg/codec"
	"github.com/charlesng35/dbcache/pkg/crypto"
)

func testParams() crypto.Argon2Parameters {
	return crypto.Argon2Parameters{Time: 1, Memory: 1024, Threads: 1, KeyLength: 32}
}

func newTestEncrypter(t *testing.T, master string) *Encrypter[map[string]int] {
	t.Helper()

	enc, err := New[map[string]int]([]byte(master), codec.Msgpack[map[string]int]{}, WithArgon2Parameters(testParams()))
	require.NoError(t, err)
	return enc
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc := newTestEncrypter(t, "master-secret")
	value := map[string]int{"a": 1, "b": 2}

	payload, err := enc.Encrypt(value)
	require.NoError(t, err)
	require.NotEmpty(t, payload)

	decoded, err := enc.Decrypt(payload)
	require.NoError(t, err)
	require.Equal(t, value, decoded)
}

func TestDecryptFailsUnderDifferentMasterKey(t *testing.T) {
	payload, err := newTestEncrypter(t, "master-secret").Encrypt(map[string]int{"a": 1})
	require.NoError(t, err)

	_, err = newTestEncrypter(t, "other-secret").Decrypt(payload)
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestDecryptFailsOnMalformedPayload(t *testing.T) {
	enc := newTestEncrypter(t, "master-secret")

	_, err := enc.Decrypt("definitely-not-ciphertext")
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestDecryptFailsWhenValueDoesNotDecode(t *testing.T) {
	stringEnc, err := New[string]([]byte("master-secret"), codec.JSON[string]{}, WithArgon2Parameters(testParams()))
	require.NoError(t, err)
	payload, err := stringEnc.Encrypt("plain string")
	require.NoError(t, err)

	ints, err := New[int]([]byte("master-secret"), codec.JSON[int]{}, WithArgon2Parameters(testParams()))
	require.NoError(t, err)

	_, err = ints.Decrypt(payload)
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestNewValidatesInputs(t *testing.T) {
	_, err := New[string](nil, codec.Msgpack[string]{})
	require.Error(t, err)

	_, err = New[string]([]byte("k"), nil)
	require.Error(t, err)

	_, err = New[string]([]byte("k"), codec.Msgpack[string]{}, WithSalt([]byte("short")))
	require.Error(t, err)
}

func TestCustomSaltChangesKey(t *testing.T) {
	a, err := New[string]([]byte("master"), codec.Msgpack[string]{}, WithArgon2Parameters(testParams()), WithSalt(bytes.Repeat([]byte{1}, 16)))
	require.NoError(t, err)
	b, err := New[string]([]byte("master"), codec.Msgpack[string]{}, WithArgon2Parameters(testParams()), WithSalt(bytes.Repeat([]byte{2}, 16)))
	require.NoError(t, err)

	payload, err := a.Encrypt("value")
	require.NoError(t, err)

	_, err = b.Decrypt(payload)
	require.ErrorIs(t, err, ErrInvalidPayload)
}
