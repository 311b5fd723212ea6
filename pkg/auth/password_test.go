package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

func rederive(password string, salt []byte, iterations int) string {
	key := pbkdf2.Key([]byte(password), salt, iterations, KeyLength, sha256.New)
	return base64.StdEncoding.EncodeToString(key)
}

func TestHashAndVerifyPassword(t *testing.T) {
	password := "correct horse battery 1"

	hash, err := HashPassword(password)
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	require.NotEqual(t, password, hash)

	assert.True(t, VerifyPassword(password, hash))
	assert.False(t, VerifyPassword("wrong horse battery 1", hash))
	assert.False(t, VerifyPassword("", hash))
}

func TestHashPassword_Encoding(t *testing.T) {
	hash, err := HashPassword("some-password-1")
	require.NoError(t, err)

	parts := strings.Split(hash, ":")
	require.Len(t, parts, 4)
	assert.Equal(t, "PBKDF2-SHA256", parts[0])
	assert.Equal(t, "120000", parts[1])

	salt, err := base64.StdEncoding.DecodeString(parts[2])
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(salt), 16)

	key, err := base64.StdEncoding.DecodeString(parts[3])
	require.NoError(t, err)
	assert.Equal(t, 32, len(key))
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	h1, err := HashPassword("same password 1")
	require.NoError(t, err)
	h2, err := HashPassword("same password 1")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "two hashes of the same password must use different salts")
	assert.True(t, VerifyPassword("same password 1", h1))
	assert.True(t, VerifyPassword("same password 1", h2))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	valid, err := HashPassword("some-password-1")
	require.NoError(t, err)

	tests := []struct {
		name    string
		encoded string
	}{
		{"empty string", ""},
		{"plain text", "not-a-hash"},
		{"wrong field count", "PBKDF2-SHA256:120000:onlythree"},
		{"too many fields", valid + ":extra"},
		{"wrong algorithm tag", strings.Replace(valid, "PBKDF2-SHA256", "BCRYPT", 1)},
		{"non-numeric iterations", "PBKDF2-SHA256:lots:c2FsdA==:aGFzaA=="},
		{"zero iterations", "PBKDF2-SHA256:0:c2FsdA==:aGFzaA=="},
		{"negative iterations", "PBKDF2-SHA256:-1:c2FsdA==:aGFzaA=="},
		{"invalid salt base64", "PBKDF2-SHA256:120000:!!!!:aGFzaA=="},
		{"invalid hash base64", "PBKDF2-SHA256:120000:c2FsdA==:!!!!"},
		{"empty salt", "PBKDF2-SHA256:120000::aGFzaA=="},
		{"empty hash", "PBKDF2-SHA256:120000:c2FsdA==:"},
		{"truncated", valid[:len(valid)/2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Must return false, never panic
			assert.False(t, VerifyPassword("some-password-1", tt.encoded))
		})
	}
}

func TestVerifyPassword_EmbeddedParameters(t *testing.T) {
	// A hash produced with a different iteration count still verifies,
	// because parameters come from the encoded string itself.
	hash, err := HashPassword("some-password-1")
	require.NoError(t, err)

	parts := strings.Split(hash, ":")
	require.Len(t, parts, 4)

	// Recompute with a lower iteration count and patch the string
	salt, err := base64.StdEncoding.DecodeString(parts[2])
	require.NoError(t, err)

	rehashed := rederive("some-password-1", salt, 1000)
	patched := fmt.Sprintf("%s:%d:%s:%s", parts[0], 1000, parts[2], rehashed)

	assert.True(t, VerifyPassword("some-password-1", patched))
	assert.False(t, VerifyPassword("other-password-1", patched))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		shouldFail bool
	}{
		{"valid", "myjournal42", false},
		{"valid with symbols", "My-Journal!42", false},
		{"too short", "ab12", true},
		{"no digit", "onlyletters", true},
		{"no letter", "1234567890", true},
		{"too long", strings.Repeat("a", 130) + "1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.shouldFail {
				assert.Error(t, err)
				assert.Equal(t, "invalid password", err.Error())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
