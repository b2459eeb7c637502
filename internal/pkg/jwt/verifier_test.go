package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeyPair(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestVerifyAccessToken(t *testing.T) {
	key := newKeyPair(t)
	gen := NewGenerator(key, "menupro-auth", "menupro-api", "k1", time.Hour)
	ver := NewVerifier(&key.PublicKey, "menupro-auth", "menupro-api")

	token, jti, err := gen.GenerateAccessToken(42, []string{RoleOwner}, "web")
	require.NoError(t, err)
	assert.NotEmpty(t, jti)

	claims, err := ver.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.IdentityID)
	assert.True(t, claims.HasRole(RoleOwner))
	assert.False(t, claims.IsAdmin())
	assert.Equal(t, jti, claims.ID)
}

func TestVerify_Rejects(t *testing.T) {
	key := newKeyPair(t)
	other := newKeyPair(t)

	tests := []struct {
		name    string
		gen     *Generator
		ver     *Verifier
		purpose string
	}{
		{
			name: "wrong audience",
			gen:  NewGenerator(key, "menupro-auth", "someone-else", "", time.Hour),
			ver:  NewVerifier(&key.PublicKey, "menupro-auth", "menupro-api"),
		},
		{
			name: "wrong issuer",
			gen:  NewGenerator(key, "rogue", "menupro-api", "", time.Hour),
			ver:  NewVerifier(&key.PublicKey, "menupro-auth", "menupro-api"),
		},
		{
			name: "wrong key",
			gen:  NewGenerator(other, "menupro-auth", "menupro-api", "", time.Hour),
			ver:  NewVerifier(&key.PublicKey, "menupro-auth", "menupro-api"),
		},
		{
			name: "expired",
			gen:  NewGenerator(key, "menupro-auth", "menupro-api", "", -time.Minute),
			ver:  NewVerifier(&key.PublicKey, "menupro-auth", "menupro-api"),
		},
		{
			name:    "not an access token",
			gen:     NewGenerator(key, "menupro-auth", "menupro-api", "", time.Hour),
			ver:     NewVerifier(&key.PublicKey, "menupro-auth", "menupro-api"),
			purpose: "refresh",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			purpose := PurposeAccess
			if tt.purpose != "" {
				purpose = tt.purpose
			}
			token, _, err := tt.gen.Generate(7, nil, "", purpose, nil)
			require.NoError(t, err)

			_, err = tt.ver.VerifyAccessToken(token)
			assert.Error(t, err)
		})
	}
}

func TestGenerate_NilKey(t *testing.T) {
	gen := NewGenerator(nil, "a", "b", "", time.Hour)
	_, _, err := gen.GenerateAccessToken(1, nil, "")
	assert.Error(t, err)
}
