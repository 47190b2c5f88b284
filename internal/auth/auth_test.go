package auth

import (
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/safar/storefront/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/scrypt"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "scrypt$32768$8$1$"))
	assert.NotContains(t, hash, "s3cret!")
	assert.True(t, CheckPassword(hash, "s3cret!"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, NeedsRehash(hash))

	other, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other)
}

func TestCheckPassword_LegacyFormat(t *testing.T) {
	salt := "0123456789abcdef0123456789abcdef"
	key, err := scrypt.Key([]byte("admin123"), []byte(salt), 16384, 8, 1, 64)
	require.NoError(t, err)
	legacy := hex.EncodeToString(key) + "." + salt

	assert.True(t, CheckPassword(legacy, "admin123"))
	assert.False(t, CheckPassword(legacy, "admin124"))
	assert.True(t, NeedsRehash(legacy))
}

func TestCheckPassword_Malformed(t *testing.T) {
	for _, hash := range []string{"", "plaintext", "scrypt$1$2", "zz.salt", "scrypt$x$8$1$00$00"} {
		assert.False(t, CheckPassword(hash, "plaintext"), hash)
	}
}

func TestIssuer_IssueAndVerify(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewIssuer("test-secret", 24*time.Hour, func() time.Time { return now })
	user := &models.User{ID: 7, Username: "alice", IsAdmin: true}

	token, issued, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)
	assert.Equal(t, now.Add(24*time.Hour), issued.ExpiresAt.Time)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestIssuer_RejectsExpired(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	issuer := NewIssuer("test-secret", time.Hour, func() time.Time { return clock })

	token, _, err := issuer.Issue(&models.User{ID: 1, Username: "bob"})
	require.NoError(t, err)

	clock = now.Add(2 * time.Hour)
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_RejectsWrongSecretAndAlgorithm(t *testing.T) {
	issuer := NewIssuer("test-secret", time.Hour, nil)
	other := NewIssuer("other-secret", time.Hour, nil)

	token, _, err := other.Issue(&models.User{ID: 1, Username: "bob"})
	require.NoError(t, err)
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
