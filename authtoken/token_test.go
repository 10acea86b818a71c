package authtoken_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisphq/wisp/authtoken"
)

const testSecret = "super-secret-key-for-testing-purposes-1234567890"

func TestIssuer_MintAndVerify(t *testing.T) {
	iss := authtoken.New(testSecret, "wisp-demo")
	now := time.Now()

	token, err := iss.Mint("user-42", "ada@example.com", "admin", []string{"read:widgets", "write:widgets"}, 15*time.Minute, now)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Rank)
	assert.Equal(t, []string{"read:widgets", "write:widgets"}, claims.Permissions)
	assert.Equal(t, "wisp-demo", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, now.Add(15*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestIssuer_Verify_RejectsWrongSecret(t *testing.T) {
	mint := authtoken.New(testSecret, "wisp-demo")
	token, err := mint.Mint("user-1", "", "", nil, time.Hour, time.Now())
	require.NoError(t, err)

	verify := authtoken.New("a-completely-different-secret", "wisp-demo")
	_, err = verify.Verify(token)
	assert.ErrorIs(t, err, authtoken.ErrInvalidToken)
}

func TestIssuer_Verify_RejectsExpiredToken(t *testing.T) {
	iss := authtoken.New(testSecret, "wisp-demo")
	token, err := iss.Mint("user-1", "", "", nil, -time.Minute, time.Now())
	require.NoError(t, err)

	_, err = iss.Verify(token)
	assert.ErrorIs(t, err, authtoken.ErrInvalidToken)
}

func TestIssuer_Verify_RejectsMalformedToken(t *testing.T) {
	iss := authtoken.New(testSecret, "wisp-demo")
	_, err := iss.Verify("not.a.valid.token")
	assert.ErrorIs(t, err, authtoken.ErrInvalidToken)
}
