package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptoscore/cryptoscore/internal/identity"
)

type failingSigner struct{}

func (failingSigner) Sign(Claims) (string, error)    { return "", errors.New("boom") }
func (failingSigner) Verify(string) (Claims, error) { return Claims{}, ErrInvalidToken }

func TestIssuerIssueClaimsMatchUser(t *testing.T) {
	signer := newTestSigner(t)
	issuer := NewIssuer(signer, 24*time.Hour)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return fixed }
	signer.now = func() time.Time { return fixed.Add(time.Minute) }

	user := identity.User{
		ID:               "6f1c3f8e-7b43-4b7e-9c2a-0d7a3c1b2e55",
		FirstName:        "Jane",
		LastName:         "Smith",
		Email:            "jane.smith@example.com",
		WalletAddress:    "0x0987654321098765432109876543210987654321",
		Roles:            identity.NewRoles(identity.RoleUser, identity.RoleBorrower, identity.RoleLender),
		CreditScore:      720,
		ReputationTokens: 1950,
	}

	resp, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.Equal(t, TokenType, resp.TokenType)
	assert.Equal(t, user.ID, resp.ID)
	assert.Equal(t, "Jane", resp.FirstName)
	assert.Equal(t, "Smith", resp.LastName)
	assert.Equal(t, user.Email, resp.Email)
	require.NotNil(t, resp.WalletAddress)
	assert.Equal(t, user.WalletAddress, *resp.WalletAddress)
	assert.Equal(t, 720, resp.CreditScore)
	assert.Equal(t, 1950, resp.ReputationTokens)
	assert.Equal(t, []string{"USER", "BORROWER", "LENDER"}, resp.Roles)

	claims, err := signer.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, user.Roles.Names(), claims.Roles)
	assert.True(t, claims.IssuedAt.Equal(fixed))
	assert.True(t, claims.ExpiresAt.Equal(fixed.Add(24*time.Hour)))
}

func TestIssuerIssueWithoutWallet(t *testing.T) {
	issuer := NewIssuer(newTestSigner(t), time.Hour)

	resp, err := issuer.Issue(identity.User{ID: "u-1", Email: "a@example.com", Roles: identity.DefaultRoles})
	require.NoError(t, err)
	assert.Nil(t, resp.WalletAddress)
}

func TestIssuerPropagatesSignerError(t *testing.T) {
	issuer := NewIssuer(failingSigner{}, time.Hour)

	_, err := issuer.Issue(identity.User{ID: "u-1", Roles: identity.DefaultRoles})
	assert.Error(t, err)
}
