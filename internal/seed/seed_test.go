package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cryptoscore/cryptoscore/internal/identity"
	"github.com/cryptoscore/cryptoscore/internal/logging"
)

func newSeeder() (*Seeder, identity.Repository, *identity.Service) {
	repo := identity.NewMemoryRepository()
	hasher := identity.NewBcryptHasher(bcrypt.MinCost)
	return New(repo, hasher, logging.Discard()), repo, identity.NewService(repo, hasher)
}

func TestRunSeedsEmptyStore(t *testing.T) {
	s, repo, svc := newSeeder()
	ctx := context.Background()

	created, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	jane, err := svc.ResolveByCredentials(ctx, "jane.smith@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, 720, jane.CreditScore)
	assert.Equal(t, 1950, jane.ReputationTokens)
	assert.True(t, jane.KYCVerified)
	assert.True(t, jane.Roles.Has(identity.RoleLender))
	assert.Equal(t, "0x0987654321098765432109876543210987654321", jane.WalletAddress)

	john, created2, err := svc.ResolveOrCreateByWallet(ctx, "0x1234567890123456789012345678901234567890")
	require.NoError(t, err)
	assert.False(t, created2)
	assert.Equal(t, "john.doe@example.com", john.Email)
	assert.Equal(t, 780, john.CreditScore)

	alice, err := repo.FindByEmail(ctx, "alice.johnson@example.com")
	require.NoError(t, err)
	assert.False(t, alice.HasWallet())
	assert.False(t, alice.KYCVerified)
	assert.Equal(t, identity.DefaultRoles, alice.Roles)
}

func TestRunSkipsNonEmptyStore(t *testing.T) {
	s, repo, svc := newSeeder()
	ctx := context.Background()

	_, err := svc.RegisterByCredentials(ctx, identity.RegisterInput{
		FirstName: "Bob", LastName: "Existing", Email: "bob@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	created, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, created)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

type conflictingRepo struct {
	identity.Repository
}

func (conflictingRepo) Count(context.Context) (int64, error) { return 0, nil }

func (r conflictingRepo) Create(ctx context.Context, u identity.User) error {
	if u.Email == "john.doe@example.com" {
		return identity.ConflictError{Op: "test", Field: identity.FieldEmail}
	}
	return r.Repository.Create(ctx, u)
}

func TestRunSkipsUsersCreatedConcurrently(t *testing.T) {
	repo := conflictingRepo{Repository: identity.NewMemoryRepository()}
	s := New(repo, identity.NewBcryptHasher(bcrypt.MinCost), logging.Discard())

	created, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, created)
}

type failingRepo struct {
	identity.Repository
}

func (failingRepo) Count(context.Context) (int64, error) { return 0, errors.New("connection refused") }

func TestRunReportsCountFailure(t *testing.T) {
	s := New(failingRepo{}, identity.NewBcryptHasher(bcrypt.MinCost), logging.Discard())

	_, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
