package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestService() (*Service, Repository) {
	repo := NewMemoryRepository()
	return NewService(repo, NewBcryptHasher(bcrypt.MinCost)), repo
}

func register(t *testing.T, svc *Service, email, password string) User {
	t.Helper()
	user, err := svc.RegisterByCredentials(context.Background(), RegisterInput{
		FirstName: "Alice",
		LastName:  "Example",
		Email:     email,
		Password:  password,
	})
	require.NoError(t, err)
	return user
}

func TestRegisterAndResolveByCredentials(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	user := register(t, svc, "alice@example.com", "pw1")
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, DefaultRoles, user.Roles)
	assert.Zero(t, user.CreditScore)
	assert.Zero(t, user.ReputationTokens)
	assert.False(t, user.KYCVerified)
	assert.False(t, user.OnboardingCompleted)
	assert.NotEqual(t, []byte("pw1"), user.PasswordHash)

	resolved, err := svc.ResolveByCredentials(ctx, "alice@example.com", "pw1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
	assert.Equal(t, "alice@example.com", resolved.Email)
}

func TestResolveByCredentialsIsCaseInsensitive(t *testing.T) {
	svc, _ := newTestService()

	user := register(t, svc, "alice@example.com", "pw1")

	resolved, err := svc.ResolveByCredentials(context.Background(), "  Alice@Example.COM ", "pw1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
}

func TestRegisterStoresCanonicalEmail(t *testing.T) {
	svc, _ := newTestService()

	user := register(t, svc, "Alice@Example.com", "pw1")
	assert.Equal(t, "alice@example.com", user.Email)

	_, err := svc.ResolveByCredentials(context.Background(), "alice@example.com", "pw1")
	require.NoError(t, err)
}

func TestResolveByCredentialsFailures(t *testing.T) {
	svc, _ := newTestService()
	register(t, svc, "alice@example.com", "pw1")

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "alice@example.com", password: "pw2"},
		{name: "unknown email", email: "bob@example.com", password: "pw1"},
		{name: "empty password", email: "alice@example.com", password: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ResolveByCredentials(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestRegisterDuplicateEmailRegardlessOfCase(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	original := register(t, svc, "alice@example.com", "pw1")

	for _, email := range []string{"alice@example.com", "ALICE@example.com", " Alice@Example.Com"} {
		_, err := svc.RegisterByCredentials(ctx, RegisterInput{FirstName: "Eve", LastName: "X", Email: email, Password: "other"})
		assert.ErrorIs(t, err, ErrEmailTaken, email)
	}

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	stored, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, original.ID, stored.ID)
	assert.Equal(t, "Alice", stored.FirstName)

	// The original password still works, the losing attempt's does not.
	_, err = svc.ResolveByCredentials(ctx, "alice@example.com", "other")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterRejectsWalletDomain(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.RegisterByCredentials(context.Background(), RegisterInput{
		FirstName: "Mallory", LastName: "X", Email: "0xabc@WALLET.local", Password: "pw",
	})
	assert.ErrorIs(t, err, ErrReservedEmail)
	assert.True(t, IsValidation(err))
}

func TestRegisterConcurrentSameEmail(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		taken     int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RegisterByCredentials(ctx, RegisterInput{
				FirstName: "Alice", LastName: "Racer", Email: "race@example.com", Password: "pw",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrEmailTaken):
				taken++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, taken)
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestResolveOrCreateByWalletIsIdempotent(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	first, created, err := svc.ResolveOrCreateByWallet(ctx, "0xABC123")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := svc.ResolveOrCreateByWallet(ctx, "0xabc123")
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "0xabc123", second.WalletAddress)
	assert.Equal(t, "0xabc123@wallet.local", second.Email)
	assert.Equal(t, "Wallet", second.FirstName)
	assert.Equal(t, "User", second.LastName)
	assert.Zero(t, second.CreditScore)
	assert.Equal(t, []string{"USER", "BORROWER"}, second.Roles.Names())
	assert.NotEmpty(t, second.PasswordHash)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestResolveOrCreateByWalletConcurrent(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	const callers = 8
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user, _, err := svc.ResolveOrCreateByWallet(ctx, "0xFEED")
			if err != nil {
				t.Errorf("wallet connect: %v", err)
				return
			}
			ids[i] = user.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestResolveOrCreateByWalletRejectsBadAddress(t *testing.T) {
	svc, _ := newTestService()

	for _, addr := range []string{"", "   ", "0xabc@evil.com", "0x ab"} {
		_, _, err := svc.ResolveOrCreateByWallet(context.Background(), addr)
		assert.ErrorIs(t, err, ErrInvalidWalletAddress, addr)
	}
}

func TestResolveOrCreateByWalletPlaceholderEmailTaken(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	squatter := svc.newUser("Legacy", "Account", "0xdead@wallet.local", []byte("hash"))
	require.NoError(t, repo.Create(ctx, squatter))

	_, _, err := svc.ResolveOrCreateByWallet(ctx, "0xDEAD")
	assert.ErrorIs(t, err, ErrIdentityConflict)
}

// racingRepository hides a wallet user from the first lookup so the service
// hits the uniqueness conflict a concurrent creator would cause.
type racingRepository struct {
	Repository
	mu      sync.Mutex
	lookups int
}

func (r *racingRepository) FindByWalletAddress(ctx context.Context, address string) (User, error) {
	r.mu.Lock()
	r.lookups++
	first := r.lookups == 1
	r.mu.Unlock()
	if first {
		return User{}, ErrNotFound
	}
	return r.Repository.FindByWalletAddress(ctx, address)
}

func TestResolveOrCreateByWalletRetriesOnceAfterConflict(t *testing.T) {
	inner := NewMemoryRepository()
	repo := &racingRepository{Repository: inner}
	svc := NewService(repo, NewBcryptHasher(bcrypt.MinCost))
	ctx := context.Background()

	winner := svc.newUser(walletFirstName, walletLastName, WalletEmail("0xbeef"), []byte("hash"))
	winner.WalletAddress = "0xbeef"
	require.NoError(t, inner.Create(ctx, winner))

	user, created, err := svc.ResolveOrCreateByWallet(ctx, "0xBEEF")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, winner.ID, user.ID)
	assert.Equal(t, 2, repo.lookups)
}

func TestFindByID(t *testing.T) {
	svc, _ := newTestService()
	user := register(t, svc, "carol@example.com", "pw")

	found, err := svc.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, found.Email)

	_, err = svc.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
