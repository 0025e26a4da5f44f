// Package seed populates an empty user store with demo accounts.
package seed

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/cryptoscore/cryptoscore/internal/identity"
)

const demoPassword = "password123"

type demoUser struct {
	firstName           string
	lastName            string
	email               string
	walletAddress       string
	roles               identity.Roles
	creditScore         int
	reputationTokens    int
	kycVerified         bool
	onboardingCompleted bool
}

var demoUsers = []demoUser{
	{
		firstName:           "John",
		lastName:            "Doe",
		email:               "john.doe@example.com",
		walletAddress:       "0x1234567890123456789012345678901234567890",
		roles:               identity.DefaultRoles,
		creditScore:         780,
		reputationTokens:    2847,
		kycVerified:         true,
		onboardingCompleted: true,
	},
	{
		firstName:           "Jane",
		lastName:            "Smith",
		email:               "jane.smith@example.com",
		walletAddress:       "0x0987654321098765432109876543210987654321",
		roles:               identity.DefaultRoles.With(identity.RoleLender),
		creditScore:         720,
		reputationTokens:    1950,
		kycVerified:         true,
		onboardingCompleted: true,
	},
	{
		firstName:        "Alice",
		lastName:         "Johnson",
		email:            "alice.johnson@example.com",
		roles:            identity.DefaultRoles,
		creditScore:      650,
		reputationTokens: 100,
	},
}

// Seeder writes the demo accounts.
type Seeder struct {
	repo   identity.Repository
	hasher identity.PasswordHasher
	logger *slog.Logger
}

// New builds a Seeder.
func New(repo identity.Repository, hasher identity.PasswordHasher, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{repo: repo, hasher: hasher, logger: logger}
}

// Run inserts the demo users when the store is empty and reports how many
// were created. Users that already exist are skipped, so concurrent runs
// are harmless.
func (s *Seeder) Run(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, oops.Code("SEED_COUNT_FAILED").Wrap(err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "seed skipped, store not empty", slog.Int64("users", n))
		return 0, nil
	}

	hash, err := s.hasher.Hash(demoPassword)
	if err != nil {
		return 0, oops.Code("SEED_HASH_FAILED").Wrap(err)
	}

	created := 0
	now := time.Now().UTC()
	for _, d := range demoUsers {
		err := s.repo.Create(ctx, identity.User{
			ID:                  uuid.NewString(),
			FirstName:           d.firstName,
			LastName:            d.lastName,
			Email:               d.email,
			PasswordHash:        hash,
			WalletAddress:       d.walletAddress,
			Roles:               d.roles,
			CreditScore:         d.creditScore,
			ReputationTokens:    d.reputationTokens,
			KYCVerified:         d.kycVerified,
			OnboardingCompleted: d.onboardingCompleted,
			CreatedAt:           now,
		})
		if errors.Is(err, identity.ErrConflict) {
			continue
		}
		if err != nil {
			return created, oops.Code("SEED_CREATE_FAILED").With("email", d.email).Wrap(err)
		}
		created++
		s.logger.InfoContext(ctx, "demo user created",
			slog.String("email", d.email),
			slog.Int("credit_score", d.creditScore))
	}
	return created, nil
}
