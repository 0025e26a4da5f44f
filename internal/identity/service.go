package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const walletRetryDelay = 10 * time.Millisecond

// Service resolves inbound authentication requests to canonical, persisted users.
type Service struct {
	repo   Repository
	hasher PasswordHasher
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewService creates a new identity service.
func NewService(repo Repository, hasher PasswordHasher) *Service {
	return &Service{repo: repo, hasher: hasher, now: time.Now}
}

// ResolveByCredentials verifies an email/password pair. An unknown email and a
// wrong password are indistinguishable to the caller.
func (s *Service) ResolveByCredentials(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		// Keep the unknown-email path as slow as a real verify.
		s.hasher.Verify(s.dummy(), password)
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// RegisterByCredentials creates a password user with the default roles.
// A concurrent signup that loses the insert race observes ErrEmailTaken.
func (s *Service) RegisterByCredentials(ctx context.Context, in RegisterInput) (User, error) {
	email := NormalizeEmail(in.Email)
	if isReservedEmail(email) {
		return User{}, ErrReservedEmail
	}

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if exists {
		return User{}, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return User{}, err
	}

	user := s.newUser(in.FirstName, in.LastName, email, hash)
	if err := s.repo.Create(ctx, user); err != nil {
		if IsConflictOn(err, FieldEmail) {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	return user, nil
}

// ResolveOrCreateByWallet returns the user linked to walletAddress, creating it
// on first sight. The bool reports whether a user was created. Wallet ownership
// is not verified.
func (s *Service) ResolveOrCreateByWallet(ctx context.Context, walletAddress string) (User, bool, error) {
	addr, err := NormalizeWalletAddress(walletAddress)
	if err != nil {
		return User{}, false, err
	}

	var (
		user    User
		created bool
		hash    []byte
	)
	backoff := retry.WithMaxRetries(1, retry.NewConstant(walletRetryDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		existing, err := s.repo.FindByWalletAddress(ctx, addr)
		if err == nil {
			user = existing
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		if hash == nil {
			if hash, err = s.hasher.Hash(walletPlaceholderSecret); err != nil {
				return err
			}
		}
		candidate := s.newUser(walletFirstName, walletLastName, WalletEmail(addr), hash)
		candidate.WalletAddress = addr

		if err := s.repo.Create(ctx, candidate); err != nil {
			if errors.Is(err, ErrConflict) {
				// Most likely another request created it first; look it up again.
				return retry.RetryableError(err)
			}
			return err
		}
		user, created = candidate, true
		return nil
	})
	if IsConflictOn(err, FieldEmail) {
		// Still no wallet user after the retry: the placeholder email is owned
		// by an unrelated account.
		return User{}, false, ErrIdentityConflict
	}
	if err != nil {
		return User{}, false, err
	}
	return user, created, nil
}

// FindByID returns the user with the given identifier.
func (s *Service) FindByID(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) newUser(firstName, lastName, email string, hash []byte) User {
	return User{
		ID:           uuid.NewString(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: hash,
		Roles:        DefaultRoles,
		CreatedAt:    s.now().UTC(),
	}
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(uuid.NewString())
	})
	return s.dummyHash
}
