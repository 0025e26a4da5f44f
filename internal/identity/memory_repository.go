package identity

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	users    map[string]User
	byEmail  map[string]string
	byWallet map[string]string
}

// NewMemoryRepository builds an in-memory user store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		users:    make(map[string]User),
		byEmail:  make(map[string]string),
		byWallet: make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	const op = "identity.Create"

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.ID]; exists {
		return ConflictError{Op: op, Field: "id"}
	}
	if user.WalletAddress != "" {
		if _, exists := r.byWallet[user.WalletAddress]; exists {
			return ConflictError{Op: op, Field: FieldWalletAddress}
		}
	}
	if _, exists := r.byEmail[user.Email]; exists {
		return ConflictError{Op: op, Field: FieldEmail}
	}

	user = clone(user)
	r.users[user.ID] = user
	r.byEmail[user.Email] = user.ID
	if user.WalletAddress != "" {
		r.byWallet[user.WalletAddress] = user.ID
	}
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return clone(user), nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return clone(r.users[id]), nil
}

func (r *memoryRepository) FindByWalletAddress(_ context.Context, address string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byWallet[address]
	if !ok {
		return User{}, ErrNotFound
	}
	return clone(r.users[id]), nil
}

func (r *memoryRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byEmail[email]
	return ok, nil
}

func (r *memoryRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}

// clone detaches the password hash from the stored record.
func clone(u User) User {
	u.PasswordHash = append([]byte(nil), u.PasswordHash...)
	return u
}
