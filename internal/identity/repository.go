package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

// Repository persists users. Create must enforce email and wallet address
// uniqueness and report violations as ConflictError.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByWalletAddress(ctx context.Context, address string) (User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// pgxIface is the subset of *pgxpool.Pool the repository needs.
type pgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	emailConstraint  = "users_email_key"
	walletConstraint = "users_wallet_address_key"

	selectUser = `SELECT id::text, first_name, last_name, email, password_hash,
        COALESCE(wallet_address, ''), roles, credit_score, reputation_tokens,
        kyc_verified, onboarding_completed, created_at
        FROM users`
)

// PostgresRepository implements Repository using PostgreSQL. Callers pass
// already normalized emails and wallet addresses.
type PostgresRepository struct {
	db pgxIface
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db pgxIface) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	const op = "identity.Create"

	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").With("operation", "parse id").Wrap(err)
	}
	var wallet *string
	if user.WalletAddress != "" {
		wallet = &user.WalletAddress
	}

	_, err = r.db.Exec(ctx, `INSERT INTO users (
            id, first_name, last_name, email, password_hash, wallet_address, roles,
            credit_score, reputation_tokens, kyc_verified, onboarding_completed, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		userID, user.FirstName, user.LastName, user.Email, user.PasswordHash, wallet,
		user.Roles.Names(), user.CreditScore, user.ReputationTokens,
		user.KYCVerified, user.OnboardingCompleted, user.CreatedAt.UTC())
	if err != nil {
		if field, ok := uniqueViolationField(err); ok {
			return ConflictError{Op: op, Field: field}
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", user.Email).
			Wrap(err)
	}
	return nil
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, oops.Code("USER_NOT_FOUND").With("id", id).Wrap(ErrNotFound)
	}
	return r.findOne(ctx, "id", selectUser+` WHERE id = $1`, userID)
}

// FindByEmail fetches a user by normalized email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, "email", selectUser+` WHERE email = $1`, email)
}

// FindByWalletAddress fetches a user by normalized wallet address.
func (r *PostgresRepository) FindByWalletAddress(ctx context.Context, address string) (User, error) {
	return r.findOne(ctx, "wallet_address", selectUser+` WHERE wallet_address = $1`, address)
}

// ExistsByEmail reports whether a user with the normalized email exists.
func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, oops.Code("USER_EXISTS_FAILED").With("email", email).Wrap(err)
	}
	return exists, nil
}

// Count returns the number of stored users.
func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, oops.Code("USER_COUNT_FAILED").Wrap(err)
	}
	return n, nil
}

func (r *PostgresRepository) findOne(ctx context.Context, key, query string, arg any) (User, error) {
	var (
		user      User
		roles     []string
		createdAt time.Time
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.PasswordHash,
		&user.WalletAddress, &roles, &user.CreditScore, &user.ReputationTokens,
		&user.KYCVerified, &user.OnboardingCompleted, &createdAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, oops.Code("USER_NOT_FOUND").With(key, arg).Wrap(ErrNotFound)
	}
	if err != nil {
		return User{}, oops.Code("USER_GET_FAILED").With(key, arg).Wrap(err)
	}

	set, err := ParseRoles(roles)
	if err != nil {
		return User{}, oops.Code("USER_GET_FAILED").With(key, arg).Wrap(err)
	}
	user.Roles = set
	user.CreatedAt = createdAt.UTC()
	return user, nil
}

func uniqueViolationField(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return "", false
	}
	switch pgErr.ConstraintName {
	case emailConstraint:
		return FieldEmail, true
	case walletConstraint:
		return FieldWalletAddress, true
	default:
		return "", true
	}
}
