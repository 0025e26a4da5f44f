package identity

import (
	"errors"
	"fmt"
)

const (
	FieldEmail         = "email"
	FieldWalletAddress = "wallet_address"
)

var (
	// ErrNotFound is returned by repositories when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrConflict is the kind behind every ConflictError.
	ErrConflict = errors.New("user conflict")

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when signing up with an email already in use.
	ErrEmailTaken = errors.New("email is already in use")
	// ErrReservedEmail rejects signups inside the wallet placeholder domain.
	ErrReservedEmail = errors.New("email domain is reserved")
	// ErrInvalidWalletAddress rejects addresses that cannot identify a wallet.
	ErrInvalidWalletAddress = errors.New("invalid wallet address")
	// ErrIdentityConflict means a wallet identity could not be created because
	// its placeholder email belongs to another account.
	ErrIdentityConflict = errors.New("wallet identity conflicts with an existing account")
)

// ConflictError reports a uniqueness violation on a logical field
// (FieldEmail or FieldWalletAddress).
type ConflictError struct {
	Op    string
	Field string
}

func (e ConflictError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Op, ErrConflict)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, ErrConflict, e.Field)
}

func (e ConflictError) Unwrap() error { return ErrConflict }

// IsConflictOn reports whether err is a ConflictError on field.
func IsConflictOn(err error, field string) bool {
	var ce ConflictError
	return errors.As(err, &ce) && ce.Field == field
}

// IsValidation reports whether err was caused by unacceptable input rather
// than by store or credential state.
func IsValidation(err error) bool {
	return errors.Is(err, ErrReservedEmail) || errors.Is(err, ErrInvalidWalletAddress)
}
