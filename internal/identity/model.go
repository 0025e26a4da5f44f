package identity

import "time"

const (
	// WalletEmailDomain is the reserved domain used to synthesize emails for
	// wallet-only users.
	WalletEmailDomain = "wallet.local"

	walletFirstName = "Wallet"
	walletLastName  = "User"
	// walletPlaceholderSecret is hashed into every wallet-only user's password
	// field so the column is never empty.
	walletPlaceholderSecret = "wallet-user"
)

// User is the canonical account record, resolvable by email or wallet address.
// PasswordHash never leaves the service layer.
type User struct {
	ID                  string
	FirstName           string
	LastName            string
	Email               string
	PasswordHash        []byte
	WalletAddress       string
	Roles               Roles
	CreditScore         int
	ReputationTokens    int
	KYCVerified         bool
	OnboardingCompleted bool
	CreatedAt           time.Time
}

// HasWallet reports whether the user is linked to a wallet address.
func (u User) HasWallet() bool {
	return u.WalletAddress != ""
}

// RegisterInput carries the fields of an email/password signup.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}
