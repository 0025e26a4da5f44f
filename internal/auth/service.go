package auth

import (
	"time"

	"github.com/cryptoscore/cryptoscore/internal/identity"
)

// TokenType labels the issued token in responses.
const TokenType = "Bearer"

// SessionResponse is returned after a successful signin or wallet connect.
type SessionResponse struct {
	AccessToken      string   `json:"accessToken"`
	TokenType        string   `json:"tokenType"`
	ID               string   `json:"id"`
	FirstName        string   `json:"firstName"`
	LastName         string   `json:"lastName"`
	Email            string   `json:"email"`
	WalletAddress    *string  `json:"walletAddress"`
	CreditScore      int      `json:"creditScore"`
	ReputationTokens int      `json:"reputationTokens"`
	Roles            []string `json:"roles"`
}

// Issuer mints session tokens for resolved users.
type Issuer struct {
	signer Signer
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer builds an issuer whose tokens expire after ttl.
func NewIssuer(signer Signer, ttl time.Duration) *Issuer {
	return &Issuer{signer: signer, ttl: ttl, now: time.Now}
}

// Issue signs a token for user and assembles the response payload.
func (i *Issuer) Issue(user identity.User) (SessionResponse, error) {
	now := i.now().UTC().Truncate(time.Second)
	roles := user.Roles.Names()

	token, err := i.signer.Sign(Claims{
		Subject:   user.ID,
		Roles:     roles,
		IssuedAt:  now,
		ExpiresAt: now.Add(i.ttl),
	})
	if err != nil {
		return SessionResponse{}, err
	}

	var wallet *string
	if user.HasWallet() {
		w := user.WalletAddress
		wallet = &w
	}
	return SessionResponse{
		AccessToken:      token,
		TokenType:        TokenType,
		ID:               user.ID,
		FirstName:        user.FirstName,
		LastName:         user.LastName,
		Email:            user.Email,
		WalletAddress:    wallet,
		CreditScore:      user.CreditScore,
		ReputationTokens: user.ReputationTokens,
		Roles:            roles,
	}, nil
}
