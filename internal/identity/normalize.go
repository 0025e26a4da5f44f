package identity

import (
	"strings"
	"unicode"
)

const maxWalletAddressLen = 128

// NormalizeEmail canonicalizes an email for storage, lookups and existence
// checks: trimmed and lower-cased.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeWalletAddress canonicalizes a wallet address the same way as emails.
// Hex wallet addresses are case-insensitive and the address is also embedded
// in the placeholder email, so both must fold identically.
func NormalizeWalletAddress(s string) (string, error) {
	addr := strings.ToLower(strings.TrimSpace(s))
	if addr == "" || len(addr) > maxWalletAddressLen {
		return "", ErrInvalidWalletAddress
	}
	for _, r := range addr {
		if r == '@' || unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return "", ErrInvalidWalletAddress
		}
	}
	return addr, nil
}

// WalletEmail returns the placeholder email for a normalized wallet address.
func WalletEmail(walletAddress string) string {
	return walletAddress + "@" + WalletEmailDomain
}

func isReservedEmail(normalized string) bool {
	return strings.HasSuffix(normalized, "@"+WalletEmailDomain)
}
