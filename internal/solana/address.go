// Package solana holds chain-level helpers.
package solana

import "github.com/mr-tron/base58"

const addressLen = 32

// IsValidAddress reports whether s is a base58 encoded 32 byte public key.
func IsValidAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	raw, err := base58.Decode(s)
	return err == nil && len(raw) == addressLen
}
