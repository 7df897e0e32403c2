package solana

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidAddress(t *testing.T) {
	assert.True(t, IsValidAddress("So11111111111111111111111111111111111111112"))
	assert.True(t, IsValidAddress("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"))
	assert.False(t, IsValidAddress(""))
	assert.False(t, IsValidAddress("not-base58-0OIl"))
	assert.False(t, IsValidAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"))
	assert.False(t, IsValidAddress("1111111111111111111111111111111111111111111111"))
}
