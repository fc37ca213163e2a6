package fairness

import (
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	serverSeedBytes = 32 // 256 bits
	clientSeedBytes = 16 // 128 bits
)

// NewServerSeed generates a hex server secret with 256 bits of entropy.
func NewServerSeed() (string, error) {
	return randomHex(serverSeedBytes)
}

// NewClientSeed generates a hex client seed with 128 bits of entropy.
func NewClientSeed() (string, error) {
	return randomHex(clientSeedBytes)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := crand.Read(b); err != nil {
		return "", fmt.Errorf("read random seed: %w", err)
	}
	return hex.EncodeToString(b), nil
}
