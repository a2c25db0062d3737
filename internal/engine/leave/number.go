package leave

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// NewRequestNumber returns "LR-" followed by 12 uppercase hex characters
// from a cryptographic source. 48 random bits keep the collision
// probability negligible at any realistic volume.
func NewRequestNumber() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate request number: %w", err)
	}
	return "LR-" + strings.ToUpper(hex.EncodeToString(buf)), nil
}
