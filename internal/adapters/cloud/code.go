package cloud

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// DefaultCodePrefix is prepended to generated access codes.
const DefaultCodePrefix = "IFET-IT"

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

// GenerateCode returns a fresh access code of the form PREFIX-XXXXXX.
// POST: the suffix is 6 characters drawn uniformly from [A-Z0-9]
func GenerateCode(prefix string) (string, error) {
	if prefix == "" {
		prefix = DefaultCodePrefix
	}
	max := big.NewInt(int64(len(codeAlphabet)))
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(prefix))
	sb.WriteByte('-')
	for range codeLength {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		sb.WriteByte(codeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// NormalizeCode cleans a user-entered code. An empty result means "no code".
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
