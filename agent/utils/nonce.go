package utils

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

const nonceBits = 80

var nonceMax = new(big.Int).Lsh(big.NewInt(1), nonceBits)

// NewNonceStr returns a random 80 bit nonce as a decimal string, the format
// offers and proof requests carry.
func NewNonceStr() string {
	n, err := rand.Int(rand.Reader, nonceMax)
	if err != nil {
		panic("cannot create nonce: " + err.Error())
	}
	return n.String()
}

// IsNonce tells if s is a decimal nonce that fits 80 bits.
func IsNonce(s string) bool {
	n, ok := new(big.Int).SetString(s, 10)
	return ok && n.Sign() >= 0 && n.Cmp(nonceMax) < 0
}

// UUID generates new random UUID and returns it as a string.
func UUID() string {
	return uuid.New().String()
}
