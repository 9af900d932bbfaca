// Package password wraps bcrypt for stored credentials.
package password

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// MaxBytes is the longest input bcrypt accepts as is.
const MaxBytes = 72

// Hash returns the bcrypt hash of plain. Inputs longer than MaxBytes are
// reduced to a SHA-256 digest first, so any length can be stored.
func Hash(plain string, cost int) ([]byte, error) {
	return bcrypt.GenerateFromPassword(prepare(plain), cost)
}

// Compare reports nil when plain matches hash.
func Compare(hash []byte, plain string) error {
	return bcrypt.CompareHashAndPassword(hash, prepare(plain))
}

func prepare(plain string) []byte {
	if len(plain) <= MaxBytes {
		return []byte(plain)
	}
	sum := sha256.Sum256([]byte(plain))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
