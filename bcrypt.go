package identity

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost trades hash time for brute-force resistance. Passwords and
// verification codes share the same cost; both are short-lived secrets on
// the verification path.
const bcryptCost = 12

// HashSecret will generate a salted one-way hash of a password or
// verification code. Hashing is always invoked explicitly by the write path
// that stores the secret, never as a side effect of a generic save.
func HashSecret(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	return string(h), err
}

// CompareSecretAndHash validates the given cleartext against the stored
// digest. bcrypt comparison is constant time with respect to the input, so
// no prefix-length timing leaks.
func CompareSecretAndHash(plaintext, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}
