package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// The owner's passphrase is never stored. The config holds only its bcrypt
// hash, produced by `linkstash hash-passphrase`:
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (2^12 rounds)
//	 version
//
// bcrypt salts every hash and compares in constant time, so Verify is safe
// to expose on the login endpoint.

// DefaultCost is the bcrypt work factor for new hashes (~250ms).
const DefaultCost = 12

// maxPassphraseBytes is a bcrypt limit; longer input would be truncated.
const maxPassphraseBytes = 72

// ErrWrongPassphrase is returned by Verify when the passphrase does not
// match the hash.
var ErrWrongPassphrase = errors.New("auth: wrong passphrase")

// PassphraseHasher hashes and checks passphrases. The cost is a field so
// tests can use bcrypt.MinCost.
type PassphraseHasher struct {
	cost int
}

func NewPassphraseHasher() *PassphraseHasher {
	return &PassphraseHasher{cost: DefaultCost}
}

// NewPassphraseHasherWithCost is for tests in other packages. Never use a
// low cost in production.
func NewPassphraseHasherWithCost(cost int) *PassphraseHasher {
	return &PassphraseHasher{cost: cost}
}

// Hash returns the bcrypt hash of passphrase.
func (p *PassphraseHasher) Hash(passphrase string) (string, error) {
	if passphrase == "" {
		return "", errors.New("auth: passphrase must not be empty")
	}
	if len(passphrase) > maxPassphraseBytes {
		return "", fmt.Errorf("auth: passphrase must be %d bytes or fewer", maxPassphraseBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(passphrase), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing passphrase: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when passphrase matches hash, ErrWrongPassphrase when it
// doesn't, and a different error when hash itself is malformed.
func (p *PassphraseHasher) Verify(hash, passphrase string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(passphrase))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrWrongPassphrase
	}
	return fmt.Errorf("auth: comparing passphrase hash: %w", err)
}
