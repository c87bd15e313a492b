// Package bcrypthash hashes credentials with bcrypt.
package bcrypthash

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/felixzhu97/orderflow/pkg/apperr"
)

type Hasher struct {
	cost int
}

func NewHasher() *Hasher {
	return &Hasher{cost: bcrypt.DefaultCost}
}

func (h *Hasher) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "hash password", err)
	}
	return string(out), nil
}

func (h *Hasher) Compare(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return apperr.Wrap(apperr.CodeUnauthorized, "password mismatch", err)
	}
	return nil
}
