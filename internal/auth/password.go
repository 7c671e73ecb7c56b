package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash keeps login timing the same for unknown usernames.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dholratri-dummy-password"), bcrypt.DefaultCost)

func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}
