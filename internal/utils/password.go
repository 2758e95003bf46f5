package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasscodeLen is the shortest guard passcode accepted by HashPasscode.
const MinPasscodeLen = 6

// HashPasscode returns a bcrypt hash of plain using the given cost.
func HashPasscode(plain string, cost int) (string, error) {
	if len(plain) < MinPasscodeLen {
		return "", errors.New("passcode is too short")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPasscode compares a bcrypt hash and a plain passcode in constant time.
func VerifyPasscode(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
