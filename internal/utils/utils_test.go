package utils

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "caseta-1", RoleGuard, 5)
	if err != nil {
		t.Fatal(err)
	}
	c, err := ParseAccessToken("s3cret", tok.Token)
	if err != nil {
		t.Fatal(err)
	}
	if c.Subject != "caseta-1" || c.Role != RoleGuard {
		t.Fatalf("claims = %+v", c)
	}

	if _, err := ParseAccessToken("other", tok.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret = %v", err)
	}
	expired, _ := NewAccessToken("s3cret", "caseta-1", RoleGuard, -1)
	if _, err := ParseAccessToken("s3cret", expired.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired = %v", err)
	}
	if _, err := NewAccessToken("", "x", RoleGuard, 5); err == nil {
		t.Fatal("empty secret accepted")
	}
}

func TestPasscode(t *testing.T) {
	if _, err := HashPasscode("123", bcrypt.MinCost); err == nil {
		t.Fatal("short passcode accepted")
	}
	h, err := HashPasscode("caseta-norte", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPasscode(h, "caseta-norte") || VerifyPasscode(h, "caseta-sur") || VerifyPasscode("", "caseta-norte") {
		t.Fatal("VerifyPasscode mismatch")
	}
}
