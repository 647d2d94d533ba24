package models

import (
	"context"

	"signup/internal/registration/credential"
	"signup/internal/registration/password"
	"signup/internal/registration/phone"
)

// PasswordChecker decides whether a plaintext password may be used.
type PasswordChecker interface {
	ValidateAll(ctx context.Context, password string) bool
}

// CredentialHasher turns a plaintext password into a salt and digest.
type CredentialHasher interface {
	Hash(plaintext string) (salt string, digest string, err error)
}

// PhoneChecker decides whether a phone number is well formed.
type PhoneChecker interface {
	IsValidFormat(phoneNumber string) bool
}

// Policy is the set of rules a registration consults while completing steps.
// It is assembled once at startup and shared by every registration.
type Policy struct {
	Passwords PasswordChecker
	Hasher    CredentialHasher
	Phones    PhoneChecker
}

// DefaultPolicy returns the production rules with the given bcrypt work factor.
func DefaultPolicy(cost int) Policy {
	return Policy{
		Passwords: password.Default(),
		Hasher:    credential.NewHasher(cost),
		Phones:    phone.NewValidator(),
	}
}
