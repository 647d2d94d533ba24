package domain

import (
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	dErrors "signup/pkg/domain-errors"
)

// RegistrationIDLength is the length of a RegistrationID in its textual form:
// 16 random bytes in unpadded base64url.
const RegistrationIDLength = 22

// RegistrationID is the externally shareable handle of an in-flight registration.
//
// Invariants:
//   - exactly RegistrationIDLength characters of the base64url alphabet
//   - decodes to 16 bytes drawn from crypto/rand; never derived from email or time
type RegistrationID string

// NewRegistrationID draws a random v4 UUID and encodes its 16 bytes compactly.
func NewRegistrationID() (RegistrationID, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate registration id: %w", err)
	}
	return RegistrationID(base64.RawURLEncoding.EncodeToString(u[:])), nil
}

// MustNewRegistrationID is NewRegistrationID for fixtures; it panics if the
// random source fails.
func MustNewRegistrationID() RegistrationID {
	regID, err := NewRegistrationID()
	if err != nil {
		panic(err)
	}
	return regID
}

// ParseRegistrationID validates a registration ID received from outside the process.
func ParseRegistrationID(s string) (RegistrationID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "registration id is required")
	}
	if len(s) != RegistrationIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid registration id")
	}
	raw, err := base64.RawURLEncoding.Strict().DecodeString(s)
	if err != nil || len(raw) != 16 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid registration id")
	}
	return RegistrationID(s), nil
}

func (id RegistrationID) String() string {
	return string(id)
}

// IsNil reports whether the ID is unset.
func (id RegistrationID) IsNil() bool {
	return id == ""
}
