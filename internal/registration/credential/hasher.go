// Package credential derives and checks salted, one-way digests of registration
// passwords.
//
// A digest is bcrypt over an HMAC-SHA256 pre-hash keyed by a per-record salt.
// The pre-hash keeps the bcrypt input under its 72 byte limit, and the salt is
// stored next to the digest so a leaked digest alone cannot be attacked with a
// table built for bare bcrypt.
package credential

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	dErrors "signup/pkg/domain-errors"
)

const (
	// TokenSeparator splits the fields of an encoded bcrypt digest ($2a$10$...).
	TokenSeparator = "$"

	// workFactorToken is the index of the cost field once split on TokenSeparator.
	workFactorToken = 2

	saltSize = 16
)

// ErrMalformedDigest is returned when an encoded digest cannot be decoded.
var ErrMalformedDigest = errors.New("malformed credential digest")

// Hasher produces salted bcrypt digests at a fixed work factor.
// It is stateless and safe for concurrent use.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using cost as the bcrypt work factor (log2 rounds).
// Costs outside bcrypt's accepted range fall back to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Cost returns the configured work factor.
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash draws a fresh salt and derives the digest of plaintext under it.
func (h *Hasher) Hash(plaintext string) (salt string, digest string, err error) {
	buf := make([]byte, saltSize)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("could not generate salt: %w", err)
	}
	salt = base64.RawURLEncoding.EncodeToString(buf)

	hashed, err := bcrypt.GenerateFromPassword(prehash(plaintext, salt), h.cost)
	if err != nil {
		return "", "", fmt.Errorf("could not hash credential: %w", err)
	}
	return salt, string(hashed), nil
}

// Verify reports whether plaintext matches digest under salt. The final
// comparison is constant time.
func (h *Hasher) Verify(plaintext, salt, digest string) bool {
	if salt == "" || digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), prehash(plaintext, salt)) == nil
}

func prehash(plaintext, salt string) []byte {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(plaintext))
	return []byte(base64.RawStdEncoding.EncodeToString(mac.Sum(nil)))
}

// ExtractWorkFactor parses the work factor out of an encoded digest such as
// "$2a$10$N9qo8uLOickgx2ZMRZoMye...". The third token is the cost.
func ExtractWorkFactor(encodedDigest string) (int, error) {
	if strings.TrimSpace(encodedDigest) == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "encoded digest is required")
	}

	tokens := strings.Split(encodedDigest, TokenSeparator)
	if len(tokens) <= workFactorToken {
		return 0, dErrors.Wrap(ErrMalformedDigest, dErrors.CodeInvalidInput, "encoded digest has no work factor")
	}

	cost, err := strconv.ParseInt(tokens[workFactorToken], 10, 16)
	if err != nil {
		return 0, dErrors.Wrap(fmt.Errorf("%w: %w", ErrMalformedDigest, err), dErrors.CodeInvalidInput, "encoded digest has an invalid work factor")
	}
	return int(cost), nil
}
