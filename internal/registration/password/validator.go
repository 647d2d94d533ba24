// Package password decides whether a candidate registration password is acceptable.
package password

import (
	"context"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

const (
	// MinLength is the shortest password Complexity accepts.
	MinLength = 8
	// DefaultMaxLength bounds the input handed to the hasher.
	DefaultMaxLength = 128
)

// Validator judges a candidate password. Implementations must be pure
// computation: the Aggregator waits for every validator to return.
type Validator interface {
	IsComplex(ctx context.Context, password string) bool
}

// ValidatorFunc adapts a plain function to Validator.
type ValidatorFunc func(ctx context.Context, password string) bool

func (f ValidatorFunc) IsComplex(ctx context.Context, password string) bool {
	return f(ctx, password)
}

// Complexity requires at least MinLength characters drawn from all four classes:
// lowercase, uppercase, decimal digit, and anything outside ASCII letters and digits.
type Complexity struct{}

func (Complexity) IsComplex(_ context.Context, password string) bool {
	if utf8.RuneCountInString(password) < MinLength {
		return false
	}

	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}
	return lower && upper && digit && special
}

// MaxLength rejects passwords longer than Limit characters.
type MaxLength struct {
	Limit int
}

func (m MaxLength) IsComplex(_ context.Context, password string) bool {
	return utf8.RuneCountInString(password) <= m.Limit
}

// Aggregator requires unanimous approval from an ordered set of validators.
type Aggregator struct {
	validators []Validator
}

// NewAggregator builds an Aggregator over validators. Nil entries are skipped.
func NewAggregator(validators ...Validator) *Aggregator {
	vs := make([]Validator, 0, len(validators))
	for _, v := range validators {
		if v != nil {
			vs = append(vs, v)
		}
	}
	return &Aggregator{validators: vs}
}

// Default returns the aggregator used when no other rule set is configured.
// It is stricter than Complexity alone: passwords longer than DefaultMaxLength
// are rejected even when they satisfy every character class.
func Default() *Aggregator {
	return NewAggregator(Complexity{}, MaxLength{Limit: DefaultMaxLength})
}

// Len returns the number of validators.
func (a *Aggregator) Len() int {
	return len(a.validators)
}

// ValidateAll runs every validator concurrently and reports whether all of them
// approved. An aggregator without validators rejects everything.
func (a *Aggregator) ValidateAll(ctx context.Context, password string) bool {
	if len(a.validators) == 0 {
		return false
	}

	results := make([]bool, len(a.validators))
	var g errgroup.Group
	for i, v := range a.validators {
		g.Go(func() error {
			results[i] = v.IsComplex(ctx, password)
			return nil
		})
	}
	_ = g.Wait()

	for _, ok := range results {
		if !ok {
			return false
		}
	}
	return true
}
