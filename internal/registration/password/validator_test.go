package password

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComplexity(t *testing.T) {
	ctx := context.Background()
	rule := Complexity{}

	for _, pw := range []string{
		"QWEqwe123!",
		"qweQWE123!",
		"12345%aA",
		"aA1!zzzz",
		"5FD924625F6AB16A19CC9807C7C506AE1813490E4BA675F843D5A10E0BAACDb!",
		"Пароль1aA",
	} {
		t.Run("accepts "+pw, func(t *testing.T) {
			assert.True(t, rule.IsComplex(ctx, pw))
		})
	}

	for _, pw := range []string{
		"12345678",
		"1234567a",
		"123456aA",
		"aA1!",
		"aA1!zxc",
		"abcdefgh",
		"ABCDEFG1!",
		"",
	} {
		t.Run("rejects "+pw, func(t *testing.T) {
			assert.False(t, rule.IsComplex(ctx, pw))
		})
	}
}

func TestMaxLength(t *testing.T) {
	ctx := context.Background()
	rule := MaxLength{Limit: 10}

	assert.True(t, rule.IsComplex(ctx, strings.Repeat("a", 10)))
	assert.False(t, rule.IsComplex(ctx, strings.Repeat("a", 11)))
}

func TestAggregator(t *testing.T) {
	ctx := context.Background()
	approve := ValidatorFunc(func(context.Context, string) bool { return true })
	reject := ValidatorFunc(func(context.Context, string) bool { return false })

	t.Run("empty set fails closed", func(t *testing.T) {
		assert.False(t, NewAggregator().ValidateAll(ctx, "QWEqwe123!"))
		assert.False(t, NewAggregator(nil, nil).ValidateAll(ctx, "QWEqwe123!"))
	})

	t.Run("all approving validators pass", func(t *testing.T) {
		assert.True(t, NewAggregator(approve, approve, approve).ValidateAll(ctx, "anything"))
	})

	t.Run("a single rejection fails", func(t *testing.T) {
		assert.False(t, NewAggregator(approve, reject, approve).ValidateAll(ctx, "anything"))
		assert.False(t, NewAggregator(reject).ValidateAll(ctx, "anything"))
	})

	t.Run("every validator is consulted", func(t *testing.T) {
		var calls atomic.Int32
		counting := ValidatorFunc(func(context.Context, string) bool {
			calls.Add(1)
			return true
		})
		agg := NewAggregator(counting, reject, counting, counting)

		assert.False(t, agg.ValidateAll(ctx, "anything"))
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("default set applies complexity and length", func(t *testing.T) {
		agg := Default()
		assert.Equal(t, 2, agg.Len())
		assert.True(t, agg.ValidateAll(ctx, "QWEqwe123!"))
		assert.False(t, agg.ValidateAll(ctx, "12345678"))
		assert.False(t, agg.ValidateAll(ctx, "aA1!"+strings.Repeat("z", DefaultMaxLength)))
	})
}
