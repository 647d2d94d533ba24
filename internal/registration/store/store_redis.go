package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"signup/internal/registration/models"
	id "signup/pkg/domain"
)

var redisLookupDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "signup_registration_redis_lookup_duration_ms",
	Help:    "Latency of registration lookups against Redis in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const (
	registrationKeyPrefix = "registration:id:"
	emailKeyPrefix        = "registration:email:"
)

// Redis stores registration snapshots as JSON strings. Both the record and its
// email index carry the registration TTL so abandoned sign-ups disappear.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis constructs a Redis-backed store. A zero ttl keeps keys forever.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (s *Redis) Save(ctx context.Context, r *models.Registration) error {
	payload, err := json.Marshal(r.Snapshot())
	if err != nil {
		return fmt.Errorf("encode registration: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, registrationKeyPrefix+r.ID().String(), payload, s.ttl)
		pipe.Set(ctx, emailKeyPrefix+r.Email(), r.ID().String(), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save registration: %w", err)
	}
	return nil
}

func (s *Redis) FindByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	start := time.Now()
	defer func() {
		redisLookupDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	payload, err := s.client.Get(ctx, registrationKeyPrefix+regID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load registration: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode registration: %w", err)
	}
	return models.Restore(snap)
}

func (s *Redis) FindByEmail(ctx context.Context, email string) (*models.Registration, error) {
	raw, err := s.client.Get(ctx, emailKeyPrefix+email).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load registration by email: %w", err)
	}
	return s.FindByID(ctx, id.RegistrationID(raw))
}
