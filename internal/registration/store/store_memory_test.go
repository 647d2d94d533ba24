package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"signup/internal/registration/models"
	id "signup/pkg/domain"
	"signup/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	now   time.Time
	store *InMemory
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	s.store = NewInMemory(time.Hour, WithMemoryClock(func() time.Time { return s.now }))
}

func (s *InMemoryStoreSuite) newRegistration(email string) *models.Registration {
	r, err := models.New(email, s.now)
	s.Require().NoError(err)
	return r
}

func (s *InMemoryStoreSuite) TestLookup() {
	s.Run("round trips a registration by id", func() {
		r := s.newRegistration("lookup@test.com")
		s.Require().NoError(r.CompleteInitialInfoStep(s.ctx, models.InitialInfo{
			Email:    "lookup@test.com",
			Password: "QWEqwe123!",
			ClientID: "web",
		}, models.DefaultPolicy(bcrypt.MinCost)))
		s.Require().NoError(s.store.Save(s.ctx, r))

		found, err := s.store.FindByID(s.ctx, r.ID())
		s.Require().NoError(err)
		s.Equal(r.Snapshot(), found.Snapshot())
		s.Equal(models.StepAccountInfo, found.CurrentStep())
	})

	s.Run("returns ErrNotFound for an unknown id", func() {
		_, err := s.store.FindByID(s.ctx, id.MustNewRegistrationID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returns ErrNotFound for an unknown email", func() {
		_, err := s.store.FindByEmail(s.ctx, "nobody@test.com")
		s.Require().ErrorIs(err, ErrNotFound)
	})

	s.Run("returned registrations are detached copies", func() {
		r := s.newRegistration("copy@test.com")
		s.Require().NoError(s.store.Save(s.ctx, r))

		first, err := s.store.FindByID(s.ctx, r.ID())
		s.Require().NoError(err)
		s.Require().NoError(first.CompleteInitialInfoStep(s.ctx, models.InitialInfo{
			Email:    "copy@test.com",
			Password: "QWEqwe123!",
		}, models.DefaultPolicy(bcrypt.MinCost)))

		second, err := s.store.FindByID(s.ctx, r.ID())
		s.Require().NoError(err)
		s.Equal(models.StepInitialInfo, second.CurrentStep())
	})
}

func (s *InMemoryStoreSuite) TestEmailIndex() {
	s.Run("points at the most recently saved registration", func() {
		older := s.newRegistration("dup@test.com")
		newer := s.newRegistration("dup@test.com")
		s.Require().NoError(s.store.Save(s.ctx, older))
		s.Require().NoError(s.store.Save(s.ctx, newer))

		found, err := s.store.FindByEmail(s.ctx, "dup@test.com")
		s.Require().NoError(err)
		s.Equal(newer.ID(), found.ID())
	})

	s.Run("email match is exact", func() {
		r := s.newRegistration("Case@test.com")
		s.Require().NoError(s.store.Save(s.ctx, r))

		_, err := s.store.FindByEmail(s.ctx, "case@test.com")
		s.Require().ErrorIs(err, ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestExpiry() {
	s.Run("entries past their ttl are absent", func() {
		r := s.newRegistration("ttl@test.com")
		s.Require().NoError(s.store.Save(s.ctx, r))

		s.now = s.now.Add(time.Hour)

		_, err := s.store.FindByID(s.ctx, r.ID())
		s.Require().ErrorIs(err, ErrNotFound)
		_, err = s.store.FindByEmail(s.ctx, "ttl@test.com")
		s.Require().ErrorIs(err, ErrNotFound)
	})

	s.Run("saving again extends the ttl", func() {
		r := s.newRegistration("extend@test.com")
		s.Require().NoError(s.store.Save(s.ctx, r))

		s.now = s.now.Add(45 * time.Minute)
		s.Require().NoError(s.store.Save(s.ctx, r))
		s.now = s.now.Add(45 * time.Minute)

		_, err := s.store.FindByID(s.ctx, r.ID())
		s.Require().NoError(err)
	})

	s.Run("zero ttl keeps entries forever", func() {
		store := NewInMemory(0, WithMemoryClock(func() time.Time { return s.now }))
		r := s.newRegistration("forever@test.com")
		s.Require().NoError(store.Save(s.ctx, r))

		s.now = s.now.Add(24 * 365 * time.Hour)

		_, err := store.FindByID(s.ctx, r.ID())
		s.Require().NoError(err)
		s.Zero(store.Purge(s.ctx))
	})
}

func (s *InMemoryStoreSuite) TestPurge() {
	expired := s.newRegistration("expired@test.com")
	s.Require().NoError(s.store.Save(s.ctx, expired))

	s.now = s.now.Add(30 * time.Minute)
	live := s.newRegistration("live@test.com")
	s.Require().NoError(s.store.Save(s.ctx, live))

	s.now = s.now.Add(31 * time.Minute)

	s.Equal(1, s.store.Purge(s.ctx))
	s.Zero(s.store.Purge(s.ctx))

	_, err := s.store.FindByID(s.ctx, live.ID())
	s.Require().NoError(err)
	_, err = s.store.FindByEmail(s.ctx, "expired@test.com")
	s.Require().ErrorIs(err, ErrNotFound)
}
