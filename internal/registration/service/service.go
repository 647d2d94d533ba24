package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"signup/internal/registration/metrics"
	"signup/internal/registration/models"
	id "signup/pkg/domain"
	dErrors "signup/pkg/domain-errors"
	audit "signup/pkg/platform/audit"
	"signup/pkg/platform/sentinel"
	"signup/pkg/requestcontext"
)

const tracerName = "signup/internal/registration/service"

type Store interface {
	Save(ctx context.Context, r *models.Registration) error
	FindByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	FindByEmail(ctx context.Context, email string) (*models.Registration, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service drives registrations through their steps and persists each
// accepted transition.
type Service struct {
	store          Store
	policy         models.Policy
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPolicy replaces the password, hashing and phone rules.
func WithPolicy(policy models.Policy) Option {
	return func(s *Service) {
		s.policy = policy
	}
}

// New constructs a Service. Without WithPolicy the production rules apply
// at bcrypt's default cost.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		policy: models.DefaultPolicy(bcrypt.DefaultCost),
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a registration for email. An email already bound to a
// registration past its initial info step cannot be reused.
func (s *Service) Start(ctx context.Context, email string) (*models.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Start")
	defer span.End()

	claimable, err := s.CanClaimEmail(ctx, email)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if !claimable {
		s.incrementClaimConflict()
		s.logger.InfoContext(ctx, "registration email already claimed",
			"request_id", requestcontext.RequestID(ctx))
		s.emit(ctx, audit.Event{Action: audit.ActionRegistrationConflictEncountered})
		return nil, s.fail(span, dErrors.New(dErrors.CodeConflict, "email is already used by another registration"))
	}

	r, err := models.New(email, requestcontext.Now(ctx))
	if err != nil {
		return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create registration"))
	}
	if err := s.store.Save(ctx, r); err != nil {
		return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save registration"))
	}

	span.SetAttributes(attribute.String("registration.id", r.ID().String()))
	s.incrementStarted()
	s.emit(ctx, audit.Event{RegistrationID: r.ID(), Action: audit.ActionRegistrationStarted})
	s.logger.InfoContext(ctx, "registration started",
		"registration_id", r.ID(),
		"request_id", requestcontext.RequestID(ctx))
	return r, nil
}

// CompleteInitialInfo binds the client and password to the registration.
func (s *Service) CompleteInitialInfo(ctx context.Context, regID id.RegistrationID, info models.InitialInfo) (*models.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "registration.CompleteInitialInfo",
		trace.WithAttributes(attribute.String("registration.id", regID.String())))
	defer span.End()

	return s.completeStep(ctx, span, regID, models.StepInitialInfo, func(r *models.Registration) error {
		if err := s.requireEmailHolder(ctx, r); err != nil {
			return err
		}
		return r.CompleteInitialInfoStep(ctx, info, s.policy)
	}, audit.Event{ClientID: info.ClientID, Action: audit.ActionInitialInfoCompleted})
}

// CompleteAccountInfo records personal details on the registration named in
// the packet.
func (s *Service) CompleteAccountInfo(ctx context.Context, info models.AccountInfo) (*models.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "registration.CompleteAccountInfo")
	defer span.End()

	regID, err := id.ParseRegistrationID(info.RegistrationID)
	if err != nil {
		return nil, s.fail(span, err)
	}
	span.SetAttributes(attribute.String("registration.id", regID.String()))

	return s.completeStep(ctx, span, regID, models.StepAccountInfo, func(r *models.Registration) error {
		return r.CompleteAccountInfoStep(ctx, info, s.policy)
	}, audit.Event{Action: audit.ActionAccountInfoCompleted})
}

// Get loads a registration by ID.
func (s *Service) Get(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Get",
		trace.WithAttributes(attribute.String("registration.id", regID.String())))
	defer span.End()

	r, err := s.load(ctx, regID)
	if err != nil {
		return nil, s.fail(span, err)
	}
	return r, nil
}

// CanClaimEmail reports whether a new registration may be started for email.
func (s *Service) CanClaimEmail(ctx context.Context, email string) (bool, error) {
	existing, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, sentinel.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up registration")
	}
	return existing.CanIdentityBeClaimed(), nil
}

// requireEmailHolder rejects a registration whose email has since been taken
// over by a newer registration.
func (s *Service) requireEmailHolder(ctx context.Context, r *models.Registration) error {
	holder, err := s.store.FindByEmail(ctx, r.Email())
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up registration")
	}
	if holder.ID() != r.ID() {
		return dErrors.New(dErrors.CodeConflict, "registration was superseded by a newer one for this email")
	}
	return nil
}

func (s *Service) completeStep(
	ctx context.Context,
	span trace.Span,
	regID id.RegistrationID,
	step models.Step,
	apply func(*models.Registration) error,
	event audit.Event,
) (*models.Registration, error) {
	start := time.Now()
	defer s.observeStep(step, start)

	r, err := s.load(ctx, regID)
	if err != nil {
		s.incrementStepFailure(step, err)
		return nil, s.fail(span, err)
	}

	if err := apply(r); err != nil {
		s.incrementStepFailure(step, err)
		if dErrors.CodeOf(err) != dErrors.CodeInternal {
			s.emit(ctx, audit.Event{
				RegistrationID: regID,
				Action:         audit.ActionRegistrationStepRejected,
				Reason:         string(dErrors.CodeOf(err)),
			})
		}
		s.logger.InfoContext(ctx, "registration step rejected",
			"registration_id", regID,
			"step", step.String(),
			"code", dErrors.CodeOf(err),
			"request_id", requestcontext.RequestID(ctx))
		return nil, s.fail(span, err)
	}

	if err := s.store.Save(ctx, r); err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to save registration")
		s.incrementStepFailure(step, err)
		return nil, s.fail(span, err)
	}

	s.incrementStepCompleted(step)
	event.RegistrationID = regID
	s.emit(ctx, event)
	s.logger.InfoContext(ctx, "registration step completed",
		"registration_id", regID,
		"step", step.String(),
		"next_step", r.CurrentStep().String(),
		"request_id", requestcontext.RequestID(ctx))
	return r, nil
}

func (s *Service) load(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	r, err := s.store.FindByID(ctx, regID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	return r, nil
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}

// emit fills request metadata and publishes. Audit failures are logged and
// never fail the registration.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	event.Device = requestcontext.Device(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"registration_id", event.RegistrationID,
			"error", err)
	}
}

func (s *Service) incrementStarted() {
	if s.metrics != nil {
		s.metrics.IncrementStarted()
	}
}

func (s *Service) incrementClaimConflict() {
	if s.metrics != nil {
		s.metrics.IncrementClaimConflict()
	}
}

func (s *Service) incrementStepCompleted(step models.Step) {
	if s.metrics != nil {
		s.metrics.IncrementStepCompleted(step.String())
	}
}

func (s *Service) incrementStepFailure(step models.Step, err error) {
	if s.metrics != nil {
		s.metrics.IncrementStepFailure(step.String(), string(dErrors.CodeOf(err)))
	}
}

func (s *Service) observeStep(step models.Step, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStep(step.String(), start)
	}
}
