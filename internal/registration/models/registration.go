package models

import (
	"context"
	"time"

	id "signup/pkg/domain"
	dErrors "signup/pkg/domain-errors"
)

// Registration is the aggregate root for one in-flight sign-up.
//
// Invariants:
//   - ID, Email and CreatedAt are set once at construction and never change
//   - CurrentStep only moves to its successor, one completed step at a time
//   - a step completes only while CurrentStep is that step
//   - the plaintext password is never kept; only Salt and Hash derived from it
//   - once initial info is complete the identity can no longer be claimed
//   - a failed step completion leaves every field unchanged
//
// A Registration is a value object with no locking: callers owning an instance
// serialize access to it.
type Registration struct {
	id          id.RegistrationID
	email       string
	createdAt   time.Time
	currentStep Step

	clientID string
	salt     string
	hash     string

	firstName              string
	lastName               string
	countryOfResidenceIso2 string
	phoneNumber            string
}

// New starts a registration anchored to email. The email is taken as given;
// format checks belong to the caller.
func New(email string, createdAt time.Time) (*Registration, error) {
	regID, err := id.NewRegistrationID()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate registration id")
	}
	return &Registration{
		id:          regID,
		email:       email,
		createdAt:   createdAt,
		currentStep: StepInitialInfo,
	}, nil
}

func (r *Registration) ID() id.RegistrationID { return r.id }
func (r *Registration) Email() string { return r.email }
func (r *Registration) CreatedAt() time.Time { return r.createdAt }
func (r *Registration) CurrentStep() Step { return r.currentStep }
func (r *Registration) ClientID() string { return r.clientID }
func (r *Registration) FirstName() string { return r.firstName }
func (r *Registration) LastName() string { return r.lastName }
func (r *Registration) CountryOfResidenceIso2() string { return r.countryOfResidenceIso2 }
func (r *Registration) PhoneNumber() string { return r.phoneNumber }

// Salt and Hash are exposed for persistence only and must never be rendered.
func (r *Registration) Salt() string { return r.salt }
func (r *Registration) Hash() string { return r.hash }

// CanIdentityBeClaimed reports whether the email may still be attached to
// another registration attempt.
func (r *Registration) CanIdentityBeClaimed() bool {
	return r.currentStep == StepInitialInfo && r.hash == ""
}

// CompleteInitialInfoStep binds the client and the credential, then moves the
// registration to account info.
func (r *Registration) CompleteInitialInfoStep(ctx context.Context, info InitialInfo, policy Policy) error {
	if err := r.requireStep(StepInitialInfo); err != nil {
		return err
	}
	if info.Email != r.email {
		return dErrors.New(dErrors.CodeEmailMismatch, EmailMismatchMessage)
	}
	if policy.Passwords == nil || !policy.Passwords.ValidateAll(ctx, info.Password) {
		return dErrors.New(dErrors.CodePasswordNotComplex, "password is not complex enough")
	}
	if policy.Hasher == nil {
		return dErrors.New(dErrors.CodeInternal, "credential hasher is not configured")
	}
	salt, hash, err := policy.Hasher.Hash(info.Password)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	r.clientID = info.ClientID
	r.salt = salt
	r.hash = hash
	r.advance()
	return nil
}

// CompleteAccountInfoStep records the personal details and moves the
// registration to pin verification.
func (r *Registration) CompleteAccountInfoStep(_ context.Context, info AccountInfo, policy Policy) error {
	if err := r.requireStep(StepAccountInfo); err != nil {
		return err
	}
	if policy.Phones == nil || !policy.Phones.IsValidFormat(info.PhoneNumber) {
		return dErrors.New(dErrors.CodeInvalidPhoneFormat, "phone_number: invalid phone number format")
	}

	r.firstName = info.FirstName
	r.lastName = info.LastName
	r.countryOfResidenceIso2 = info.CountryCodeIso2
	r.phoneNumber = info.PhoneNumber
	r.advance()
	return nil
}

func (r *Registration) requireStep(step Step) error {
	if r.currentStep != step {
		return newTransitionError(step, r.currentStep)
	}
	return nil
}

func (r *Registration) advance() {
	if next, ok := r.currentStep.Next(); ok {
		r.currentStep = next
	}
}
