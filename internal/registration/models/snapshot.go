package models

import (
	"time"

	id "signup/pkg/domain"
	dErrors "signup/pkg/domain-errors"
)

// Snapshot is the persistence view of a Registration. It carries the salt and
// hash and must only ever be handed to a store.
type Snapshot struct {
	ID                     id.RegistrationID `json:"id"`
	Email                  string            `json:"email"`
	CreatedAt              time.Time         `json:"created_at"`
	CurrentStep            Step              `json:"current_step"`
	ClientID               string            `json:"client_id,omitempty"`
	Salt                   string            `json:"salt,omitempty"`
	Hash                   string            `json:"hash,omitempty"`
	FirstName              string            `json:"first_name,omitempty"`
	LastName               string            `json:"last_name,omitempty"`
	CountryOfResidenceIso2 string            `json:"country_of_residence_iso2,omitempty"`
	PhoneNumber            string            `json:"phone_number,omitempty"`
}

// Snapshot copies the registration's state for persistence.
func (r *Registration) Snapshot() Snapshot {
	return Snapshot{
		ID:                     r.id,
		Email:                  r.email,
		CreatedAt:              r.createdAt,
		CurrentStep:            r.currentStep,
		ClientID:               r.clientID,
		Salt:                   r.salt,
		Hash:                   r.hash,
		FirstName:              r.firstName,
		LastName:               r.lastName,
		CountryOfResidenceIso2: r.countryOfResidenceIso2,
		PhoneNumber:            r.phoneNumber,
	}
}

// Restore rebuilds a registration loaded from a store.
func Restore(s Snapshot) (*Registration, error) {
	if _, err := id.ParseRegistrationID(s.ID.String()); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "stored registration has an invalid id")
	}
	if !s.CurrentStep.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "stored registration has an unknown step")
	}
	if s.CurrentStep != StepInitialInfo && s.Hash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "stored registration passed initial info without a credential")
	}
	return &Registration{
		id:                     s.ID,
		email:                  s.Email,
		createdAt:              s.CreatedAt,
		currentStep:            s.CurrentStep,
		clientID:               s.ClientID,
		salt:                   s.Salt,
		hash:                   s.Hash,
		firstName:              s.FirstName,
		lastName:               s.LastName,
		countryOfResidenceIso2: s.CountryOfResidenceIso2,
		phoneNumber:            s.PhoneNumber,
	}, nil
}
