package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"signup/internal/registration/models"
	dErrors "signup/pkg/domain-errors"
)

// StartRequest opens a registration.
type StartRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// InitialInfoRequest carries the first step. Password complexity is judged by
// the registration itself, not here.
type InitialInfoRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	ClientID string `json:"client_id" validate:"omitempty,max=128"`
}

// AccountInfoRequest carries the second step. The registration ID comes from
// the path; a body ID, if present, must agree with it.
type AccountInfoRequest struct {
	PhoneNumber     string `json:"phone_number" validate:"required"`
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"required,max=100"`
	CountryCodeIso2 string `json:"country_code_iso2" validate:"required,iso3166_1_alpha2"`
	RegistrationID  string `json:"registration_id,omitempty"`
}

// RegistrationResponse is the public view of a registration. It never
// carries the salt or the hash.
type RegistrationResponse struct {
	ID                     string    `json:"id"`
	Email                  string    `json:"email"`
	CurrentStep            string    `json:"current_step"`
	CreatedAt              time.Time `json:"created_at"`
	ClientID               string    `json:"client_id,omitempty"`
	FirstName              string    `json:"first_name,omitempty"`
	LastName               string    `json:"last_name,omitempty"`
	CountryOfResidenceIso2 string    `json:"country_of_residence_iso2,omitempty"`
	PhoneNumber            string    `json:"phone_number,omitempty"`
	IdentityClaimable      bool      `json:"identity_claimable"`
}

// AvailabilityResponse answers whether an email may start a registration.
type AvailabilityResponse struct {
	Email     string `json:"email"`
	Available bool   `json:"available"`
}

func toResponse(r *models.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:                     r.ID().String(),
		Email:                  r.Email(),
		CurrentStep:            r.CurrentStep().String(),
		CreatedAt:              r.CreatedAt(),
		ClientID:               r.ClientID(),
		FirstName:              r.FirstName(),
		LastName:               r.LastName(),
		CountryOfResidenceIso2: r.CountryOfResidenceIso2(),
		PhoneNumber:            r.PhoneNumber(),
		IdentityClaimable:      r.CanIdentityBeClaimed(),
	}
}

// requestValidator checks request shapes before they reach the service.
type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{v: v}
}

func (rv *requestValidator) Struct(req any) error {
	err := rv.v.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request")
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
	}
	return dErrors.New(dErrors.CodeValidation, strings.Join(msgs, "; "))
}
