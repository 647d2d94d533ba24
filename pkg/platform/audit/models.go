// Package audit records what happened to a registration and who asked for it.
package audit

import (
	"context"
	"time"

	id "signup/pkg/domain"
)

// Action names a registration lifecycle event.
type Action string

const (
	ActionRegistrationStarted             Action = "registration_started"
	ActionInitialInfoCompleted            Action = "registration_initial_info_completed"
	ActionAccountInfoCompleted            Action = "registration_account_info_completed"
	ActionRegistrationStepRejected        Action = "registration_step_rejected"
	ActionRegistrationConflictEncountered Action = "registration_conflict"
)

// EventCategory classifies events for retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers events that change what we hold about a person.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers rejected or suspicious attempts.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine activity.
	CategoryOperations EventCategory = "operations"
)

var actionCategories = map[Action]EventCategory{
	ActionInitialInfoCompleted:            CategoryCompliance,
	ActionAccountInfoCompleted:            CategoryCompliance,
	ActionRegistrationStepRejected:        CategorySecurity,
	ActionRegistrationConflictEncountered: CategorySecurity,
	ActionRegistrationStarted:             CategoryOperations,
}

// Category returns the category for the action. Unknown actions are operational.
func (a Action) Category() EventCategory {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted by the registration service. It never carries the
// password, salt or hash.
type Event struct {
	Category       EventCategory     `json:"category"`
	Timestamp      time.Time         `json:"timestamp"`
	RegistrationID id.RegistrationID `json:"registration_id"`
	Action         Action            `json:"action"`
	ClientID       string            `json:"client_id,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	RequestID      string            `json:"request_id,omitempty"`
	ClientIP       string            `json:"client_ip,omitempty"`
	Device         string            `json:"device,omitempty"`
}

// Store persists events. Implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
}
