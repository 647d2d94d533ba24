package models

import (
	dErrors "signup/pkg/domain-errors"
)

// Step is one stage of the sign-up flow. Steps are totally ordered and a
// registration only moves to the successor of its current step.
type Step int

const (
	StepInitialInfo Step = iota
	StepAccountInfo
	StepPin
)

// stepOrder is the single source of truth for step ordering. Later stages are
// appended here; transition code only ever asks for Next.
var stepOrder = []Step{
	StepInitialInfo,
	StepAccountInfo,
	StepPin,
}

var stepNames = map[Step]string{
	StepInitialInfo: "initial_info",
	StepAccountInfo: "account_info",
	StepPin:         "pin",
}

// ParseStep converts the textual form back to a Step.
func ParseStep(s string) (Step, error) {
	for step, name := range stepNames {
		if name == s {
			return step, nil
		}
	}
	return 0, dErrors.New(dErrors.CodeInvalidInput, "unknown registration step: "+s)
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsValid reports whether s is a known step.
func (s Step) IsValid() bool {
	_, ok := stepNames[s]
	return ok
}

// Next returns the step that follows s. The last step has no successor.
func (s Step) Next() (Step, bool) {
	for i, step := range stepOrder {
		if step == s && i+1 < len(stepOrder) {
			return stepOrder[i+1], true
		}
	}
	return s, false
}

// IsFinal reports whether s is the last known step.
func (s Step) IsFinal() bool {
	return s == stepOrder[len(stepOrder)-1]
}

func (s Step) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown registration step")
	}
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(text []byte) error {
	step, err := ParseStep(string(text))
	if err != nil {
		return err
	}
	*s = step
	return nil
}
