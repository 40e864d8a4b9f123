package model

import "fmt"

// Step is the wizard phase persisted alongside a draft.
type Step string

const (
	StepCapturingHeader Step = "CapturingHeader"
	StepEditingSections Step = "EditingSections"
	StepFinalized       Step = "Finalized"
)

// ParseStep converts a stored string back to a Step.
func ParseStep(s string) (Step, error) {
	switch Step(s) {
	case StepCapturingHeader, StepEditingSections, StepFinalized:
		return Step(s), nil
	default:
		return "", fmt.Errorf("unknown wizard step %q", s)
	}
}
