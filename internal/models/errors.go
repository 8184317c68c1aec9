package models

import "errors"

var (
	ErrExternalFetch            = errors.New("external fetch failure")
	ErrSubmission               = errors.New("submission failure")
	ErrPersonaCreationExhausted = errors.New("persona creation exhausted")
	ErrImageBudgetExhausted     = errors.New("image budget exhausted")
	ErrConfiguration            = errors.New("configuration error")
)

type FailureKind string

const (
	FailureExternalFetch    FailureKind = "external_fetch"
	FailureSubmission       FailureKind = "submission"
	FailurePersonaExhausted FailureKind = "persona_exhausted"
	FailureBudgetExhausted  FailureKind = "budget_exhausted"
	FailureConfiguration    FailureKind = "configuration"
	FailureUnknown          FailureKind = "unknown"
)

// KindOf classifies an error returned from a cycle step.
func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrExternalFetch):
		return FailureExternalFetch
	case errors.Is(err, ErrSubmission):
		return FailureSubmission
	case errors.Is(err, ErrPersonaCreationExhausted):
		return FailurePersonaExhausted
	case errors.Is(err, ErrImageBudgetExhausted):
		return FailureBudgetExhausted
	case errors.Is(err, ErrConfiguration):
		return FailureConfiguration
	default:
		return FailureUnknown
	}
}
