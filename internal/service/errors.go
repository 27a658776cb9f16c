package service

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration       = errors.New("configuration error")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrMalformedResponse   = errors.New("malformed response")
	ErrPersistence         = errors.New("persistence failure")

	ErrInvalidInput      = errors.New("invalid input")
	ErrSessionNotFound   = errors.New("session not found")
	ErrNoRecommendations = errors.New("no recommendations in session")
)

// RecommendationError is returned by the requester. Kind is one of
// ErrConfiguration, ErrUpstreamUnavailable or ErrMalformedResponse.
type RecommendationError struct {
	Kind   error
	Reason string
	Raw    string // last model reply, empty when none was received
	Err    error
}

func (e *RecommendationError) Error() string {
	msg := e.Kind.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RecommendationError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func invalidInput(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}
