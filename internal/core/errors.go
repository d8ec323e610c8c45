package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyQuery marks input that normalized down to nothing. It is one of
// the two terminal pipeline errors; the orchestrator maps it to the fixed
// clarify response.
var ErrEmptyQuery = errors.New("query is empty after normalization")

// ErrorKind classifies a failed stage call.
type ErrorKind int

const (
	// KindTimeout means an external service exceeded its stage budget.
	KindTimeout ErrorKind = iota
	// KindUnavailable means connection or auth failure to an external service.
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// StageError wraps a failure from one pipeline stage. Stage errors are
// absorbed at the orchestrator boundary and converted into a degraded
// continuation; they never surface to the end user.
type StageError struct {
	Stage string
	Kind  ErrorKind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageTimeout wraps err as an upstream timeout at the named stage.
func NewStageTimeout(stage string, err error) *StageError {
	return &StageError{Stage: stage, Kind: KindTimeout, Err: err}
}

// NewStageUnavailable wraps err as an unavailable upstream at the named stage.
func NewStageUnavailable(stage string, err error) *StageError {
	return &StageError{Stage: stage, Kind: KindUnavailable, Err: err}
}

// ClassifyStageError buckets an arbitrary stage failure. Context expiry is a
// timeout, everything else counts as the upstream being unavailable.
func ClassifyStageError(stage string, err error) *StageError {
	var se *StageError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewStageTimeout(stage, err)
	}
	return NewStageUnavailable(stage, err)
}

// IsTimeout reports whether err is an upstream timeout.
func IsTimeout(err error) bool {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind == KindTimeout
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsUnavailable reports whether err is an unavailable upstream.
func IsUnavailable(err error) bool {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind == KindUnavailable
	}
	return false
}
