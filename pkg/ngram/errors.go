package ngram

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLevel is returned when a depth level is outside [1, max depth].
	ErrInvalidLevel = errors.New("invalid depth level")
	// ErrLookupExhausted is returned when no model key starts with the
	// requested prefix, i.e. the corpus never produced that context.
	ErrLookupExhausted = errors.New("no n-gram matches prefix")
	// ErrMalformedModel is returned when a persisted model cannot be decoded
	// or violates the model invariants.
	ErrMalformedModel = errors.New("malformed model")
	// ErrModelNotFound is returned by a Store that holds no model for a level.
	ErrModelNotFound = errors.New("model not found")
)

// LookupError reports a prefix that has no continuation in a model.
type LookupError struct {
	Level  int
	Prefix string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("level %d: %v: %q", e.Level, ErrLookupExhausted, e.Prefix)
}

func (e *LookupError) Unwrap() error { return ErrLookupExhausted }

// SerializationError reports a model artifact that could not be encoded or decoded.
type SerializationError struct {
	Artifact string
	Err      error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrMalformedModel, e.Artifact, e.Err)
}

func (e *SerializationError) Unwrap() []error { return []error{ErrMalformedModel, e.Err} }

// ValidateLevel checks that level lies in [1, maxDepth].
func ValidateLevel(level, maxDepth int) error {
	if level < 1 || level > maxDepth {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidLevel, level, maxDepth)
	}
	return nil
}
