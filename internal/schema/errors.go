package schema

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is wrapped by ClassificationError for blank input.
var ErrEmptyInput = errors.New("empty input")

// ClassificationError reports input that cannot be classified. It is fatal
// for that single name only.
type ClassificationError struct {
	Input  string
	Reason string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification: %q: %s", e.Input, e.Reason)
}

// Unwrap lets errors.Is match ErrEmptyInput for blank input.
func (e *ClassificationError) Unwrap() error {
	if e.Reason == "empty source text" || e.Reason == "empty input" {
		return ErrEmptyInput
	}
	return nil
}

// CatalogueLookupError reports a (direction, category) pair with no rule set.
type CatalogueLookupError struct {
	Direction Direction
	Category  Category
}

func (e *CatalogueLookupError) Error() string {
	return fmt.Sprintf("catalogue: no rule set for %s/%s", e.Direction, e.Category)
}

// MalformedEvidenceError describes a bad evidence item. Unknown source ids
// are reported with this type but only logged; non-increasing positions are
// fatal for the candidate.
type MalformedEvidenceError struct {
	SourceID string
	Position int
	Reason   string
}

func (e *MalformedEvidenceError) Error() string {
	return fmt.Sprintf("evidence %q at position %d: %s", e.SourceID, e.Position, e.Reason)
}
