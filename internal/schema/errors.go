package schema

import (
	"errors"
	"fmt"
)

// Sentinel errors for schema model operations. Match with errors.Is.
var (
	ErrIncompleteRelationship = errors.New("incomplete relationship")
	ErrDuplicateTable         = errors.New("duplicate table")
	ErrDuplicateRelationship  = errors.New("duplicate relationship")
	ErrUnknownTable           = errors.New("unknown table")
	ErrUnknownField           = errors.New("unknown field")
	ErrUnknownCondition       = errors.New("unknown condition")
	ErrNoPath                 = errors.New("no join path between tables")
	ErrNoFields               = errors.New("no fields selected")

	ErrInvalidCardinality = errors.New("invalid cardinality")
	ErrInvalidComparator  = errors.New("invalid comparator")
	ErrInvalidAggregation = errors.New("invalid aggregation type")
	ErrInvalidFieldType   = errors.New("invalid field type")
	ErrInvalidTableType   = errors.New("invalid table type")
)

// IncompleteRelationshipError reports which part of a relationship is missing.
type IncompleteRelationshipError struct {
	Relationship string
	Missing      string
}

func (e *IncompleteRelationshipError) Error() string {
	return fmt.Sprintf("incomplete relationship %q: missing %s", e.Relationship, e.Missing)
}

func (e *IncompleteRelationshipError) Unwrap() error {
	return ErrIncompleteRelationship
}
