package planner

import (
	"errors"
	"fmt"
)

const DefaultListLimit = 100

// ErrTooManyTables is returned when a request names more tables than
// PlanLimits.MaxTables allows.
var ErrTooManyTables = errors.New("too many tables")

// PlanLimits defines limits applied during planning.
type PlanLimits struct {
	MaxTables int
	MaxRows   int
	// DefaultRows applies when no limit is requested. Zero means DefaultListLimit.
	DefaultRows int
}

// ClampLimit applies the default when requested is unset and caps the result
// at MaxRows.
func (l PlanLimits) ClampLimit(requested int) uint64 {
	limit := requested
	if limit <= 0 {
		limit = l.DefaultRows
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if l.MaxRows > 0 && limit > l.MaxRows {
		limit = l.MaxRows
	}
	return uint64(limit)
}

// CheckTables rejects a table count above MaxTables.
func (l PlanLimits) CheckTables(count int) error {
	if l.MaxTables > 0 && count > l.MaxTables {
		return fmt.Errorf("%w: selection exceeds maximum of %d tables (tables: %d)", ErrTooManyTables, l.MaxTables, count)
	}
	return nil
}
