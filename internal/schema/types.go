package schema

import (
	"fmt"
	"strings"
)

// TableType classifies a table within a star or snowflake schema.
type TableType int

const (
	TableTypeOther TableType = iota
	TableTypeDimension
	TableTypeFact
)

var tableTypeCodes = []string{"OTHER", "DIMENSION", "FACT"}

func (t TableType) String() string {
	if t < 0 || int(t) >= len(tableTypeCodes) {
		return tableTypeCodes[0]
	}
	return tableTypeCodes[t]
}

// ParseTableType accepts the codes rendered by String, case-insensitively.
// An empty string maps to TableTypeOther.
func ParseTableType(s string) (TableType, error) {
	if s == "" {
		return TableTypeOther, nil
	}
	for i, code := range tableTypeCodes {
		if strings.EqualFold(code, s) {
			return TableType(i), nil
		}
	}
	return TableTypeOther, fmt.Errorf("%w: %q", ErrInvalidTableType, s)
}

// FieldType classifies a field for selection and grouping.
type FieldType int

const (
	FieldTypeNone FieldType = iota
	FieldTypeDimension
	FieldTypeFact
	FieldTypeKey
)

var fieldTypeCodes = []string{"NONE", "DIMENSION", "FACT", "KEY"}

func (t FieldType) String() string {
	if t < 0 || int(t) >= len(fieldTypeCodes) {
		return fieldTypeCodes[0]
	}
	return fieldTypeCodes[t]
}

// ParseFieldType accepts the codes rendered by String. Empty means NONE.
func ParseFieldType(s string) (FieldType, error) {
	if s == "" {
		return FieldTypeNone, nil
	}
	for i, code := range fieldTypeCodes {
		if strings.EqualFold(code, s) {
			return FieldType(i), nil
		}
	}
	return FieldTypeNone, fmt.Errorf("%w: %q", ErrInvalidFieldType, s)
}

// AggregationType is the aggregate applied to a fact field.
type AggregationType int

const (
	AggregationNone AggregationType = iota
	AggregationAverage
	AggregationMinimum
	AggregationMaximum
	AggregationCount
	AggregationSum
)

var aggregationCodes = []string{"NONE", "AVERAGE", "MINIMUM", "MAXIMUM", "COUNT", "SUM"}

var aggregationFunctions = []string{"", "AVG", "MIN", "MAX", "COUNT", "SUM"}

func (a AggregationType) String() string {
	if a < 0 || int(a) >= len(aggregationCodes) {
		return aggregationCodes[0]
	}
	return aggregationCodes[a]
}

// Function returns the SQL aggregate function name, or "" for AggregationNone.
func (a AggregationType) Function() string {
	if a < 0 || int(a) >= len(aggregationFunctions) {
		return ""
	}
	return aggregationFunctions[a]
}

// ParseAggregationType accepts either the code (SUM, AVERAGE) or the SQL
// function name (AVG, MIN, MAX). Empty means NONE.
func ParseAggregationType(s string) (AggregationType, error) {
	if s == "" {
		return AggregationNone, nil
	}
	for i := range aggregationCodes {
		if strings.EqualFold(aggregationCodes[i], s) || (aggregationFunctions[i] != "" && strings.EqualFold(aggregationFunctions[i], s)) {
			return AggregationType(i), nil
		}
	}
	return AggregationNone, fmt.Errorf("%w: %q", ErrInvalidAggregation, s)
}

// Cardinality describes how rows on either end of a relationship relate.
type Cardinality int

const (
	CardinalityUndefined Cardinality = iota
	CardinalityOneToMany
	CardinalityManyToOne
	CardinalityOneToOne
	CardinalityZeroToMany
	CardinalityManyToZero
	CardinalityZeroToOne
	CardinalityOneToZero
	CardinalityManyToMany
)

var cardinalityCodes = []string{"UNDEFINED", "1:N", "N:1", "1:1", "0:N", "N:0", "0:1", "1:0", "N:N"}

func (c Cardinality) String() string {
	if c < 0 || int(c) >= len(cardinalityCodes) {
		return cardinalityCodes[0]
	}
	return cardinalityCodes[c]
}

// Inverse returns the cardinality seen from the other end.
func (c Cardinality) Inverse() Cardinality {
	switch c {
	case CardinalityOneToMany:
		return CardinalityManyToOne
	case CardinalityManyToOne:
		return CardinalityOneToMany
	case CardinalityZeroToMany:
		return CardinalityManyToZero
	case CardinalityManyToZero:
		return CardinalityZeroToMany
	case CardinalityZeroToOne:
		return CardinalityOneToZero
	case CardinalityOneToZero:
		return CardinalityZeroToOne
	default:
		return c
	}
}

// ParseCardinality accepts codes like "1:N" (case-insensitive). Empty means UNDEFINED.
func ParseCardinality(s string) (Cardinality, error) {
	if s == "" {
		return CardinalityUndefined, nil
	}
	for i, code := range cardinalityCodes {
		if strings.EqualFold(code, s) {
			return Cardinality(i), nil
		}
	}
	return CardinalityUndefined, fmt.Errorf("%w: %q", ErrInvalidCardinality, s)
}

// Comparator is the operator of a where condition.
type Comparator string

const (
	ComparatorEqual        Comparator = "="
	ComparatorNotEqual     Comparator = "<>"
	ComparatorLess         Comparator = "<"
	ComparatorLessEqual    Comparator = "<="
	ComparatorGreater      Comparator = ">"
	ComparatorGreaterEqual Comparator = ">="
	ComparatorIsNull       Comparator = "IS NULL"
	ComparatorIsNotNull    Comparator = "IS NOT NULL"
	ComparatorIn           Comparator = "IN"
	ComparatorNotIn        Comparator = "NOT IN"
)

var comparators = []Comparator{
	ComparatorEqual, ComparatorNotEqual, ComparatorLess, ComparatorLessEqual,
	ComparatorGreater, ComparatorGreaterEqual, ComparatorIsNull, ComparatorIsNotNull,
	ComparatorIn, ComparatorNotIn,
}

// TakesOperand reports whether the comparator is followed by a value.
func (c Comparator) TakesOperand() bool {
	return c != ComparatorIsNull && c != ComparatorIsNotNull
}

// ParseComparator normalizes whitespace and case. Empty means "=".
func ParseComparator(s string) (Comparator, error) {
	norm := strings.Join(strings.Fields(strings.ToUpper(s)), " ")
	if norm == "" {
		return ComparatorEqual, nil
	}
	if norm == "!=" {
		return ComparatorNotEqual, nil
	}
	for _, c := range comparators {
		if string(c) == norm {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidComparator, s)
}
