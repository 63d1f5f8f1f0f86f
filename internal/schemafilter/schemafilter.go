// Package schemafilter applies allow/deny filters to schema models.
package schemafilter

import (
	"path"
	"slices"
	"strings"

	"joinpath/internal/schema"
)

// Config controls allow/deny filters for tables and columns. Patterns are
// globs matched case-insensitively against the physical or the logical name.
type Config struct {
	AllowTables  []string            `mapstructure:"allow_tables"`
	DenyTables   []string            `mapstructure:"deny_tables"`
	AllowColumns map[string][]string `mapstructure:"allow_columns"`
	DenyColumns  map[string][]string `mapstructure:"deny_columns"`
}

// IsZero reports whether the config filters nothing.
func (c Config) IsZero() bool {
	return len(c.AllowTables) == 0 && len(c.DenyTables) == 0 && len(c.AllowColumns) == 0 && len(c.DenyColumns) == 0
}

// Apply filters tables, fields, conditions, relationships and the saved
// selection in place. Missing allow lists default to allow-all; deny rules
// always win.
func Apply(s *schema.Schema, cfg Config) {
	if s == nil {
		return
	}

	for _, t := range slices.Clone(s.Tables) {
		if !tableAllowed(t, cfg.AllowTables, cfg.DenyTables) {
			s.RemoveTable(t.Name)
		}
	}

	removed := make(map[*schema.Field]bool)
	for _, t := range s.Tables {
		for _, f := range slices.Clone(t.Fields) {
			if !columnAllowed(t, f, cfg.AllowColumns, cfg.DenyColumns) {
				t.RemoveField(f.Name)
				removed[f] = true
			}
		}
	}

	if len(removed) > 0 {
		for _, r := range slices.Clone(s.Relationships) {
			if usesRemoved(r, removed) {
				s.RemoveRelationship(r)
			}
		}
	}

	s.Selection.Fields = slices.DeleteFunc(s.Selection.Fields, func(f *schema.Field) bool {
		return removed[f] || s.FindTable(f.Table.Name) != f.Table
	})
	s.Selection.Conditions = slices.DeleteFunc(s.Selection.Conditions, func(c *schema.WhereCondition) bool {
		return (c.Field != nil && removed[c.Field]) || s.FindTable(c.Table.Name) != c.Table
	})
}

func usesRemoved(r *schema.Relationship, removed map[*schema.Field]bool) bool {
	for f := range removed {
		if r.UsesField(f) {
			return true
		}
	}
	return false
}

func tableAllowed(t *schema.Table, allow, deny []string) bool {
	if matchesAny(t.DBName, deny) || matchesAny(t.Name, deny) {
		return false
	}
	if len(allow) == 0 {
		return true
	}
	return matchesAny(t.DBName, allow) || matchesAny(t.Name, allow)
}

func columnAllowed(t *schema.Table, f *schema.Field, allow, deny map[string][]string) bool {
	denyPatterns := mergePatterns(deny, t)
	if matchesAny(f.DBName, denyPatterns) || matchesAny(f.Name, denyPatterns) {
		return false
	}
	allowPatterns := mergePatterns(allow, t)
	if len(allowPatterns) == 0 {
		return true
	}
	return matchesAny(f.DBName, allowPatterns) || matchesAny(f.Name, allowPatterns)
}

func mergePatterns(patterns map[string][]string, t *schema.Table) []string {
	if patterns == nil {
		return nil
	}
	combined := append([]string{}, patterns["*"]...)
	for key, values := range patterns {
		if key == "*" {
			continue
		}
		if strings.EqualFold(key, t.DBName) || strings.EqualFold(key, t.Name) {
			combined = append(combined, values...)
		}
	}
	return slices.Compact(combined)
}

func matchesAny(value string, patterns []string) bool {
	value = strings.ToLower(value)
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		// matching should be case-insensitive
		ok, err := path.Match(strings.ToLower(pattern), value)
		if err != nil {
			continue
		}
		if ok {
			return true
		}
	}
	return false
}
