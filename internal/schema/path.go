package schema

import "strings"

// Path is an ordered walk through the relationship graph.
type Path struct {
	relationships []*Relationship
}

// NewPath returns a path over the given relationships.
func NewPath(rels ...*Relationship) *Path {
	return &Path{relationships: append([]*Relationship(nil), rels...)}
}

func (p *Path) Add(r *Relationship) { p.relationships = append(p.relationships, r) }

// RemoveLast drops the last relationship. It is a no-op on an empty path.
func (p *Path) RemoveLast() {
	if len(p.relationships) > 0 {
		p.relationships = p.relationships[:len(p.relationships)-1]
	}
}

func (p *Path) Size() int { return len(p.relationships) }

func (p *Path) Relationship(i int) *Relationship { return p.relationships[i] }

// Relationships returns a copy of the ordered relationships.
func (p *Path) Relationships() []*Relationship {
	return append([]*Relationship(nil), p.relationships...)
}

// Tables returns the distinct tables touched, in walk order.
func (p *Path) Tables() []*Table {
	return distinctTables(p.relationships)
}

// NrTables is the number of distinct tables touched.
func (p *Path) NrTables() int {
	return len(p.Tables())
}

// Contains reports whether an equal relationship is already in the path.
// Orientation matters.
func (p *Path) Contains(r *Relationship) bool {
	for _, rel := range p.relationships {
		if rel.Equal(r) {
			return true
		}
	}
	return false
}

// ContainsPath reports whether every relationship of other is in p.
func (p *Path) ContainsPath(other *Path) bool {
	for _, r := range other.relationships {
		if !p.Contains(r) {
			return false
		}
	}
	return true
}

func (p *Path) ContainsTable(t *Table) bool {
	for _, r := range p.relationships {
		if r.IsUsingTable(t) {
			return true
		}
	}
	return false
}

func (p *Path) ContainsTables(tables []*Table) bool {
	for _, t := range tables {
		if !p.ContainsTable(t) {
			return false
		}
	}
	return true
}

// Score sums the from-table size of every edge plus the to-table size of the
// last edge.
func (p *Path) Score() int64 {
	var score int64
	for _, r := range p.relationships {
		score += r.From.ScoreSize()
	}
	if n := len(p.relationships); n > 0 {
		score += p.relationships[n-1].To.ScoreSize()
	}
	return score
}

// Clone copies the relationship list. The relationships themselves are shared.
func (p *Path) Clone() *Path {
	return NewPath(p.relationships...)
}

// Compare orders by size, then distinct table count, then score.
func (p *Path) Compare(other *Path) int {
	if c := compareInt64(int64(p.Size()), int64(other.Size())); c != 0 {
		return c
	}
	if c := compareInt64(int64(p.NrTables()), int64(other.NrTables())); c != 0 {
		return c
	}
	return compareInt64(p.Score(), other.Score())
}

func (p *Path) String() string {
	if len(p.relationships) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(p.relationships[0].From.String())
	for _, r := range p.relationships {
		b.WriteString(" --> ")
		b.WriteString(r.To.String())
	}
	return b.String()
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func distinctTables(rels []*Relationship) []*Table {
	var out []*Table
	add := func(t *Table) {
		if t == nil {
			return
		}
		for _, seen := range out {
			if sameTable(seen, t) {
				return
			}
		}
		out = append(out, t)
	}
	for _, r := range rels {
		add(r.From)
		add(r.To)
	}
	return out
}
