package schema

import "strings"

// Joins is an unordered set of relationships keyed by their unordered table pair.
type Joins struct {
	relationships []*Relationship
}

// NewJoins returns a join set holding rels, deduplicated.
func NewJoins(rels ...*Relationship) *Joins {
	j := &Joins{}
	for _, r := range rels {
		j.Add(r)
	}
	return j
}

// Add stores r unless a relationship between the same two tables is present.
// It reports whether r was stored.
func (j *Joins) Add(r *Relationship) bool {
	if j.Contains(r) {
		return false
	}
	j.relationships = append(j.relationships, r)
	return true
}

func (j *Joins) RemoveLast() {
	if len(j.relationships) > 0 {
		j.relationships = j.relationships[:len(j.relationships)-1]
	}
}

func (j *Joins) Size() int { return len(j.relationships) }

func (j *Joins) Relationship(i int) *Relationship { return j.relationships[i] }

// Relationships returns a copy of the stored relationships.
func (j *Joins) Relationships() []*Relationship {
	return append([]*Relationship(nil), j.relationships...)
}

// Contains reports whether any stored relationship connects the same two
// tables as r, in either direction.
func (j *Joins) Contains(r *Relationship) bool {
	for _, rel := range j.relationships {
		if rel.IsUsingTables(r.From, r.To) {
			return true
		}
	}
	return false
}

func (j *Joins) ContainsPath(p *Path) bool {
	for _, r := range p.relationships {
		if !j.Contains(r) {
			return false
		}
	}
	return true
}

func (j *Joins) ContainsTable(t *Table) bool {
	for _, r := range j.relationships {
		if r.IsUsingTable(t) {
			return true
		}
	}
	return false
}

func (j *Joins) ContainsTables(tables []*Table) bool {
	for _, t := range tables {
		if !j.ContainsTable(t) {
			return false
		}
	}
	return true
}

// Score sums both end sizes of every stored relationship.
func (j *Joins) Score() int64 {
	var score int64
	for _, r := range j.relationships {
		score += r.From.ScoreSize() + r.To.ScoreSize()
	}
	return score
}

// UsedTables returns the distinct tables in first-seen order.
func (j *Joins) UsedTables() []*Table {
	return distinctTables(j.relationships)
}

// UsedRelationships returns one relationship per unordered table pair.
func (j *Joins) UsedRelationships() []*Relationship {
	return NewJoins(j.relationships...).relationships
}

func (j *Joins) Clone() *Joins {
	return &Joins{relationships: j.Relationships()}
}

func (j *Joins) String() string {
	parts := make([]string, 0, len(j.relationships))
	for _, r := range j.relationships {
		parts = append(parts, r.From.String()+"-->"+r.To.String())
	}
	return strings.Join(parts, ", ")
}
