package schema

import "sort"

// ShortestPathsBetween finds, for every consecutive pair of tables, the
// minimum-length walks connecting them. Each pair extends only the surviving
// paths of the previous pair. The result is sorted by Path.Compare and is empty
// when fewer than two tables are given or any pair is disconnected.
func (s *Schema) ShortestPathsBetween(tables []*Table) []*Path {
	if len(tables) < 2 {
		return nil
	}

	survivors := []*Path{NewPath()}
	for i := 0; i < len(tables)-1; i++ {
		one, two := tables[i], tables[i+1]
		var found []*Path
		for _, prev := range survivors {
			s.searchPaths(one, two, &found, prev.Clone())
		}
		found = onlyKeepSize(found, minimumSize(found))
		if len(found) == 0 {
			return nil
		}
		survivors = found
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].Compare(survivors[j]) < 0
	})
	return survivors
}

// searchPaths is a depth-first walk from one, recording every path that
// reaches two without reusing an oriented relationship. Branches at least as
// long as the shortest path found so far are pruned; they would be discarded
// by onlyKeepSize anyway.
func (s *Schema) searchPaths(one, two *Table, found *[]*Path, pathSoFar *Path) {
	for _, rel := range s.FindRelationshipsUsing(one) {
		step := rel.Clone()
		if !sameTable(step.From, one) {
			step = step.Flipped()
		}
		if pathSoFar.Contains(step) {
			continue
		}
		if best := minimumSize(*found); best >= 0 && pathSoFar.Size() >= best {
			return
		}
		if s.MaxPathLength > 0 && pathSoFar.Size() >= s.MaxPathLength {
			return
		}

		pathSoFar.Add(step)
		if sameTable(step.To, two) {
			*found = append(*found, pathSoFar.Clone())
		} else {
			s.searchPaths(step.To, two, found, pathSoFar)
		}
		pathSoFar.RemoveLast()
	}
}

// minimumSize returns the smallest path size, or -1 for no paths.
func minimumSize(paths []*Path) int {
	min := -1
	for _, p := range paths {
		if min < 0 || p.Size() < min {
			min = p.Size()
		}
	}
	return min
}

func onlyKeepSize(paths []*Path, size int) []*Path {
	kept := paths[:0]
	for _, p := range paths {
		if p.Size() == size {
			kept = append(kept, p)
		}
	}
	return kept
}

// AllJoinsBetween folds the best shortest path between tables into a join set.
// The set is empty when no path exists.
func (s *Schema) AllJoinsBetween(tables []*Table) *Joins {
	joins := &Joins{}
	paths := s.ShortestPathsBetween(tables)
	if len(paths) == 0 {
		return joins
	}
	for _, r := range paths[0].relationships {
		joins.Add(r)
	}
	return joins
}

// JoinsBetween collects the direct relationships between every pair of tables.
// Transitive connections are not followed.
func (s *Schema) JoinsBetween(tables []*Table) *Joins {
	joins := &Joins{}
	for i := range tables {
		for j := range tables {
			if i == j {
				continue
			}
			if r := s.FindJoin(tables[i], tables[j]); r != nil {
				joins.Add(r)
			}
		}
	}
	return joins
}
