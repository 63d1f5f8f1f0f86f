package introspection

import (
	"fmt"
	"sort"
)

// ForeignKeyConstraint groups per-column KEY_COLUMN_USAGE rows into an ordered FK constraint mapping.
type ForeignKeyConstraint struct {
	TableName         string
	ConstraintName    string
	ReferencedTable   string
	ColumnNames       []string
	ReferencedColumns []string
}

// ForeignKeyConstraints groups rows by table and constraint with deterministic ordering.
func ForeignKeyConstraints(fks []ForeignKey) []ForeignKeyConstraint {
	if len(fks) == 0 {
		return nil
	}

	type row struct {
		key   string
		fk    ForeignKey
		index int
	}
	rows := make([]row, 0, len(fks))
	for i, fk := range fks {
		name := fk.ConstraintName
		if name == "" {
			// Unnamed constraints stay isolated to avoid accidental merging.
			name = fmt.Sprintf("__unnamed_%d", i)
		}
		rows = append(rows, row{key: fk.TableName + "\x00" + name, fk: fk, index: i})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].key != rows[j].key {
			return rows[i].key < rows[j].key
		}
		iPos := rows[i].fk.OrdinalPosition
		jPos := rows[j].fk.OrdinalPosition
		if iPos != jPos {
			return iPos < jPos
		}
		return rows[i].index < rows[j].index
	})

	var result []ForeignKeyConstraint
	for i, item := range rows {
		if i == 0 || rows[i-1].key != item.key {
			result = append(result, ForeignKeyConstraint{
				TableName:       item.fk.TableName,
				ConstraintName:  item.fk.ConstraintName,
				ReferencedTable: item.fk.ReferencedTable,
			})
		}
		group := &result[len(result)-1]
		group.ColumnNames = append(group.ColumnNames, item.fk.ColumnName)
		group.ReferencedColumns = append(group.ReferencedColumns, item.fk.ReferencedColumn)
	}
	return result
}
