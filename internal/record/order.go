package record

import (
	"sort"

	"github.com/koustreak/restadmin/internal/schema"
)

// DefaultNamePriority is the name-priority segment of the display
// comparator: after key columns, the commonly identifying columns come
// first and everything else keeps schema order.
var DefaultNamePriority = []string{"id", "email", "title", "name", "full name", "first name", "last name"}

// DisplayOrder returns the table's column names sorted for display:
// primary-key columns first, then foreign-key columns, then the given
// name-priority list, then original schema order. Ties break by schema
// order, so the sort is stable with respect to the document.
//
// The comparator is deliberately a pure function of the definition and the
// priority list — it never reorders the definition's own storage.
func DisplayOrder(def *schema.TableDefinition, priority []string) []string {
	names := def.ColumnNames()

	schemaIndex := make(map[string]int, len(names))
	for i, n := range names {
		schemaIndex[n] = i
	}
	priorityIndex := make(map[string]int, len(priority))
	for i, n := range priority {
		priorityIndex[n] = i
	}

	rank := func(name string) (int, int, int) {
		col, _ := def.Column(name)
		constraint := 2
		switch col.Constraint {
		case schema.ConstraintPrimaryKey:
			constraint = 0
		case schema.ConstraintForeignKey:
			constraint = 1
		}
		pri, ok := priorityIndex[name]
		if !ok {
			pri = len(priority)
		}
		return constraint, pri, schemaIndex[name]
	}

	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.SliceStable(sorted, func(i, j int) bool {
		ci, pi, si := rank(sorted[i])
		cj, pj, sj := rank(sorted[j])
		if ci != cj {
			return ci < cj
		}
		if pi != pj {
			return pi < pj
		}
		return si < sj
	})
	return sorted
}
