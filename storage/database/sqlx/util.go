// Package sqlxrepos implements the domain repositories over a PostgreSQL
// database using sqlx.
package sqlxrepos

import (
	"strings"

	"github.com/jmwangaza/elimisha/core"
)

func orderBy(orderings []core.DBOrdering, fallback string) string {
	if len(orderings) == 0 {
		return " ORDER BY " + fallback
	}
	clauses := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		clauses = append(clauses, ord.String())
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}
