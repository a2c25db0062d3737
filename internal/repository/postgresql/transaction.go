package postgresql

import (
	"context"
	"fmt"
	"sort"

	"github.com/cmlabs-hris/lms-backend-go/internal/pkg/database"
)

// GetQuerier returns either the context-bound transaction or the pool.
// Used in repositories to support both transactional and non-transactional operations.
func GetQuerier(ctx context.Context, db *database.DB) database.Querier {
	if tx, ok := database.TxFromContext(ctx); ok {
		return tx
	}
	return db.Pool
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > database.MaxQueryLimit {
		return database.MaxQueryLimit
	}
	return limit
}

// buildSetClause turns a fields map into "col1 = $n, col2 = $n+1" with a
// deterministic column order, returning the args in matching order.
func buildSetClause(fields map[string]any, startIndex int) (string, []any) {
	cols := make([]string, 0, len(fields))
	for col := range fields {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	clause := ""
	args := make([]any, 0, len(fields))
	for i, col := range cols {
		if i > 0 {
			clause += ", "
		}
		clause += fmt.Sprintf("%s = $%d", col, startIndex+i)
		args = append(args, fields[col])
	}
	return clause, args
}
