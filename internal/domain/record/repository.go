package record

import "context"

// Sink appends positional rows to a named table and reports how many were written.
type Sink interface {
	Append(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
}

// Counter reports the current row count of a table.
type Counter interface {
	Count(ctx context.Context, table string) (int64, error)
}
