package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Table is an in-memory append-only table.
type Table struct {
	Columns []string
	Rows    [][]any
}

// TableSink keeps appended rows in memory. Used for dry runs and tests.
type TableSink struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

func NewTableSink() *TableSink {
	return &TableSink{tables: make(map[string]*Table)}
}

func (s *TableSink) Append(_ context.Context, table string, columns []string, rows [][]any) (int64, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return 0, fmt.Errorf("table name is required")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	for idx, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("row %d has %d values, expected %d", idx, len(row), len(columns))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tables[table]
	if !ok {
		existing = &Table{Columns: append([]string(nil), columns...)}
		s.tables[table] = existing
	} else if strings.Join(existing.Columns, ",") != strings.Join(columns, ",") {
		return 0, fmt.Errorf("table %s has columns [%s], got [%s]", table, strings.Join(existing.Columns, ", "), strings.Join(columns, ", "))
	}

	for _, row := range rows {
		existing.Rows = append(existing.Rows, append([]any(nil), row...))
	}
	return int64(len(rows)), nil
}

func (s *TableSink) Count(_ context.Context, table string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing, ok := s.tables[table]
	if !ok {
		return 0, nil
	}
	return int64(len(existing.Rows)), nil
}

// Snapshot returns a copy of the named table.
func (s *TableSink) Snapshot(table string) (Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing, ok := s.tables[table]
	if !ok {
		return Table{}, false
	}
	out := Table{Columns: append([]string(nil), existing.Columns...)}
	for _, row := range existing.Rows {
		out.Rows = append(out.Rows, append([]any(nil), row...))
	}
	return out, true
}
