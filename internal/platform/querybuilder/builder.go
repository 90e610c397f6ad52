package querybuilder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// Ident quotes a possibly schema-qualified identifier such as public.teams.
func Ident(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("identifier is required")
	}
	parts := strings.Split(name, ".")
	quoted := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return "", fmt.Errorf("invalid identifier %q", name)
		}
		quoted = append(quoted, pq.QuoteIdentifier(part))
	}
	return strings.Join(quoted, "."), nil
}

type SelectBuilder struct {
	columns []string
	table   string
}

// Select takes raw column expressions, e.g. COUNT(*).
func Select(columns ...string) *SelectBuilder {
	return &SelectBuilder{columns: append([]string(nil), columns...)}
}

func (b *SelectBuilder) From(table string) *SelectBuilder {
	b.table = table
	return b
}

func (b *SelectBuilder) ToSQL() (string, error) {
	if len(b.columns) == 0 {
		return "", fmt.Errorf("select columns are required")
	}
	table, err := Ident(b.table)
	if err != nil {
		return "", fmt.Errorf("select table: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("SELECT ")
	buf.WriteString(strings.Join(b.columns, ", "))
	buf.WriteString(" FROM ")
	buf.WriteString(table)
	return buf.String(), nil
}

// InsertBuilder renders one multi-row INSERT with positional placeholders.
type InsertBuilder struct {
	table   string
	columns []string
	rows    [][]any
}

func InsertInto(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

func (b *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	b.columns = append([]string(nil), columns...)
	return b
}

// Rows appends every row without copying.
func (b *InsertBuilder) Rows(rows [][]any) *InsertBuilder {
	b.rows = append(b.rows, rows...)
	return b
}

func (b *InsertBuilder) ToSQL() (string, []any, error) {
	table, err := Ident(b.table)
	if err != nil {
		return "", nil, fmt.Errorf("insert table: %w", err)
	}
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("insert columns are required")
	}
	if len(b.rows) == 0 {
		return "", nil, fmt.Errorf("insert values are required")
	}
	if total := len(b.rows) * len(b.columns); total > MaxParams {
		return "", nil, fmt.Errorf("insert needs %d parameters, limit is %d", total, MaxParams)
	}

	var buf strings.Builder
	buf.WriteString("INSERT INTO ")
	buf.WriteString(table)
	buf.WriteString(" (")
	for i, column := range b.columns {
		if i > 0 {
			buf.WriteString(", ")
		}
		quoted, err := Ident(column)
		if err != nil {
			return "", nil, fmt.Errorf("insert column %d: %w", i, err)
		}
		buf.WriteString(quoted)
	}
	buf.WriteString(") VALUES ")

	args := make([]any, 0, len(b.rows)*len(b.columns))
	argIndex := 1
	for rowIdx, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, fmt.Errorf("insert row %d has %d values, expected %d", rowIdx, len(row), len(b.columns))
		}
		if rowIdx > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString("(")
		for colIdx, value := range row {
			if colIdx > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(placeholder(argIndex))
			args = append(args, value)
			argIndex++
		}
		buf.WriteString(")")
	}

	return buf.String(), args, nil
}

// MaxParams is the PostgreSQL bind parameter limit per statement.
const MaxParams = 65535

// RowsPerStatement caps rows per INSERT so one statement stays under MaxParams.
func RowsPerStatement(columns, want int) int {
	if columns < 1 {
		return want
	}
	limit := MaxParams / columns
	if want < 1 || want > limit {
		return limit
	}
	return want
}

func placeholder(i int) string {
	return "$" + strconv.Itoa(i)
}
