package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	qb "github.com/riskibarqy/understat-loader/internal/platform/querybuilder"
)

const defaultChunkSize = 500

// TableSink appends rows with multi-row INSERT statements. Every Append takes
// its own connection and writes all chunks inside one transaction, so a batch
// lands completely or not at all.
type TableSink struct {
	db        *sqlx.DB
	chunkSize int
}

func NewTableSink(db *sqlx.DB, chunkSize int) *TableSink {
	if chunkSize < 1 {
		chunkSize = defaultChunkSize
	}
	return &TableSink{db: db, chunkSize: chunkSize}
}

func (s *TableSink) Append(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	statements, err := buildInsertStatements(table, columns, rows, s.chunkSize)
	if err != nil {
		return 0, err
	}

	conn, err := s.db.Connx(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection for %s: %w", table, err)
	}
	defer conn.Close()

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx insert %s: %w", table, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var written int64
	for idx, stmt := range statements {
		res, err := tx.ExecContext(ctx, stmt.query, stmt.args...)
		if err != nil {
			return 0, fmt.Errorf("insert %s chunk %d/%d (%d rows): %w", table, idx+1, len(statements), stmt.rows, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected %s chunk %d: %w", table, idx+1, err)
		}
		if affected != int64(stmt.rows) {
			return 0, fmt.Errorf("insert %s chunk %d/%d wrote %d of %d rows", table, idx+1, len(statements), affected, stmt.rows)
		}
		written += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert %s tx: %w", table, err)
	}
	return written, nil
}

func (s *TableSink) Count(ctx context.Context, table string) (int64, error) {
	query, err := qb.Select("COUNT(*)").From(table).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count %s query: %w", table, err)
	}

	var total int64
	if err := s.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return total, nil
}

type insertStatement struct {
	query string
	args  []any
	rows  int
}

func buildInsertStatements(table string, columns []string, rows [][]any, chunkSize int) ([]insertStatement, error) {
	size := qb.RowsPerStatement(len(columns), chunkSize)
	out := make([]insertStatement, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		query, args, err := qb.InsertInto(table).Columns(columns...).Rows(rows[start:end]).ToSQL()
		if err != nil {
			return nil, fmt.Errorf("build insert %s query: %w", table, err)
		}
		out = append(out, insertStatement{query: query, args: args, rows: end - start})
	}
	return out, nil
}
