package record

import (
	"fmt"
	"sort"
	"strings"
)

// Record is one row keyed by field name. Values are scalars: string, int64 or float64.
// Batches widen other signed integers and float32 on Append.
type Record map[string]any

// Batch is an ordered set of uniformly shaped records.
// Fields fixes the column order used when the batch is written to a sink.
type Batch struct {
	fields  []string
	index   map[string]struct{}
	records []Record
}

func NewBatch(fields ...string) (*Batch, error) {
	b := &Batch{
		fields: make([]string, 0, len(fields)),
		index:  make(map[string]struct{}, len(fields)),
	}
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			return nil, fmt.Errorf("field name cannot be empty")
		}
		if _, exists := b.index[field]; exists {
			return nil, fmt.Errorf("duplicate field %q", field)
		}
		b.index[field] = struct{}{}
		b.fields = append(b.fields, field)
	}
	return b, nil
}

// MustBatch is NewBatch for static field lists.
func MustBatch(fields ...string) *Batch {
	b, err := NewBatch(fields...)
	if err != nil {
		panic(err)
	}
	return b
}

// Append adds a copy of rec; its key set must equal the batch field set.
// Go integer and float32 values are stored as int64 and float64.
func (b *Batch) Append(rec Record) error {
	if len(rec) != len(b.fields) {
		return fmt.Errorf("record %d has %d fields, batch has %d", len(b.records), len(rec), len(b.fields))
	}
	stored := make(Record, len(rec))
	for key, value := range rec {
		if _, ok := b.index[key]; !ok {
			return fmt.Errorf("record %d has unknown field %q", len(b.records), key)
		}
		scalar, ok := normalizeScalar(value)
		if !ok {
			return fmt.Errorf("record %d field %q has unsupported value type %T", len(b.records), key, value)
		}
		stored[key] = scalar
	}
	b.records = append(b.records, stored)
	return nil
}

func (b *Batch) Fields() []string {
	return append([]string(nil), b.fields...)
}

func (b *Batch) HasField(field string) bool {
	_, ok := b.index[field]
	return ok
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.records)
}

func (b *Batch) Records() []Record {
	return b.records
}

// MissingFields returns the names from required that the batch lacks, sorted.
func (b *Batch) MissingFields(required []string) []string {
	var missing []string
	for _, field := range required {
		if !b.HasField(field) {
			missing = append(missing, field)
		}
	}
	sort.Strings(missing)
	return missing
}

// Project narrows the batch to the given fields, in the given order.
// Fields the batch does not carry are skipped; projection never adds data.
func (b *Batch) Project(fields []string) *Batch {
	keep := make([]string, 0, len(fields))
	for _, field := range fields {
		if b.HasField(field) {
			keep = append(keep, field)
		}
	}

	out := MustBatch(keep...)
	out.records = make([]Record, 0, len(b.records))
	for _, rec := range b.records {
		narrowed := make(Record, len(keep))
		for _, field := range keep {
			narrowed[field] = rec[field]
		}
		out.records = append(out.records, narrowed)
	}
	return out
}

// Rows returns the records as positional rows following Fields order.
func (b *Batch) Rows() [][]any {
	rows := make([][]any, 0, len(b.records))
	for _, rec := range b.records {
		row := make([]any, len(b.fields))
		for i, field := range b.fields {
			row[i] = rec[field]
		}
		rows = append(rows, row)
	}
	return rows
}

func normalizeScalar(value any) (any, bool) {
	switch v := value.(type) {
	case string, int64, float64:
		return v, true
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case float32:
		return float64(v), true
	default:
		return nil, false
	}
}
