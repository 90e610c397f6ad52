package usecase

import (
	"fmt"
	"strings"

	crerr "github.com/cockroachdb/errors"
)

var (
	ErrInvalidInput          = crerr.New("invalid input")
	ErrDependencyUnavailable = crerr.New("dependency unavailable")

	ErrMissingColumns = crerr.New("missing columns")
	ErrEmptyValue     = crerr.New("empty value")
	ErrDuplicateValue = crerr.New("duplicate value")
)

type ValidationKind string

const (
	KindMissingColumns ValidationKind = "MissingColumns"
	KindEmptyValue     ValidationKind = "EmptyValue"
	KindDuplicateValue ValidationKind = "DuplicateValue"
)

// ValidationError reports the first rule violation found in a batch.
// Fields names the column(s) implicated; Detail carries the offending values.
type ValidationError struct {
	Kind   ValidationKind
	Table  string
	Fields []string
	Detail string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: table=%s fields=[%s]", e.Kind, e.Table, strings.Join(e.Fields, ", "))
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error {
	switch e.Kind {
	case KindMissingColumns:
		return ErrMissingColumns
	case KindEmptyValue:
		return ErrEmptyValue
	case KindDuplicateValue:
		return ErrDuplicateValue
	default:
		return ErrInvalidInput
	}
}
