package usecase

import (
	"context"
	"fmt"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/understat-loader/internal/domain/record"
	"github.com/riskibarqy/understat-loader/internal/domain/tablerule"
	"github.com/riskibarqy/understat-loader/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

// LoaderService validates a batch against a table rule and appends it to the sink.
type LoaderService struct {
	sink   record.Sink
	logger *logging.Logger
}

func NewLoaderService(sink record.Sink, logger *logging.Logger) *LoaderService {
	if logger == nil {
		logger = logging.Default()
	}
	return &LoaderService{
		sink:   sink,
		logger: logger.With("component", "loader"),
	}
}

// ValidateAndInsert runs the rule's checks in order (projection, presence,
// non-empty, uniqueness) and stops at the first violation. Nothing is written
// unless every check passes. Only the rule's required columns are written,
// in record order. A batch with the required fields but no records writes nothing.
func (s *LoaderService) ValidateAndInsert(ctx context.Context, batch *record.Batch, rule tablerule.Rule) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.LoaderService.ValidateAndInsert")
	defer span.End()

	if batch == nil {
		return fmt.Errorf("%w: batch is required", ErrInvalidInput)
	}
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	span.SetAttributes(
		attribute.String("loader.rule", rule.Name),
		attribute.String("loader.table", rule.Table),
		attribute.Int("loader.records", batch.Len()),
	)

	if rule.Project {
		batch = batch.Project(rule.Required)
	}

	if err := checkPresence(batch, rule); err != nil {
		return err
	}
	if batch.Len() == 0 {
		s.logger.DebugContext(ctx, "empty batch, nothing to insert", "rule", rule.Name, "table", rule.Table)
		return nil
	}
	if err := checkNonEmpty(batch, rule); err != nil {
		return err
	}
	if err := checkUnique(batch, rule); err != nil {
		return err
	}

	out := batch.Project(rule.Required)
	written, err := s.sink.Append(ctx, rule.Table, out.Fields(), out.Rows())
	if err != nil {
		span.RecordError(err)
		return crerr.Wrapf(err, "append %d rows to %s", out.Len(), rule.Table)
	}
	if written != int64(out.Len()) {
		return crerr.Newf("append to %s wrote %d of %d rows", rule.Table, written, out.Len())
	}

	s.logger.InfoContext(ctx, "batch inserted",
		"rule", rule.Name,
		"table", rule.Table,
		"rows", written,
		"columns", len(out.Fields()),
	)
	return nil
}

func checkPresence(batch *record.Batch, rule tablerule.Rule) error {
	missing := batch.MissingFields(rule.Required)
	if len(missing) == 0 {
		return nil
	}
	return &ValidationError{
		Kind:   KindMissingColumns,
		Table:  rule.Table,
		Fields: append([]string(nil), rule.Required...),
		Detail: "batch lacks " + strings.Join(missing, ", "),
	}
}

func checkNonEmpty(batch *record.Batch, rule tablerule.Rule) error {
	for _, field := range rule.NonEmpty {
		for idx, rec := range batch.Records() {
			value, ok := rec[field].(string)
			if ok && len(value) >= 1 {
				continue
			}
			detail := fmt.Sprintf("record %d has an empty string", idx)
			if !ok {
				detail = fmt.Sprintf("record %d holds %T, want non-empty string", idx, rec[field])
			}
			return &ValidationError{
				Kind:   KindEmptyValue,
				Table:  rule.Table,
				Fields: []string{field},
				Detail: detail,
			}
		}
	}
	return nil
}

func checkUnique(batch *record.Batch, rule tablerule.Rule) error {
	for _, group := range rule.Unique {
		seen := make(map[string]int, batch.Len())
		for idx, rec := range batch.Records() {
			key := uniqueKey(rec, group)
			if first, exists := seen[key]; exists {
				return &ValidationError{
					Kind:   KindDuplicateValue,
					Table:  rule.Table,
					Fields: append([]string(nil), group...),
					Detail: fmt.Sprintf("value %s repeats at records %d and %d", displayValues(rec, group), first, idx),
				}
			}
			seen[key] = idx
		}
	}
	return nil
}

// uniqueKey renders each value as a typed Go literal. Strings are quoted and
// escaped, so no value can spill into its neighbour.
func uniqueKey(rec record.Record, fields []string) string {
	var b strings.Builder
	for i, field := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%T(%#v)", rec[field], rec[field])
	}
	return b.String()
}

func displayValues(rec record.Record, fields []string) string {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", field, rec[field]))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
