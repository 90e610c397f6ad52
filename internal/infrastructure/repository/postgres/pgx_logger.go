package postgres

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/riskibarqy/understat-loader/internal/platform/logging"
)

const maxLoggedQueryLength = 512

var queryWhitespaceRegex = regexp.MustCompile(`\s+`)

func pgxLogger(logger *logging.Logger) tracelog.Logger {
	logger = logger.With("component", "pgx")
	return tracelog.LoggerFunc(func(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
		args := pgxLogArgs(data)
		switch level {
		case tracelog.LogLevelTrace, tracelog.LogLevelDebug:
			logger.DebugContext(ctx, msg, args...)
		case tracelog.LogLevelInfo:
			logger.InfoContext(ctx, msg, args...)
		case tracelog.LogLevelWarn:
			logger.WarnContext(ctx, msg, args...)
		default:
			logger.ErrorContext(ctx, msg, args...)
		}
	})
}

// pgxLogArgs flattens tracelog data into sorted key/value pairs. COPY and
// INSERT arguments are dropped since a batch can carry thousands of values.
func pgxLogArgs(data map[string]any) []any {
	keys := make([]string, 0, len(data))
	for key := range data {
		if key == "args" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		value := data[key]
		if key == "sql" {
			if query, ok := value.(string); ok {
				value = formatQueryForLog(query)
			}
		}
		out = append(out, key, value)
	}
	return out
}

func formatQueryForLog(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	normalized := queryWhitespaceRegex.ReplaceAllString(query, " ")
	if len(normalized) <= maxLoggedQueryLength {
		return normalized
	}

	return normalized[:maxLoggedQueryLength] + "..."
}
