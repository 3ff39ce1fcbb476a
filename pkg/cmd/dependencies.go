package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	_ "github.com/lib/pq"
)

// LogEmailSender records deliveries through the logger instead of a mail
// transport. Deployments with a real provider swap in their own sender.
type LogEmailSender struct {
	logger *slog.Logger
}

func NewLogEmailSender(logger *slog.Logger) *LogEmailSender {
	return &LogEmailSender{
		logger: logger.With("module", "email_sender"),
	}
}

func (s *LogEmailSender) Send(ctx context.Context, to, subject, body, from string) error {
	s.logger.InfoContext(ctx, "Email sent",
		"to", to,
		"from", from,
		"subject", subject,
		"body_length", len(body))

	return nil
}

// SQLQueryRunner executes storage node queries. The node's connection
// string is treated as a PostgreSQL DSN; connections are opened per call
// since storage nodes may each target a different database.
type SQLQueryRunner struct {
	logger *slog.Logger
}

func NewSQLQueryRunner(logger *slog.Logger) *SQLQueryRunner {
	return &SQLQueryRunner{
		logger: logger.With("module", "query_runner"),
	}
}

func (r *SQLQueryRunner) Run(ctx context.Context, connection, query string, parameters map[string]any) (int64, error) {
	db, err := sql.Open("postgres", connection)
	if err != nil {
		return 0, fmt.Errorf("failed to open connection: %w", err)
	}

	defer func() {
		if err := db.Close(); err != nil {
			r.logger.WarnContext(ctx, "Failed to close connection", "error", err)
		}
	}()

	// Positional arguments are bound in sorted key order, so "1", "2", ...
	// keys line up with $1, $2, ... placeholders.
	keys := make([]string, 0, len(parameters))
	for key := range parameters {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	args := make([]any, 0, len(keys))
	for _, key := range keys {
		args = append(args, parameters[key])
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute query: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected, nil
}
