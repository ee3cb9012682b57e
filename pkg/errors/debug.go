package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// LogFields flattens err for a structured log line: the message, the code,
// every link of the chain, and the driver details of a Postgres (pgx or
// lib/pq) or SQLite failure when one is buried in the chain.
func LogFields(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}

	var chain []string
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T: %v", e, e))
	}
	fields := map[string]any{
		"error":       err.Error(),
		"error_chain": chain,
	}
	if typed := As(err); typed != nil {
		fields["error_code"] = typed.code
	}

	var (
		pgxErr  *pgconn.PgError
		pqErr   *pq.Error
		liteErr sqlite3.Error
	)
	switch {
	case stdErrors.As(err, &pgxErr):
		addPG(fields, pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName, pgxErr.ColumnName, pgxErr.Detail)
	case stdErrors.As(err, &pqErr):
		addPG(fields, string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Column, pqErr.Detail)
	case stdErrors.As(err, &liteErr):
		fields["sqlite_code"] = int(liteErr.Code)
		fields["sqlite_extended_code"] = int(liteErr.ExtendedCode)
	}
	return fields
}

func addPG(fields map[string]any, code, constraint, table, column, detail string) {
	fields["pg_code"] = code
	for key, value := range map[string]string{
		"pg_constraint": constraint,
		"pg_table":      table,
		"pg_column":     column,
		"pg_detail":     detail,
	} {
		if value != "" {
			fields[key] = value
		}
	}
}
