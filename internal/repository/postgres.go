package repository

import (
	"log/slog"

	"github.com/Masterminds/squirrel"
)

// psql はPostgreSQL向けのプレースホルダ（$1, $2, ...）を使うステートメントビルダー。
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// logQuery は組み立てたSQLをデバッグログに出力する。
func logQuery(query string, args []any) {
	slog.Debug("query", slog.String("sql", query), slog.Any("args", args))
}
