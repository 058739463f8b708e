package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/agencytime/internal/database"
	"github.com/hitoshi/agencytime/internal/model"
	"github.com/hitoshi/agencytime/internal/visibility"
)

var timeEntryColumns = []string{
	"id", "user_id", "customer_id", "project_id", "task_id",
	"start_time", "end_time", "duration_hours", "duration_minutes", "note",
}

var timeEntryDetailColumns = []string{
	"t.id", "t.user_id", "t.customer_id", "t.project_id", "t.task_id",
	"t.start_time", "t.end_time", "t.duration_hours", "t.duration_minutes", "t.note",
	"u.username",
	"c.name AS customer_name",
	"c.billing_type",
	"p.name AS project_name",
	"tk.name AS task_name",
}

// PostgresTimeEntryRepo はPostgreSQLを使用した時間エントリリポジトリ。
type PostgresTimeEntryRepo struct {
	db *sqlx.DB
}

// NewPostgresTimeEntryRepo はPostgresTimeEntryRepoを生成する。
func NewPostgresTimeEntryRepo(db *sqlx.DB) *PostgresTimeEntryRepo {
	return &PostgresTimeEntryRepo{db: db}
}

// returning は書き込み系クエリで行全体を返すためのサフィックス。
func returning() string {
	return "RETURNING " + strings.Join(timeEntryColumns, ", ")
}

// Create はエントリを作成する。計測中セッションの重複はErrOpenSessionExistsを返す。
func (r *PostgresTimeEntryRepo) Create(ctx context.Context, entry *model.TimeEntry) error {
	query, args, err := psql.
		Insert("time_tracking").
		Columns("user_id", "customer_id", "project_id", "task_id",
			"start_time", "end_time", "duration_hours", "duration_minutes", "note").
		Values(entry.UserID, entry.CustomerID, entry.ProjectID, entry.TaskID,
			entry.StartTime, entry.EndTime, entry.DurationHours, entry.DurationMinutes, entry.Note).
		Suffix(returning()).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}
	logQuery(query, args)

	var created model.TimeEntry
	if err := r.db.GetContext(ctx, &created, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrOpenSessionExists
		}
		return fmt.Errorf("failed to insert time entry: %w", err)
	}

	*entry = created
	return nil
}

// selectOpen は計測中セッション取得のクエリを組み立てる。
func selectOpen(scope visibility.Scope) squirrel.SelectBuilder {
	return psql.
		Select(timeEntryColumns...).
		From("time_tracking").
		Where(squirrel.Eq{"end_time": nil}).
		Where(scope.Predicate("user_id")).
		OrderBy("start_time DESC").
		Limit(1)
}

// FindOpen はScope内で最も新しい計測中セッションを取得する。見つからない場合はnilを返す。
func (r *PostgresTimeEntryRepo) FindOpen(ctx context.Context, scope visibility.Scope) (*model.TimeEntry, error) {
	return r.getOne(ctx, selectOpen(scope), "find open session")
}

// FindByID は指定IDのエントリを取得する。見つからない場合はnilを返す。
func (r *PostgresTimeEntryRepo) FindByID(ctx context.Context, id int64, scope visibility.Scope) (*model.TimeEntry, error) {
	q := psql.
		Select(timeEntryColumns...).
		From("time_tracking").
		Where(squirrel.Eq{"id": id}).
		Where(scope.Predicate("user_id"))
	return r.getOne(ctx, q, "find time entry")
}

// closeQuery は計測中セッション終了のクエリを組み立てる。
// end_time IS NULL を条件に含めるため、同時に2回終了しても後続は0行になる。
func closeQuery(id, userID int64, p CloseParams) squirrel.UpdateBuilder {
	return psql.
		Update("time_tracking").
		SetMap(map[string]any{
			"end_time":         p.EndTime,
			"customer_id":      p.CustomerID,
			"project_id":       p.ProjectID,
			"task_id":          p.TaskID,
			"duration_hours":   p.DurationHours,
			"duration_minutes": p.DurationMinutes,
		}).
		Where(squirrel.Eq{"id": id, "user_id": userID, "end_time": nil}).
		Suffix(returning())
}

// Close は指定ユーザーの計測中セッションを終了する。対象がない場合はnilを返す。
func (r *PostgresTimeEntryRepo) Close(ctx context.Context, id, userID int64, params CloseParams) (*model.TimeEntry, error) {
	return r.getOne(ctx, closeQuery(id, userID, params), "close session")
}

// updateQuery は終了済みエントリ更新のクエリを組み立てる。
func updateQuery(id int64, scope visibility.Scope, f EntryFields) squirrel.UpdateBuilder {
	return psql.
		Update("time_tracking").
		SetMap(map[string]any{
			"customer_id":      f.CustomerID,
			"project_id":       f.ProjectID,
			"task_id":          f.TaskID,
			"start_time":       f.StartTime,
			"end_time":         f.EndTime,
			"duration_hours":   f.DurationHours,
			"duration_minutes": f.DurationMinutes,
			"note":             f.Note,
		}).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.NotEq{"end_time": nil}).
		Where(scope.Predicate("user_id")).
		Suffix(returning())
}

// Update は終了済みエントリを上書きする。対象がない場合はnilを返す。
func (r *PostgresTimeEntryRepo) Update(ctx context.Context, id int64, scope visibility.Scope, fields EntryFields) (*model.TimeEntry, error) {
	return r.getOne(ctx, updateQuery(id, scope, fields), "update time entry")
}

// Delete はエントリを削除し、削除した行を返す。対象がない場合はnilを返す。
func (r *PostgresTimeEntryRepo) Delete(ctx context.Context, id int64, scope visibility.Scope) (*model.TimeEntry, error) {
	q := psql.
		Delete("time_tracking").
		Where(squirrel.Eq{"id": id}).
		Where(scope.Predicate("user_id")).
		Suffix(returning())
	return r.getOne(ctx, q, "delete time entry")
}

// selectDetailed は関連名称付きエントリ取得のクエリを組み立てる。
// 計測中セッションは顧客等が未設定のため外部結合にする。
func selectDetailed(scope visibility.Scope) squirrel.SelectBuilder {
	return psql.
		Select(timeEntryDetailColumns...).
		From("time_tracking t").
		Join("users u ON t.user_id = u.id").
		LeftJoin("customers c ON t.customer_id = c.id").
		LeftJoin("projects p ON t.project_id = p.id").
		LeftJoin("tasks tk ON t.task_id = tk.id").
		Where(scope.Predicate("t.user_id")).
		OrderBy("t.start_time DESC")
}

// ListDetailed はScope内のエントリを関連名称付きで返す。
func (r *PostgresTimeEntryRepo) ListDetailed(ctx context.Context, scope visibility.Scope) ([]model.TimeEntryDetail, error) {
	return r.selectDetails(ctx, selectDetailed(scope), "list time entries")
}

// ListOpen はScope内の計測中セッションを関連名称付きで返す。
func (r *PostgresTimeEntryRepo) ListOpen(ctx context.Context, scope visibility.Scope) ([]model.TimeEntryDetail, error) {
	q := selectDetailed(scope).Where(squirrel.Eq{"t.end_time": nil})
	return r.selectDetails(ctx, q, "list open sessions")
}

// ListOpenStartedBefore はcutoffより前に開始した計測中セッションを返す。
func (r *PostgresTimeEntryRepo) ListOpenStartedBefore(ctx context.Context, cutoff time.Time) ([]model.TimeEntryDetail, error) {
	q := selectDetailed(visibility.All()).
		Where(squirrel.Eq{"t.end_time": nil}).
		Where(squirrel.Lt{"t.start_time": cutoff})
	return r.selectDetails(ctx, q, "list stale sessions")
}

// ListByUser は指定ユーザーのエントリを開始時刻の降順に返す。
func (r *PostgresTimeEntryRepo) ListByUser(ctx context.Context, userID int64) ([]model.TimeEntry, error) {
	query, args, err := psql.
		Select(timeEntryColumns...).
		From("time_tracking").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("start_time DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	logQuery(query, args)

	entries := []model.TimeEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list entries by user: %w", err)
	}
	return entries, nil
}

// getOne は1行を返すクエリを実行する。行がない場合はnilを返す。
func (r *PostgresTimeEntryRepo) getOne(ctx context.Context, q squirrel.Sqlizer, op string) (*model.TimeEntry, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s query: %w", op, err)
	}
	logQuery(query, args)

	var entry model.TimeEntry
	if err := r.db.GetContext(ctx, &entry, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return &entry, nil
}

func (r *PostgresTimeEntryRepo) selectDetails(ctx context.Context, q squirrel.SelectBuilder, op string) ([]model.TimeEntryDetail, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s query: %w", op, err)
	}
	logQuery(query, args)

	details := []model.TimeEntryDetail{}
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return details, nil
}
