package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/agencytime/internal/database"
	"github.com/hitoshi/agencytime/internal/model"
)

// PostgresProjectRepo はPostgreSQLを使用したプロジェクトリポジトリ。
type PostgresProjectRepo struct {
	db *sqlx.DB
}

// NewPostgresProjectRepo はPostgresProjectRepoを生成する。
func NewPostgresProjectRepo(db *sqlx.DB) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: db}
}

// List は全プロジェクトを名前順に返す。
func (r *PostgresProjectRepo) List(ctx context.Context) ([]model.Project, error) {
	projects := []model.Project{}
	if err := listNamed(ctx, r.db, "projects", &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// FindByID は指定IDのプロジェクトを取得する。
func (r *PostgresProjectRepo) FindByID(ctx context.Context, id int64) (*model.Project, error) {
	var p model.Project
	found, err := getNamed(ctx, r.db, selectNamedByID("projects", id), "find project", &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// Create はプロジェクトを作成する。
func (r *PostgresProjectRepo) Create(ctx context.Context, name string) (*model.Project, error) {
	var p model.Project
	if err := createNamed(ctx, r.db, "projects", name, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update はプロジェクト名を変更する。
func (r *PostgresProjectRepo) Update(ctx context.Context, id int64, name string) (*model.Project, error) {
	var p model.Project
	found, err := getNamed(ctx, r.db, updateNamedQuery("projects", id, name), "update project", &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// Delete はプロジェクトを削除する。
func (r *PostgresProjectRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteNamed(ctx, r.db, "projects", id)
}

// PostgresTaskRepo はPostgreSQLを使用したタスク種別リポジトリ。
type PostgresTaskRepo struct {
	db *sqlx.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sqlx.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

// List は全タスク種別を名前順に返す。
func (r *PostgresTaskRepo) List(ctx context.Context) ([]model.Task, error) {
	tasks := []model.Task{}
	if err := listNamed(ctx, r.db, "tasks", &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// FindByID は指定IDのタスク種別を取得する。
func (r *PostgresTaskRepo) FindByID(ctx context.Context, id int64) (*model.Task, error) {
	var t model.Task
	found, err := getNamed(ctx, r.db, selectNamedByID("tasks", id), "find task", &t)
	if err != nil || !found {
		return nil, err
	}
	return &t, nil
}

// Create はタスク種別を作成する。
func (r *PostgresTaskRepo) Create(ctx context.Context, name string) (*model.Task, error) {
	var t model.Task
	if err := createNamed(ctx, r.db, "tasks", name, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Update はタスク種別名を変更する。
func (r *PostgresTaskRepo) Update(ctx context.Context, id int64, name string) (*model.Task, error) {
	var t model.Task
	found, err := getNamed(ctx, r.db, updateNamedQuery("tasks", id, name), "update task", &t)
	if err != nil || !found {
		return nil, err
	}
	return &t, nil
}

// Delete はタスク種別を削除する。
func (r *PostgresTaskRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteNamed(ctx, r.db, "tasks", id)
}

// PostgresUserRepo はPostgreSQLを使用したユーザー参照リポジトリ。
type PostgresUserRepo struct {
	db *sqlx.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sqlx.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// List は全ユーザーをユーザー名順に返す。
func (r *PostgresUserRepo) List(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	err := r.db.SelectContext(ctx, &users,
		`SELECT id, username, email, role, created_at FROM users ORDER BY username ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// 以下はid・name・created_atのみを持つテーブル（projects, tasks）の共通処理。

var namedColumns = []string{"id", "name", "created_at"}

const namedReturning = "RETURNING id, name, created_at"

func listNamed(ctx context.Context, db *sqlx.DB, table string, dest any) error {
	query, args, err := psql.Select(namedColumns...).From(table).OrderBy("name ASC", "id ASC").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	logQuery(query, args)

	if err := db.SelectContext(ctx, dest, query, args...); err != nil {
		return fmt.Errorf("failed to list %s: %w", table, err)
	}
	return nil
}

func selectNamedByID(table string, id int64) squirrel.SelectBuilder {
	return psql.Select(namedColumns...).From(table).Where(squirrel.Eq{"id": id})
}

func updateNamedQuery(table string, id int64, name string) squirrel.UpdateBuilder {
	return psql.Update(table).Set("name", name).Where(squirrel.Eq{"id": id}).Suffix(namedReturning)
}

func deleteNamedQuery(table string, id int64) squirrel.DeleteBuilder {
	return psql.Delete(table).Where(squirrel.Eq{"id": id})
}

// getNamed は1行を取得する。該当行がない場合はfalseを返し、名前の一意制約違反はErrDuplicateNameに変換する。
func getNamed(ctx context.Context, db *sqlx.DB, q squirrel.Sqlizer, op string, dest any) (bool, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build query: %w", err)
	}
	logQuery(query, args)

	if err := db.GetContext(ctx, dest, query, args...); err != nil {
		if database.IsNoRows(err) {
			return false, nil
		}
		if database.IsUniqueViolation(err) {
			return false, ErrDuplicateName
		}
		return false, fmt.Errorf("failed to %s: %w", op, err)
	}
	return true, nil
}

func createNamed(ctx context.Context, db *sqlx.DB, table, name string, dest any) error {
	query, args, err := psql.
		Insert(table).
		Columns("name").
		Values(name).
		Suffix(namedReturning).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}
	logQuery(query, args)

	if err := db.GetContext(ctx, dest, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

// deleteNamed は行を削除する。time_trackingの外部キーはON DELETE RESTRICTのため、
// 参照されている行の削除はErrInUseになる。
func deleteNamed(ctx context.Context, db *sqlx.DB, table string, id int64) (bool, error) {
	query, args, err := deleteNamedQuery(table, id).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build delete query: %w", err)
	}
	logQuery(query, args)

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return false, ErrInUse
		}
		return false, fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}
