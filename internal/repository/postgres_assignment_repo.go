package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/agencytime/internal/database"
	"github.com/hitoshi/agencytime/internal/model"
	"github.com/hitoshi/agencytime/internal/visibility"
)

// PostgresAssignmentRepo はPostgreSQLを使用した顧客割り当てリポジトリ。
type PostgresAssignmentRepo struct {
	db *sqlx.DB
}

// NewPostgresAssignmentRepo はPostgresAssignmentRepoを生成する。
func NewPostgresAssignmentRepo(db *sqlx.DB) *PostgresAssignmentRepo {
	return &PostgresAssignmentRepo{db: db}
}

// Assign は割り当てを作成する。既に存在する場合は何もしない。
func (r *PostgresAssignmentRepo) Assign(ctx context.Context, customerID, userID int64) error {
	query, args, err := psql.
		Insert("customer_users").
		Columns("customer_id", "user_id").
		Values(customerID, userID).
		Suffix("ON CONFLICT (customer_id, user_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build assign query: %w", err)
	}
	logQuery(query, args)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrReferenceNotFound
		}
		return fmt.Errorf("failed to assign customer: %w", err)
	}
	return nil
}

// Unassign は割り当てを削除し、削除した行があったかを返す。
func (r *PostgresAssignmentRepo) Unassign(ctx context.Context, customerID, userID int64) (bool, error) {
	query, args, err := psql.
		Delete("customer_users").
		Where(squirrel.Eq{"customer_id": customerID, "user_id": userID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build unassign query: %w", err)
	}
	logQuery(query, args)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to unassign customer: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// Exists は割り当てが存在するかを返す。
func (r *PostgresAssignmentRepo) Exists(ctx context.Context, userID, customerID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM customer_users WHERE user_id = $1 AND customer_id = $2)`,
		userID, customerID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to check assignment: %w", err)
	}
	return exists, nil
}

// listCustomersQuery は割り当て顧客一覧のクエリを組み立てる。
func listCustomersQuery(scope visibility.Scope) squirrel.SelectBuilder {
	q := psql.
		Select("c.id", "c.name").
		From("customers c").
		OrderBy("c.name ASC", "c.id ASC")
	if userID, ok := scope.UserID(); ok {
		q = q.Join("customer_users cu ON c.id = cu.customer_id").
			Where(squirrel.Eq{"cu.user_id": userID})
	}
	return q
}

// ListCustomers はScope内のユーザーに割り当てられた顧客を名前順に返す。
func (r *PostgresAssignmentRepo) ListCustomers(ctx context.Context, scope visibility.Scope) ([]model.CustomerRef, error) {
	query, args, err := listCustomersQuery(scope).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	logQuery(query, args)

	customers := []model.CustomerRef{}
	if err := r.db.SelectContext(ctx, &customers, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list assigned customers: %w", err)
	}
	return customers, nil
}

// ListUsers は顧客に割り当てられたユーザーを返す。
func (r *PostgresAssignmentRepo) ListUsers(ctx context.Context, customerID int64) ([]model.User, error) {
	users := []model.User{}
	err := r.db.SelectContext(ctx, &users,
		`SELECT u.id, u.username, u.email, u.role, u.created_at
		 FROM customer_users cu
		 JOIN users u ON cu.user_id = u.id
		 WHERE cu.customer_id = $1
		 ORDER BY u.username ASC`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users for customer: %w", err)
	}
	return users, nil
}
