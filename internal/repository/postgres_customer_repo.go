package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/agencytime/internal/database"
	"github.com/hitoshi/agencytime/internal/model"
)

var customerColumns = []string{
	"id", "name", "hourly_fee", "billing_type", "invoice_type", "tax_number", "created_at", "updated_at",
}

// PostgresCustomerRepo はPostgreSQLを使用した顧客リポジトリ。
type PostgresCustomerRepo struct {
	db *sqlx.DB
}

// NewPostgresCustomerRepo はPostgresCustomerRepoを生成する。
func NewPostgresCustomerRepo(db *sqlx.DB) *PostgresCustomerRepo {
	return &PostgresCustomerRepo{db: db}
}

// List は全顧客を名前順に返す。
func (r *PostgresCustomerRepo) List(ctx context.Context) ([]model.Customer, error) {
	query, args, err := psql.Select(customerColumns...).From("customers").OrderBy("name ASC", "id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	logQuery(query, args)

	customers := []model.Customer{}
	if err := r.db.SelectContext(ctx, &customers, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

// FindByID は指定IDの顧客を取得する。見つからない場合はnilを返す。
func (r *PostgresCustomerRepo) FindByID(ctx context.Context, id int64) (*model.Customer, error) {
	q := psql.Select(customerColumns...).From("customers").Where(squirrel.Eq{"id": id})
	return r.getOne(ctx, q, "find customer")
}

// Create は顧客を作成する。
func (r *PostgresCustomerRepo) Create(ctx context.Context, customer *model.Customer) error {
	q := psql.
		Insert("customers").
		Columns("name", "hourly_fee", "billing_type", "invoice_type", "tax_number").
		Values(customer.Name, customer.HourlyFee, customer.BillingType, customer.InvoiceType, customer.TaxNumber).
		Suffix("RETURNING id, name, hourly_fee, billing_type, invoice_type, tax_number, created_at, updated_at")

	created, err := r.getOne(ctx, q, "create customer")
	if err != nil {
		return err
	}
	*customer = *created
	return nil
}

// Update は顧客情報を更新する。見つからない場合はnilを返す。
func (r *PostgresCustomerRepo) Update(ctx context.Context, customer *model.Customer) (*model.Customer, error) {
	q := psql.
		Update("customers").
		SetMap(map[string]any{
			"name":         customer.Name,
			"hourly_fee":   customer.HourlyFee,
			"billing_type": customer.BillingType,
			"invoice_type": customer.InvoiceType,
			"tax_number":   customer.TaxNumber,
			"updated_at":   squirrel.Expr("NOW()"),
		}).
		Where(squirrel.Eq{"id": customer.ID}).
		Suffix("RETURNING id, name, hourly_fee, billing_type, invoice_type, tax_number, created_at, updated_at")
	return r.getOne(ctx, q, "update customer")
}

func (r *PostgresCustomerRepo) getOne(ctx context.Context, q squirrel.Sqlizer, op string) (*model.Customer, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s query: %w", op, err)
	}
	logQuery(query, args)

	var c model.Customer
	if err := r.db.GetContext(ctx, &c, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return &c, nil
}
