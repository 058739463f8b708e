package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/agencytime/internal/model"
)

// PostgresSummaryRepo はPostgreSQLを使用した請求集計リポジトリ。
type PostgresSummaryRepo struct {
	db *sqlx.DB
}

// NewPostgresSummaryRepo はPostgresSummaryRepoを生成する。
func NewPostgresSummaryRepo(db *sqlx.DB) *PostgresSummaryRepo {
	return &PostgresSummaryRepo{db: db}
}

// monthlySummaryQuery は顧客の終了済みエントリを開始月ごとに集計する。
// 計測中のセッションは所要時間が未確定のため含めない。
const monthlySummaryQuery = `
	SELECT
		DATE_TRUNC('month', t.start_time) AS month,
		SUM(t.duration_hours + t.duration_minutes / 60.0) AS total_hours,
		c.hourly_fee
	FROM time_tracking t
	JOIN customers c ON t.customer_id = c.id
	WHERE t.customer_id = $1
		AND t.end_time IS NOT NULL
		AND t.duration_hours IS NOT NULL
		AND t.duration_minutes IS NOT NULL
	GROUP BY month, c.hourly_fee
	ORDER BY month DESC`

// MonthlyByCustomer は顧客の終了済みエントリを月単位に集計し、新しい月から返す。
func (r *PostgresSummaryRepo) MonthlyByCustomer(ctx context.Context, customerID int64) ([]model.MonthlySummary, error) {
	rows := []model.MonthlySummary{}
	if err := r.db.SelectContext(ctx, &rows, monthlySummaryQuery, customerID); err != nil {
		return nil, fmt.Errorf("failed to aggregate monthly summary: %w", err)
	}
	return rows, nil
}
