package model

import "time"

// TimeEntry は作業時間の記録を表す。
// EndTimeがnilの間は計測中セッション（オープン）として扱う。
type TimeEntry struct {
	ID              int64      `db:"id"`
	UserID          int64      `db:"user_id"`
	CustomerID      *int64     `db:"customer_id"`
	ProjectID       *int64     `db:"project_id"`
	TaskID          *int64     `db:"task_id"`
	StartTime       time.Time  `db:"start_time"`
	EndTime         *time.Time `db:"end_time"`
	DurationHours   *int       `db:"duration_hours"`
	DurationMinutes *int       `db:"duration_minutes"`
	Note            *string    `db:"note"`
}

// IsOpen は計測中かどうかを返す。
func (e *TimeEntry) IsOpen() bool {
	return e.EndTime == nil
}

// TimeEntryDetail は一覧表示用に関連名称を付加したエントリ。
type TimeEntryDetail struct {
	TimeEntry
	Username     *string `db:"username"`
	CustomerName *string `db:"customer_name"`
	BillingType  *string `db:"billing_type"`
	ProjectName  *string `db:"project_name"`
	TaskName     *string `db:"task_name"`
}

// MonthlySummary は顧客ごとの月次集計行を表す。
type MonthlySummary struct {
	Month      time.Time `db:"month"`
	TotalHours float64   `db:"total_hours"`
	HourlyFee  float64   `db:"hourly_fee"`
	TotalCost  float64   `db:"-"`
}
