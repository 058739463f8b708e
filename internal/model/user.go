package model

import "time"

// User はユーザーを表す。ユーザー自体の登録・認証情報は外部のIDサービスが管理する。
type User struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	Email     string    `db:"email"`
	Role      Role      `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

// Customer は請求先の顧客を表す。
type Customer struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	HourlyFee   float64   `db:"hourly_fee"`
	BillingType *string   `db:"billing_type"`
	InvoiceType *string   `db:"invoice_type"`
	TaxNumber   *string   `db:"tax_number"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// CustomerRef は割り当て一覧などで使う顧客の最小表現。
type CustomerRef struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Project はプロジェクトを表す。
type Project struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// Task はタスク種別を表す。
type Task struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}
