// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/agencytime/internal/model"
	"github.com/hitoshi/agencytime/internal/visibility"
)

// ErrOpenSessionExists はユーザーの計測中セッションが既に存在する場合に返される。
// 部分一意インデックス time_tracking_one_open_per_user の違反を表す。
var ErrOpenSessionExists = errors.New("open session already exists")

// ErrReferenceNotFound は参照先（顧客・ユーザー等）が存在しない場合に返される。
var ErrReferenceNotFound = errors.New("referenced row not found")

// ErrDuplicateName は同名のプロジェクト・タスク種別が既に存在する場合に返される。
var ErrDuplicateName = errors.New("name already exists")

// ErrInUse は削除対象が作業記録から参照されている場合に返される。
var ErrInUse = errors.New("row is referenced by time entries")

// CloseParams は計測中セッションを終了する際に書き込む値。
type CloseParams struct {
	EndTime         time.Time
	CustomerID      int64
	ProjectID       int64
	TaskID          int64
	DurationHours   int
	DurationMinutes int
}

// EntryFields は終了済みエントリを上書きする値。
type EntryFields struct {
	CustomerID      int64
	ProjectID       int64
	TaskID          int64
	StartTime       time.Time
	EndTime         time.Time
	DurationHours   int
	DurationMinutes int
	Note            *string
}

// TimeEntryRepository は時間エントリの永続化インターフェース。
// Scopeを受け取るメソッドはScopeの範囲外の行を存在しないものとして扱う。
type TimeEntryRepository interface {
	// Create はエントリを作成し、採番されたIDを含む行でentryを上書きする。
	// 計測中セッションの重複はErrOpenSessionExistsを返す。
	Create(ctx context.Context, entry *model.TimeEntry) error

	// FindOpen はScope内で最も新しい計測中セッションを取得する。見つからない場合はnilを返す。
	FindOpen(ctx context.Context, scope visibility.Scope) (*model.TimeEntry, error)

	// FindByID は指定IDのエントリを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64, scope visibility.Scope) (*model.TimeEntry, error)

	// Close は指定ユーザーの計測中セッションを終了する。
	// 対象がすでに終了済み、または存在しない場合はnilを返す。
	Close(ctx context.Context, id, userID int64, params CloseParams) (*model.TimeEntry, error)

	// Update は終了済みエントリを上書きする。対象がない場合はnilを返す。
	Update(ctx context.Context, id int64, scope visibility.Scope, fields EntryFields) (*model.TimeEntry, error)

	// Delete はエントリを削除し、削除した行を返す。対象がない場合はnilを返す。
	Delete(ctx context.Context, id int64, scope visibility.Scope) (*model.TimeEntry, error)

	// ListDetailed はScope内のエントリを関連名称付きで開始時刻の降順に返す。
	ListDetailed(ctx context.Context, scope visibility.Scope) ([]model.TimeEntryDetail, error)

	// ListOpen はScope内の計測中セッションを関連名称付きで返す。
	ListOpen(ctx context.Context, scope visibility.Scope) ([]model.TimeEntryDetail, error)

	// ListByUser は指定ユーザーのエントリを開始時刻の降順に返す。
	ListByUser(ctx context.Context, userID int64) ([]model.TimeEntry, error)

	// ListOpenStartedBefore はcutoffより前に開始した計測中セッションを返す。
	ListOpenStartedBefore(ctx context.Context, cutoff time.Time) ([]model.TimeEntryDetail, error)
}

// AssignmentRepository はユーザーと顧客の割り当ての永続化インターフェース。
type AssignmentRepository interface {
	// Assign は割り当てを作成する。既に存在する場合は何もしない。
	// 顧客またはユーザーが存在しない場合はErrReferenceNotFoundを返す。
	Assign(ctx context.Context, customerID, userID int64) error

	// Unassign は割り当てを削除し、削除した行があったかを返す。
	Unassign(ctx context.Context, customerID, userID int64) (bool, error)

	// Exists は割り当てが存在するかを返す。
	Exists(ctx context.Context, userID, customerID int64) (bool, error)

	// ListCustomers はScope内のユーザーに割り当てられた顧客を名前順に返す。
	// 全件Scopeの場合は全顧客を返す。
	ListCustomers(ctx context.Context, scope visibility.Scope) ([]model.CustomerRef, error)

	// ListUsers は顧客に割り当てられたユーザーを返す。
	ListUsers(ctx context.Context, customerID int64) ([]model.User, error)
}

// SummaryRepository は請求集計のインターフェース。
type SummaryRepository interface {
	// MonthlyByCustomer は顧客の終了済みエントリを月単位に集計し、新しい月から返す。
	MonthlyByCustomer(ctx context.Context, customerID int64) ([]model.MonthlySummary, error)
}

// CustomerRepository は顧客データの永続化インターフェース。
type CustomerRepository interface {
	// List は全顧客を名前順に返す。
	List(ctx context.Context) ([]model.Customer, error)
	// FindByID は指定IDの顧客を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Customer, error)
	// Create は顧客を作成し、採番されたIDとタイムスタンプでcustomerを上書きする。
	Create(ctx context.Context, customer *model.Customer) error
	// Update は顧客情報を更新する。見つからない場合はnilを返す。
	Update(ctx context.Context, customer *model.Customer) (*model.Customer, error)
}

// ProjectRepository はプロジェクトの永続化インターフェース。
type ProjectRepository interface {
	List(ctx context.Context) ([]model.Project, error)
	// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Project, error)
	// Create は名前が重複する場合ErrDuplicateNameを返す。
	Create(ctx context.Context, name string) (*model.Project, error)
	// Update は名前を変更する。見つからない場合はnil、重複する場合はErrDuplicateNameを返す。
	Update(ctx context.Context, id int64, name string) (*model.Project, error)
	// Delete は削除した場合trueを返す。作業記録から参照されている場合はErrInUseを返す。
	Delete(ctx context.Context, id int64) (bool, error)
}

// TaskRepository はタスク種別の永続化インターフェース。
// 各メソッドの契約はProjectRepositoryと同じ。
type TaskRepository interface {
	List(ctx context.Context) ([]model.Task, error)
	FindByID(ctx context.Context, id int64) (*model.Task, error)
	Create(ctx context.Context, name string) (*model.Task, error)
	Update(ctx context.Context, id int64, name string) (*model.Task, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// UserRepository はユーザー参照のインターフェース。
// ユーザーの作成・削除は外部のIDサービスが行う。
type UserRepository interface {
	List(ctx context.Context) ([]model.User, error)
}
