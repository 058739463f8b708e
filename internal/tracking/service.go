// Package tracking は作業時間の計測・記録を扱うドメインロジックを提供する。
//
// ユーザーごとに計測中セッションは高々1件であり、その保証の最終的な担い手は
// time_tracking テーブルの部分一意インデックスである。サービス層の事前チェックは
// 利用者に分かりやすいエラーを返すためのもの。
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/agencytime/internal/metrics"
	"github.com/hitoshi/agencytime/internal/model"
	"github.com/hitoshi/agencytime/internal/repository"
	"github.com/hitoshi/agencytime/internal/security"
	"github.com/hitoshi/agencytime/internal/visibility"
)

// AssignmentRegistry は顧客割り当ての参照に必要なインターフェース。
type AssignmentRegistry interface {
	IsAssigned(ctx context.Context, userID, customerID int64) (bool, error)
	CustomersFor(ctx context.Context, scope visibility.Scope) ([]model.CustomerRef, error)
}

// Service は時間計測のサービス層。
type Service struct {
	entries     repository.TimeEntryRepository
	assignments AssignmentRegistry
	sanitizer   security.NoteSanitizer
	metrics     metrics.MetricsCollector
	validate    *validator.Validate

	// Now は現在時刻を返す。テストで差し替える。
	Now func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewService(
	entries repository.TimeEntryRepository,
	assignments AssignmentRegistry,
	sanitizer security.NoteSanitizer,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		entries:     entries,
		assignments: assignments,
		sanitizer:   sanitizer,
		metrics:     collector,
		validate:    newValidator(),
		Now:         time.Now,
	}
}

// StartSession はユーザーの計測中セッションを開始する。
// 既に計測中のセッションがある場合はConflictErrorを返す。
func (s *Service) StartSession(ctx context.Context, userID int64, note *string) (*model.TimeEntry, error) {
	open, err := s.entries.FindOpen(ctx, visibility.Own(userID))
	if err != nil {
		return nil, model.NewStorageError(fmt.Errorf("計測中セッションの確認に失敗しました: %w", err))
	}
	if open != nil {
		return nil, model.NewActiveSessionExistsError()
	}

	entry := &model.TimeEntry{
		UserID:    userID,
		StartTime: s.Now().UTC(),
		Note:      s.cleanNote(note),
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		// 事前チェックと挿入の間に別リクエストが開始した場合は一意制約で弾かれる
		if errors.Is(err, repository.ErrOpenSessionExists) {
			return nil, model.NewActiveSessionExistsError()
		}
		return nil, model.NewStorageError(fmt.Errorf("セッションの開始に失敗しました: %w", err))
	}

	s.metrics.RecordSessionStarted()
	slog.Info("session started",
		slog.Int64("user_id", userID),
		slog.Int64("entry_id", entry.ID),
	)
	return entry, nil
}

// StopSession は計測中セッションを終了し、経過時間と顧客・プロジェクト・タスクを記録する。
// 顧客の割り当てチェックは書き込み前に行う。
func (s *Service) StopSession(ctx context.Context, userID int64, in StopInput) (*model.TimeEntry, error) {
	if err := validateInput(s.validate, in, msgAllFieldsRequired); err != nil {
		return nil, err
	}

	open, err := s.entries.FindOpen(ctx, visibility.Own(userID))
	if err != nil {
		return nil, model.NewStorageError(fmt.Errorf("計測中セッションの取得に失敗しました: %w", err))
	}
	if open == nil || open.ID != *in.ID {
		return nil, model.NewSessionNotFoundError()
	}

	if err := s.requireAssigned(ctx, userID, *in.CustomerID); err != nil {
		return nil, err
	}

	end := s.Now().UTC()
	if end.Before(open.StartTime) {
		end = open.StartTime
	}
	elapsed := end.Sub(open.StartTime)
	hours, minutes := SplitDuration(elapsed)

	closed, err := s.entries.Close(ctx, open.ID, userID, repository.CloseParams{
		EndTime:         end,
		CustomerID:      *in.CustomerID,
		ProjectID:       *in.ProjectID,
		TaskID:          *in.TaskID,
		DurationHours:   hours,
		DurationMinutes: minutes,
	})
	if err != nil {
		return nil, model.NewStorageError(fmt.Errorf("セッションの終了に失敗しました: %w", err))
	}
	if closed == nil {
		// 並行したstop/deleteで先に終了・削除された
		return nil, model.NewSessionNotFoundError()
	}

	s.metrics.RecordSessionStopped(elapsed)
	slog.Info("session stopped",
		slog.Int64("user_id", userID),
		slog.Int64("entry_id", closed.ID),
		slog.Int("duration_hours", hours),
		slog.Int("duration_minutes", minutes),
	)
	return closed, nil
}

// AddManualEntry は開始時刻と所要時間を指定して終了済みエントリを1件登録する。
// 所要時間0時間0分も有効な値として受け付ける。
func (s *Service) AddManualEntry(ctx context.Context, userID int64, in ManualInput) (*model.TimeEntry, error) {
	if err := validateInput(s.validate, in, msgAllFieldsRequired); err != nil {
		return nil, err
	}
	if err := s.requireAssigned(ctx, userID, *in.CustomerID); err != nil {
		return nil, err
	}

	start := in.StartTime.UTC()
	end := start.Add(composeDuration(*in.DurationHours, *in.DurationMinutes))
	hours, minutes := *in.DurationHours, *in.DurationMinutes

	entry := &model.TimeEntry{
		UserID:          userID,
		CustomerID:      in.CustomerID,
		ProjectID:       in.ProjectID,
		TaskID:          in.TaskID,
		StartTime:       start,
		EndTime:         &end,
		DurationHours:   &hours,
		DurationMinutes: &minutes,
		Note:            s.cleanNote(in.Note),
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, model.NewStorageError(fmt.Errorf("手動エントリの登録に失敗しました: %w", err))
	}

	s.metrics.RecordManualEntry()
	slog.Info("manual entry added",
		slog.Int64("user_id", userID),
		slog.Int64("entry_id", entry.ID),
	)
	return entry, nil
}

// UpdateEntry は終了済みエントリを上書きする。
// 所有者以外の一般ユーザーによる更新と存在しないエントリは同じエラーで報告する。
func (s *Service) UpdateEntry(ctx context.Context, id int64, p model.Principal, in UpdateInput) (*model.TimeEntry, error) {
	if err := validateInput(s.validate, in, msgMissingRequiredFields); err != nil {
		return nil, err
	}

	scope := visibility.For(p, visibility.UpdateEntry)
	current, err := s.entries.FindByID(ctx, id, scope)
	if err != nil {
		return nil, model.NewStorageError(fmt.Errorf("エントリの取得に失敗しました: %w", err))
	}
	if current == nil {
		return nil, model.NewUpdateFailedError()
	}
	if current.IsOpen() {
		return nil, model.NewSessionStillOpenError()
	}

	// 管理者が他人のエントリを編集する場合も、割り当ては所有者について確認する
	if err := s.requireAssigned(ctx, current.UserID, *in.CustomerID); err != nil {
		return nil, err
	}

	hours := 0
	if in.DurationHours != nil {
		hours = *in.DurationHours
	}
	minutes := *in.DurationMinutes
	start := in.StartTime.UTC()

	updated, err := s.entries.Update(ctx, id, scope, repository.EntryFields{
		CustomerID:      *in.CustomerID,
		ProjectID:       *in.ProjectID,
		TaskID:          *in.TaskID,
		StartTime:       start,
		EndTime:         start.Add(composeDuration(hours, minutes)),
		DurationHours:   hours,
		DurationMinutes: minutes,
		Note:            s.cleanNote(in.Note),
	})
	if err != nil {
		return nil, model.NewStorageError(fmt.Errorf("エントリの更新に失敗しました: %w", err))
	}
	if updated == nil {
		return nil, model.NewUpdateFailedError()
	}

	s.metrics.RecordEntryMutation("update")
	slog.Info("entry updated",
		slog.Int64("entry_id", id),
		slog.Int64("actor_id", p.UserID),
	)
	return updated, nil
}

// DeleteEntry はエントリを削除し、削除した行を返す。
func (s *Service) DeleteEntry(ctx context.Context, id int64, p model.Principal) (*model.TimeEntry, error) {
	deleted, err := s.entries.Delete(ctx, id, visibility.For(p, visibility.DeleteEntry))
	if err != nil {
		return nil, model.NewStorageError(fmt.Errorf("エントリの削除に失敗しました: %w", err))
	}
	if deleted == nil {
		return nil, model.NewDeleteFailedError()
	}

	s.metrics.RecordEntryMutation("delete")
	slog.Info("entry deleted",
		slog.Int64("entry_id", id),
		slog.Int64("actor_id", p.UserID),
	)
	return deleted, nil
}

// CurrentSession は主体自身の計測中セッションを返す。ない場合はnilを返す。
func (s *Service) CurrentSession(ctx context.Context, p model.Principal) (*model.TimeEntry, error) {
	entry, err := s.entries.FindOpen(ctx, visibility.For(p, visibility.CurrentSession))
	if err != nil {
		return nil, model.NewStorageError(fmt.Errorf("計測中セッションの取得に失敗しました: %w", err))
	}
	return entry, nil
}

// OpenSessions は可視範囲内の計測中セッションを返す。
func (s *Service) OpenSessions(ctx context.Context, p model.Principal) ([]model.TimeEntryDetail, error) {
	sessions, err := s.entries.ListOpen(ctx, visibility.For(p, visibility.ListOpenSessions))
	if err != nil {
		return nil, model.NewStorageError(fmt.Errorf("計測中セッション一覧の取得に失敗しました: %w", err))
	}
	return sessions, nil
}

// Entries は可視範囲内のエントリを関連名称付きで返す。
func (s *Service) Entries(ctx context.Context, p model.Principal) ([]model.TimeEntryDetail, error) {
	entries, err := s.entries.ListDetailed(ctx, visibility.For(p, visibility.ListEntries))
	if err != nil {
		return nil, model.NewStorageError(fmt.Errorf("エントリ一覧の取得に失敗しました: %w", err))
	}
	return entries, nil
}

// UserEntries は指定ユーザー自身のエントリを返す。
func (s *Service) UserEntries(ctx context.Context, userID int64) ([]model.TimeEntry, error) {
	entries, err := s.entries.ListByUser(ctx, userID)
	if err != nil {
		return nil, model.NewStorageError(fmt.Errorf("エントリ一覧の取得に失敗しました: %w", err))
	}
	return entries, nil
}

// AssignedCustomers は主体に割り当てられた顧客を返す。
func (s *Service) AssignedCustomers(ctx context.Context, p model.Principal) ([]model.CustomerRef, error) {
	return s.assignments.CustomersFor(ctx, visibility.For(p, visibility.AssignedCustomers))
}

// requireAssigned は顧客がユーザーに割り当てられていなければForbiddenErrorを返す。
func (s *Service) requireAssigned(ctx context.Context, userID, customerID int64) error {
	ok, err := s.assignments.IsAssigned(ctx, userID, customerID)
	if err != nil {
		return err
	}
	if !ok {
		slog.Warn("customer not assigned",
			slog.Int64("user_id", userID),
			slog.Int64("customer_id", customerID),
		)
		return model.NewCustomerNotAssignedError()
	}
	return nil
}

// cleanNote はメモをサニタイズする。空になった場合はnilを返す。
func (s *Service) cleanNote(note *string) *string {
	if note == nil {
		return nil
	}
	cleaned := s.sanitizer.Sanitize(*note)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
