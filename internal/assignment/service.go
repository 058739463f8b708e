// Package assignment はユーザーと顧客の割り当て（担当関係）を管理する。
package assignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/agencytime/internal/model"
	"github.com/hitoshi/agencytime/internal/repository"
	"github.com/hitoshi/agencytime/internal/visibility"
)

// Service は割り当て管理のサービス層。
type Service struct {
	repo repository.AssignmentRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.AssignmentRepository) *Service {
	return &Service{repo: repo}
}

// Assign は顧客をユーザーに割り当てる。既に割り当て済みの場合も成功とする。
func (s *Service) Assign(ctx context.Context, customerID, userID int64) error {
	if customerID <= 0 || userID <= 0 {
		return model.NewValidationError("Customer ID and user ID are required.")
	}

	if err := s.repo.Assign(ctx, customerID, userID); err != nil {
		if errors.Is(err, repository.ErrReferenceNotFound) {
			return model.NewNotFoundError("Customer or user not found.")
		}
		return model.NewStorageError(fmt.Errorf("割り当ての作成に失敗しました: %w", err))
	}

	slog.Info("customer assigned",
		slog.Int64("customer_id", customerID),
		slog.Int64("user_id", userID),
	)
	return nil
}

// Unassign は割り当てを解除し、実際に削除したかどうかを返す。
// 割り当てが存在しなかった場合はfalseを返し、エラーにはしない。
func (s *Service) Unassign(ctx context.Context, customerID, userID int64) (bool, error) {
	removed, err := s.repo.Unassign(ctx, customerID, userID)
	if err != nil {
		return false, model.NewStorageError(fmt.Errorf("割り当ての解除に失敗しました: %w", err))
	}
	if removed {
		slog.Info("customer unassigned",
			slog.Int64("customer_id", customerID),
			slog.Int64("user_id", userID),
		)
	}
	return removed, nil
}

// IsAssigned はユーザーが顧客に割り当てられているかを返す。
func (s *Service) IsAssigned(ctx context.Context, userID, customerID int64) (bool, error) {
	ok, err := s.repo.Exists(ctx, userID, customerID)
	if err != nil {
		return false, model.NewStorageError(fmt.Errorf("割り当ての確認に失敗しました: %w", err))
	}
	return ok, nil
}

// CustomersFor はScope内のユーザーに割り当てられた顧客を返す。
func (s *Service) CustomersFor(ctx context.Context, scope visibility.Scope) ([]model.CustomerRef, error) {
	refs, err := s.repo.ListCustomers(ctx, scope)
	if err != nil {
		return nil, model.NewStorageError(fmt.Errorf("割り当て顧客の取得に失敗しました: %w", err))
	}
	return refs, nil
}

// ListCustomersForUser は指定ユーザーに割り当てられた顧客を返す。
func (s *Service) ListCustomersForUser(ctx context.Context, userID int64) ([]model.CustomerRef, error) {
	return s.CustomersFor(ctx, visibility.Own(userID))
}

// ListUsersForCustomer は顧客に割り当てられたユーザーを返す。
func (s *Service) ListUsersForCustomer(ctx context.Context, customerID int64) ([]model.User, error) {
	users, err := s.repo.ListUsers(ctx, customerID)
	if err != nil {
		return nil, model.NewStorageError(fmt.Errorf("担当ユーザーの取得に失敗しました: %w", err))
	}
	return users, nil
}
