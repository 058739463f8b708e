// Package billing は顧客ごとの月次請求集計を提供する。
package billing

import (
	"context"
	"fmt"
	"math"

	"github.com/hitoshi/agencytime/internal/model"
	"github.com/hitoshi/agencytime/internal/repository"
)

// Service は請求集計のサービス層。
type Service struct {
	repo repository.SummaryRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.SummaryRepository) *Service {
	return &Service{repo: repo}
}

// MonthlySummary は顧客の終了済みエントリを月単位に集計し、新しい月から返す。
// 時給は集計時点の顧客の値を用いる。該当エントリがない顧客は空のスライスを返す。
func (s *Service) MonthlySummary(ctx context.Context, customerID int64) ([]model.MonthlySummary, error) {
	if customerID <= 0 {
		return nil, model.NewValidationError("Customer ID is required.")
	}

	rows, err := s.repo.MonthlyByCustomer(ctx, customerID)
	if err != nil {
		return nil, model.NewStorageError(fmt.Errorf("月次集計の取得に失敗しました: %w", err))
	}
	for i := range rows {
		rows[i].TotalHours = round2(rows[i].TotalHours)
		rows[i].TotalCost = round2(rows[i].TotalHours * rows[i].HourlyFee)
	}
	return rows, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
