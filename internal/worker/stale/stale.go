// Package stale は長時間計測中のままになっているセッションの検出ジョブを提供する。
// 閾値を超えたセッションを警告ログに出力し、件数をメトリクスのゲージに反映する。
// セッションの自動終了は行わない。
package stale

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/agencytime/internal/model"
)

// DefaultThreshold は計測中セッションを放置とみなすまでの既定の経過時間。
const DefaultThreshold = 12 * time.Hour

// OpenSessionLister は開始時刻がcutoffより前の計測中セッションを返す。
// repository.TimeEntryRepositoryが実装する。
type OpenSessionLister interface {
	ListOpenStartedBefore(ctx context.Context, cutoff time.Time) ([]model.TimeEntryDetail, error)
}

// GaugeSetter は放置セッション数の反映先。
type GaugeSetter interface {
	SetStaleSessions(count int)
}

// Job は放置された計測中セッションの検出ジョブ。
// 読み取りのみのため、何度実行しても結果に副作用はない。
type Job struct {
	entries   OpenSessionLister
	gauge     GaugeSetter
	logger    *slog.Logger
	Threshold time.Duration // 放置とみなす経過時間（デフォルト: 12時間）
	Now       func() time.Time
}

// NewJob は新しいJobを生成する。
func NewJob(entries OpenSessionLister, gauge GaugeSetter, logger *slog.Logger) *Job {
	return &Job{
		entries:   entries,
		gauge:     gauge,
		logger:    logger,
		Threshold: DefaultThreshold,
		Now:       time.Now,
	}
}

// Run は閾値を超えた計測中セッションを1回検出し、検出件数を返す。
func (j *Job) Run(ctx context.Context) (int, error) {
	start := j.Now()
	cutoff := start.Add(-j.Threshold)

	sessions, err := j.entries.ListOpenStartedBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("放置セッションの取得に失敗しました",
			slog.String("error", err.Error()),
			slog.Duration("threshold", j.Threshold),
		)
		return 0, fmt.Errorf("放置セッションの取得に失敗: %w", err)
	}

	for _, s := range sessions {
		attrs := []any{
			slog.Int64("entry_id", s.ID),
			slog.Int64("user_id", s.UserID),
			slog.Time("start_time", s.StartTime),
			slog.Duration("elapsed", start.Sub(s.StartTime).Truncate(time.Minute)),
		}
		if s.Username != nil {
			attrs = append(attrs, slog.String("username", *s.Username))
		}
		j.logger.Warn("長時間計測中のセッションがあります", attrs...)
	}

	if j.gauge != nil {
		j.gauge.SetStaleSessions(len(sessions))
	}

	j.logger.Info("放置セッション検出ジョブが完了しました",
		slog.Int("stale_count", len(sessions)),
		slog.Duration("threshold", j.Threshold),
	)
	return len(sessions), nil
}

// Start は指定間隔でRunを繰り返す。起動直後に1回実行し、
// コンテキストがキャンセルされるまで継続する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("放置セッション検出ジョブを開始しました",
		slog.Duration("interval", interval),
		slog.Duration("threshold", j.Threshold),
	)

	// エラーはRun内でログ出力済み
	j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("放置セッション検出ジョブを停止しました")
			return
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}
