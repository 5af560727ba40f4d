package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// RetryConfig は起動時の接続リトライ設定。
type RetryConfig struct {
	Attempts       int           // 最大試行回数
	InitialBackoff time.Duration // 初回の待ち時間
	MaxBackoff     time.Duration // 待ち時間の上限
	PingTimeout    time.Duration // 1回のPingのタイムアウト
}

// DefaultRetryConfig はコンテナ起動直後のDB待ちを想定した既定値を返す。
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:       6,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
		PingTimeout:    5 * time.Second,
	}
}

// Backoff は連続失敗回数に基づいて指数バックオフ遅延を計算する。
// initialから2倍ずつ増加し、maxで頭打ちになる。
func Backoff(failures int, initial, max time.Duration) time.Duration {
	delay := initial
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay > max {
			return max
		}
	}
	return delay
}

// pinger はPingContextを持つ接続。*sql.DBを受け付ける。
type pinger interface {
	PingContext(ctx context.Context) error
}

var _ pinger = (*sql.DB)(nil)

// PingWithRetry は疎通できるまで指数バックオフでPingを繰り返す。
// 最大試行回数に達した場合は最後のエラーを返す。ctxがキャンセルされた場合は即座に返る。
func PingWithRetry(ctx context.Context, db pinger, cfg RetryConfig) error {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		if attempt > 0 {
			delay := Backoff(attempt-1, cfg.InitialBackoff, cfg.MaxBackoff)
			slog.Warn("database not ready, retrying",
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", delay),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
		lastErr = db.PingContext(pingCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("failed to ping database after %d attempts: %w", cfg.Attempts, lastErr)
}
