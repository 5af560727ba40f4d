// Package defaults はフォームの初期値（現在の日付・時刻）を提供する。
package defaults

import (
	"time"

	"github.com/hitoshi/diabetes/internal/model"
)

// Provider は設定されたタイムゾーンでの現在日時からフォーム初期値を組み立てる。
type Provider struct {
	loc *time.Location
	now func() time.Time
}

// NewProvider はProviderを生成する。locがnilの場合はUTCを使用する。
func NewProvider(loc *time.Location) *Provider {
	return NewProviderWithClock(loc, time.Now)
}

// NewProviderWithClock は時計を差し替えたProviderを生成する。テスト用。
func NewProviderWithClock(loc *time.Location, now func() time.Time) *Provider {
	if loc == nil {
		loc = time.UTC
	}
	return &Provider{loc: loc, now: now}
}

// Location は設定されたタイムゾーンを返す。
func (p *Provider) Location() *time.Location {
	return p.loc
}

// Now は設定されたタイムゾーンでの現在時刻を返す。
func (p *Provider) Now() time.Time {
	return p.now().UTC().In(p.loc)
}

// RightNow は date_<name> と hour_<name> の2項目に現在の日付と時刻を設定したマップを返す。
// 日付は YYYY-MM-DD、時刻は HH:MM:SS 形式。
func (p *Provider) RightNow(name string) map[string]string {
	now := p.Now()
	return map[string]string{
		"date_" + name: now.Format(model.DateLayout),
		"hour_" + name: now.Format(model.HourLayout),
	}
}

// Today は date_<name> のみを設定したマップを返す。
// 時刻項目を持たないエンティティ（体重）で使用する。
func (p *Provider) Today(name string) map[string]string {
	return map[string]string{
		"date_" + name: p.Now().Format(model.DateLayout),
	}
}
