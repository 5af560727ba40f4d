// Package chart はグラフ描画用の血糖値データ集計を提供する。
package chart

import (
	"context"
	"fmt"
	"math"

	"github.com/hitoshi/diabetes/internal/model"
)

// RecentReadings はグラフに使う直近の記録件数。
const RecentReadings = 14

// labelLayout はグラフのX軸ラベル（MM/DD）の書式。
const labelLayout = "01/02"

// GlucoseLister は直近の血糖値記録を新しい順に取得するインターフェース。
type GlucoseLister interface {
	ListRecent(ctx context.Context, limit int) ([]*model.Glucose, error)
}

// Data はクライアント側のグラフ描画に渡す2本の並行配列。
// DateGlucoseとGlucoseは常に同じ長さになる。
type Data struct {
	DateGlucose []string  `json:"date_glucose"`
	Glucose     []float64 `json:"glucose"`
}

// Summarizer は直近の血糖値記録をグラフ用データに変換する。
type Summarizer struct {
	store GlucoseLister
}

// NewSummarizer はSummarizerを生成する。
func NewSummarizer(store GlucoseLister) *Summarizer {
	return &Summarizer{store: store}
}

// Summarize は直近14件の血糖値記録を新しい順に返す。
func (s *Summarizer) Summarize(ctx context.Context) (Data, error) {
	readings, err := s.store.ListRecent(ctx, RecentReadings)
	if err != nil {
		return Data{}, fmt.Errorf("failed to list recent glucose readings: %w", err)
	}
	return Project(readings), nil
}

// Project は記録をラベル列と値列に射影する。14件を超える入力は先頭14件のみ使う。
func Project(readings []*model.Glucose) Data {
	if len(readings) > RecentReadings {
		readings = readings[:RecentReadings]
	}

	data := Data{
		DateGlucose: make([]string, 0, len(readings)),
		Glucose:     make([]float64, 0, len(readings)),
	}
	for _, g := range readings {
		if g == nil {
			continue
		}
		data.DateGlucose = append(data.DateGlucose, g.Date.Format(labelLayout))
		data.Glucose = append(data.Glucose, RoundValue(g.Glucose))
	}
	return data
}

// RoundValue は値を小数第1位に丸める。0、NaN、無限大は0を返す。
// 丸めは全ての呼び出し元で四捨五入（0から遠い方向）に統一する。
func RoundValue(v float64) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	// 2^52以上の値は小数部を持たず、10倍するとあふれることがある
	if math.Abs(v) >= 1<<52 {
		return v
	}
	return math.Round(v*10) / 10
}

// RoundNullable はnilを0として扱うRoundValue。
func RoundNullable(v *float64) float64 {
	if v == nil {
		return 0
	}
	return RoundValue(*v)
}
