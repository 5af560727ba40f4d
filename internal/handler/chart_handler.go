package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/diabetes/internal/chart"
	"github.com/hitoshi/diabetes/internal/middleware"
)

// ChartSummarizer はグラフ用データの集計に必要なインターフェース。
type ChartSummarizer interface {
	Summarize(ctx context.Context) (chart.Data, error)
}

var _ ChartSummarizer = (*chart.Summarizer)(nil)

// ChartHandler はトップページのグラフ用JSONを返すハンドラー。
type ChartHandler struct {
	summarizer ChartSummarizer
}

// NewChartHandler はChartHandlerを生成する。
func NewChartHandler(summarizer ChartSummarizer) *ChartHandler {
	return &ChartHandler{summarizer: summarizer}
}

// chartResponse はchart_data_jsonのレスポンス。
type chartResponse struct {
	ChartData chart.Data `json:"chart_data"`
}

// ChartData は直近の血糖値をグラフ用に返す。
// GET /chart_data_json
func (h *ChartHandler) ChartData(w http.ResponseWriter, r *http.Request) {
	data, err := h.summarizer.Summarize(r.Context())
	if err != nil {
		slog.Error("failed to summarize chart data", slog.String("error", err.Error()))
		middleware.WriteError(w, err)
		return
	}

	body, err := json.Marshal(chartResponse{ChartData: data})
	if err != nil {
		slog.Error("failed to encode chart data", slog.String("error", err.Error()))
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}
