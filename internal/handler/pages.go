// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/diabetes/internal/middleware"
	"github.com/hitoshi/diabetes/internal/model"
	"github.com/hitoshi/diabetes/internal/view"
)

// Renderer はHTMLページの描画に必要なインターフェース。
type Renderer interface {
	Render(w http.ResponseWriter, status int, name string, data any) error
}

var _ Renderer = (*view.Renderer)(nil)

// navLinks はヘッダーに表示するナビゲーション。
var navLinks = []view.NavLink{
	{Label: "血糖値", Href: "/"},
	{Label: "予約", Href: "/appointments/"},
	{Label: "質問", Href: "/issues/"},
	{Label: "体重", Href: "/weights/"},
	{Label: "食事", Href: "/meals/"},
	{Label: "運動", Href: "/exercises/"},
	{Label: "検査", Href: "/exams/"},
}

// Pages はページ描画とエラーページの共通処理。
type Pages struct {
	renderer Renderer
}

// NewPages はPagesを生成する。
func NewPages(renderer Renderer) *Pages {
	return &Pages{renderer: renderer}
}

// layout はリクエストに応じた共通レイアウトを組み立てる。
func (p *Pages) layout(r *http.Request, title string) view.Layout {
	_, err := middleware.UserIDFromContext(r.Context())

	nav := make([]view.NavLink, len(navLinks))
	copy(nav, navLinks)
	for i := range nav {
		nav[i].Active = isActive(nav[i].Href, r.URL.Path)
	}

	return view.Layout{
		Title:     title,
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		LoggedIn:  err == nil,
		Nav:       nav,
	}
}

func isActive(href, path string) bool {
	if href == "/" {
		return path == "/" || strings.HasPrefix(path, "/glucoses/")
	}
	return strings.HasPrefix(path, href)
}

// render はページを描画する。テンプレートの失敗は500として扱う。
func (p *Pages) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if err := p.renderer.Render(w, status, name, data); err != nil {
		slog.Error("failed to render page",
			slog.String("page", name),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (p *Pages) renderError(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	p.render(w, r, status, view.PageError, view.ErrorPage{
		Layout:  p.layout(r, title),
		Status:  status,
		Message: message,
	})
}

// NotFound は404ページを返す。
func (p *Pages) NotFound(w http.ResponseWriter, r *http.Request) {
	p.renderError(w, r, http.StatusNotFound, "Not Found", "指定されたページまたは記録が見つかりません。")
}

// InternalError は500ページを返す。
func (p *Pages) InternalError(w http.ResponseWriter, r *http.Request) {
	p.renderError(w, r, http.StatusInternalServerError, "Internal Server Error", model.NewInternalError().Message)
}

// BadRequest は400ページを返す。
func (p *Pages) BadRequest(w http.ResponseWriter, r *http.Request) {
	p.renderError(w, r, http.StatusBadRequest, "Bad Request", "リクエストを解釈できませんでした。")
}

// handleError はリポジトリから返されたエラーをエラーページに変換する。
// NOT_FOUNDは404、それ以外は詳細をログに記録して500とする。
func (p *Pages) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case model.ErrCodeNotFound:
			p.NotFound(w, r)
			return
		case model.ErrCodeUnauthorized:
			http.Redirect(w, r, middleware.LoginRedirectURL(middleware.DefaultLoginPath, r.URL.RequestURI()), http.StatusFound)
			return
		}
	}

	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	p.InternalError(w, r)
}
