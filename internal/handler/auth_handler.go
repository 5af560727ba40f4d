package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/diabetes/internal/auth"
	"github.com/hitoshi/diabetes/internal/middleware"
	"github.com/hitoshi/diabetes/internal/model"
)

const (
	oauthStateCookie = "oauth_state"
	loginNextCookie  = "login_next"
	loginCookieTTL   = 600 // 10分
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はOAuthログインとログアウトのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
	pages   *Pages
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, pages *Pages) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
		pages:   pages,
	}
}

// Login はGoogle OAuthフローを開始する。ログイン後の戻り先をCookieに保持する。
// GET /auth/google/login?next=/weights/
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		h.pages.InternalError(w, r)
		return
	}

	h.setShortCookie(w, oauthStateCookie, state)
	h.setShortCookie(w, loginNextCookie, safeNext(r.URL.Query().Get("next")))

	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusFound)
}

// Callback はOAuthコールバックを処理し、セッションを発行して元のページへ戻す。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch",
			slog.String("query_state", state),
		)
		h.loginFailed(w, r, http.StatusBadRequest, "ログイン要求が無効か期限切れです。もう一度ログインしてください。")
		return
	}
	h.clearCookie(w, oauthStateCookie, "")

	code := r.URL.Query().Get("code")
	if code == "" {
		// 同意画面でキャンセルした場合はerror=access_deniedで戻る
		slog.Warn("oauth callback without code", slog.String("oauth_error", r.URL.Query().Get("error")))
		h.loginFailed(w, r, http.StatusBadRequest, "Googleアカウントでのログインが完了しませんでした。")
		return
	}

	session, err := h.service.HandleCallback(r.Context(), code)
	if errors.Is(err, auth.ErrEmailNotVerified) {
		slog.Warn("login rejected", slog.String("reason", err.Error()))
		h.loginFailed(w, r, http.StatusForbidden, "メールアドレスが確認済みのGoogleアカウントでログインしてください。")
		return
	}
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		h.pages.InternalError(w, r)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	next := "/"
	if c, err := r.Cookie(loginNextCookie); err == nil {
		next = safeNext(c.Value)
	}
	h.clearCookie(w, loginNextCookie, "")

	http.Redirect(w, r, next, http.StatusFound)
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.pages.renderError(w, r, status, "ログインできません", message)
}

// Logout はセッションを破棄してトップページへリダイレクトする。
// GET /logout, POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			// ログアウト失敗してもCookieはクリアする
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
		}
	}

	h.clearCookie(w, middleware.SessionCookieName, h.config.CookieDomain)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) setShortCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   loginCookieTTL,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name, domain string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// safeNext はオープンリダイレクトを防ぐため、同一オリジンの絶対パスのみを許可する。
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
