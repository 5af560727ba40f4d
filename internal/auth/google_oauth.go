package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/diabetes/internal/model"
)

// Googleのエンドポイント
const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

const (
	googleScopes         = "openid email profile"
	googleRequestTimeout = 10 * time.Second
	maxGoogleBodySize    = 1 << 20
)

// ErrEmailNotVerified はGoogleアカウントのメールアドレスが未確認の場合に返る。
var ErrEmailNotVerified = errors.New("google account email is not verified")

// GoogleOAuthConfig はGoogle OAuthプロバイダーの設定。
// AuthURL・TokenURL・UserInfoURL・HTTPClientは空なら本番の値を使う。
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL     string
	TokenURL    string
	UserInfoURL string
	HTTPClient  *http.Client
}

// GoogleOAuthProvider は認可コードフローでGoogleアカウントを確認する。
type GoogleOAuthProvider struct {
	config GoogleOAuthConfig
	client *http.Client
}

// NewGoogleOAuthProvider はGoogleOAuthProviderを生成する。
func NewGoogleOAuthProvider(config GoogleOAuthConfig) *GoogleOAuthProvider {
	config.AuthURL = orDefault(config.AuthURL, googleAuthURL)
	config.TokenURL = orDefault(config.TokenURL, googleTokenURL)
	config.UserInfoURL = orDefault(config.UserInfoURL, googleUserInfoURL)

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: googleRequestTimeout}
	}
	return &GoogleOAuthProvider{config: config, client: client}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// GetLoginURL はGoogleの同意画面のURLを返す。
func (p *GoogleOAuthProvider) GetLoginURL(state string) string {
	q := url.Values{}
	q.Set("client_id", p.config.ClientID)
	q.Set("redirect_uri", p.config.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", googleScopes)
	q.Set("state", state)
	q.Set("prompt", "select_account")
	return p.config.AuthURL + "?" + q.Encode()
}

// googleError はGoogleのOAuthエンドポイントが返すエラー応答。
type googleError struct {
	Status      int
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *googleError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("google returned status %d", e.Status)
	}
	return fmt.Sprintf("google returned status %d: %s: %s", e.Status, e.Code, e.Description)
}

// ExchangeCode は認可コードをアクセストークンに交換し、アカウント情報を取得する。
// メールアドレスが未確認のアカウントはErrEmailNotVerifiedで拒否する。
func (p *GoogleOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	accessToken, err := p.fetchToken(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	var info struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if err := p.do(req, &info); err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	switch {
	case info.Sub == "":
		return nil, errors.New("empty sub in user info response")
	case !info.EmailVerified:
		return nil, ErrEmailNotVerified
	}

	return &OAuthUserInfo{
		Provider:       model.ProviderGoogle,
		ProviderUserID: info.Sub,
		Email:          info.Email,
		Name:           info.Name,
	}, nil
}

func (p *GoogleOAuthProvider) fetchToken(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", p.config.ClientID)
	form.Set("client_secret", p.config.ClientSecret)
	form.Set("redirect_uri", p.config.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := p.do(req, &token); err != nil {
		return "", err
	}
	if token.AccessToken == "" {
		return "", errors.New("empty access token in response")
	}
	return token.AccessToken, nil
}

// do はリクエストを送信し、200応答のJSONをoutにデコードする。
// それ以外の応答は*googleErrorとして返す。
func (p *GoogleOAuthProvider) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGoogleBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		gerr := &googleError{Status: resp.StatusCode}
		json.Unmarshal(body, gerr)
		return gerr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

var _ OAuthProvider = (*GoogleOAuthProvider)(nil)
