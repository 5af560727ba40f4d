package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/diabetes/internal/model"
)

// fakeGoogle はトークンとユーザー情報のエンドポイントを模したテストサーバー。
type fakeGoogle struct {
	tokenStatus    int
	tokenBody      string
	userInfoStatus int
	userInfo       map[string]any

	gotForm url.Values
	gotAuth string
}

func (f *fakeGoogle) start(t *testing.T) *GoogleOAuthProvider {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		f.gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		if f.tokenStatus != 0 {
			w.WriteHeader(f.tokenStatus)
		}
		body := f.tokenBody
		if body == "" {
			body = `{"access_token":"token-1","token_type":"Bearer","expires_in":3599}`
		}
		w.Write([]byte(body))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		f.gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		if f.userInfoStatus != 0 {
			w.WriteHeader(f.userInfoStatus)
		}
		json.NewEncoder(w).Encode(f.userInfo)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURL:  "http://localhost:8080/auth/google/callback",
		TokenURL:     srv.URL + "/token",
		UserInfoURL:  srv.URL + "/userinfo",
		HTTPClient:   srv.Client(),
	})
}

func verifiedUser() map[string]any {
	return map[string]any{"sub": "sub-123", "email": "patient@example.com", "email_verified": true, "name": "Patient"}
}

func TestGoogleOAuthProvider_GetLoginURL(t *testing.T) {
	provider := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:    "client-1",
		RedirectURL: "http://localhost:8080/auth/google/callback",
	})

	u, err := url.Parse(provider.GetLoginURL("state-1"))
	if err != nil {
		t.Fatalf("invalid login URL: %v", err)
	}
	if u.Host != "accounts.google.com" {
		t.Errorf("host = %q", u.Host)
	}

	want := map[string]string{
		"client_id":     "client-1",
		"redirect_uri":  "http://localhost:8080/auth/google/callback",
		"response_type": "code",
		"scope":         "openid email profile",
		"state":         "state-1",
		"prompt":        "select_account",
	}
	for key, value := range want {
		if got := u.Query().Get(key); got != value {
			t.Errorf("%s = %q, want %q", key, got, value)
		}
	}
}

func TestGoogleOAuthProvider_ExchangeCode(t *testing.T) {
	google := &fakeGoogle{userInfo: verifiedUser()}
	provider := google.start(t)

	info, err := provider.ExchangeCode(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}

	want := OAuthUserInfo{Provider: model.ProviderGoogle, ProviderUserID: "sub-123", Email: "patient@example.com", Name: "Patient"}
	if *info != want {
		t.Errorf("info = %+v, want %+v", *info, want)
	}
	if google.gotForm.Get("code") != "code-1" || google.gotForm.Get("grant_type") != "authorization_code" || google.gotForm.Get("client_secret") != "secret-1" {
		t.Errorf("token form = %v", google.gotForm)
	}
	if google.gotAuth != "Bearer token-1" {
		t.Errorf("Authorization = %q", google.gotAuth)
	}
}

func TestGoogleOAuthProvider_ExchangeCode_Errors(t *testing.T) {
	unverified := verifiedUser()
	unverified["email_verified"] = false
	noSub := verifiedUser()
	delete(noSub, "sub")

	tests := []struct {
		name        string
		google      *fakeGoogle
		wantErr     error
		wantMessage string
	}{
		{
			name:        "使用済みの認可コード",
			google:      &fakeGoogle{tokenStatus: http.StatusBadRequest, tokenBody: `{"error":"invalid_grant","error_description":"Bad Request"}`},
			wantMessage: "invalid_grant",
		},
		{
			name:        "アクセストークンなし",
			google:      &fakeGoogle{tokenBody: `{"token_type":"Bearer"}`},
			wantMessage: "empty access token",
		},
		{
			name:        "ユーザー情報の取得失敗",
			google:      &fakeGoogle{userInfoStatus: http.StatusUnauthorized, userInfo: map[string]any{}},
			wantMessage: "status 401",
		},
		{
			name:        "subなし",
			google:      &fakeGoogle{userInfo: noSub},
			wantMessage: "empty sub",
		},
		{
			name:    "メール未確認",
			google:  &fakeGoogle{userInfo: unverified},
			wantErr: ErrEmailNotVerified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := tt.google.start(t)

			info, err := provider.ExchangeCode(context.Background(), "code-1")
			if err == nil {
				t.Fatalf("expected error, got %+v", info)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMessage != "" && !strings.Contains(err.Error(), tt.wantMessage) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantMessage)
			}
		})
	}
}
