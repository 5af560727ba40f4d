package model

import "time"

// ProviderGoogle はGoogleアカウントによるログインを表すプロバイダー名。
const ProviderGoogle = "google"

// User は記録を所有するログインユーザーを表す。
type User struct {
	ID        string
	Email     string
	Name      string
	LastLogin *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity はGoogleアカウントなど外部IdPとの紐付けを表す。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Login は外部IdPで認証されたログイン1回分の情報。
type Login struct {
	Provider       string
	ProviderUserID string
	Email          string
	Name           string
	At             time.Time
}

// Session はCookieで識別するログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired はセッションがnow時点で期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
