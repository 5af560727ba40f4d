// Package model はドメインモデルを定義する。
package model

import "time"

// Record は全ての記録エンティティに共通する属性を表す。
// UserIDはリクエストの認証ユーザーから設定し、フォーム入力からは受け取らない。
type Record struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Base は埋め込まれたRecordへのポインタを返す。
func (r *Record) Base() *Record {
	return r
}

// Entity はユーザーが所有するCRUD対象のエンティティ。
// Recordを埋め込んだ構造体のポインタ型が満たす。
type Entity interface {
	Base() *Record
}

// DateLayout と HourLayout はフォームおよび表示で使う日付・時刻の書式。
const (
	DateLayout = "2006-01-02"
	HourLayout = "15:04:05"
)
