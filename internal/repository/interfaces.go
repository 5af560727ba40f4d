// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/diabetes/internal/model"
)

// EntityStore は記録エンティティの永続化インターフェース。
// 一覧は全ユーザーの記録をエンティティごとの既定順で返す。
type EntityStore[E model.Entity] interface {
	// Create は記録を作成し、IDと作成日時を設定する。
	Create(ctx context.Context, e E) error

	// Update は記録を上書き更新する。所有者（UserID）は変更しない。
	// 見つからない場合はNOT_FOUNDのAPIErrorを返す。
	Update(ctx context.Context, e E) error

	// Delete は指定IDの記録を削除する。見つからない場合はNOT_FOUNDのAPIErrorを返す。
	Delete(ctx context.Context, id string) error

	// FindByID は指定IDの記録を取得する。見つからない場合はNOT_FOUNDのAPIErrorを返す。
	FindByID(ctx context.Context, id string) (E, error)

	// List は全件を既定の並び順で返す。
	List(ctx context.Context) ([]E, error)
}

// GlucoseRepository は血糖値の永続化インターフェース。
type GlucoseRepository interface {
	EntityStore[*model.Glucose]

	// ListRecent は測定日時の新しい順に最大limit件を返す。
	ListRecent(ctx context.Context, limit int) ([]*model.Glucose, error)
}

// ExaminationRepository は検査とその詳細の永続化インターフェース。
type ExaminationRepository interface {
	EntityStore[*model.Examination]

	// ListDetails は検査に属する詳細を返す。
	ListDetails(ctx context.Context, examinationID string) ([]*model.ExamDetail, error)

	// SaveWithDetails は検査の更新と詳細の差分適用を同一トランザクションで行う。
	SaveWithDetails(ctx context.Context, exam *model.Examination, changes model.ExamDetailChanges) error
}

// AccountRepository はログインユーザーとIdP紐付けの永続化インターフェース。
type AccountRepository interface {
	// RecordLogin はログインを記録する。初回ログインならユーザーを作成しcreated=trueを返す。
	RecordLogin(ctx context.Context, login model.Login) (user *model.User, created bool, err error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// compile-time interface checks
var (
	_ EntityStore[*model.Appointment] = (*PostgresEntityRepo[*model.Appointment])(nil)
	_ EntityStore[*model.Issue]       = (*PostgresEntityRepo[*model.Issue])(nil)
	_ EntityStore[*model.Weight]      = (*PostgresEntityRepo[*model.Weight])(nil)
	_ EntityStore[*model.Meal]        = (*PostgresEntityRepo[*model.Meal])(nil)
	_ EntityStore[*model.Exercise]    = (*PostgresEntityRepo[*model.Exercise])(nil)
)
