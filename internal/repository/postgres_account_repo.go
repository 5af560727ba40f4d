package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/diabetes/internal/model"
)

// PostgresAccountRepo はusersとidentitiesをまとめて扱うリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

// RecordLogin はログインを記録し、対応するユーザーを返す。
// 既知のidentityならメールアドレス・表示名・last_loginを更新し、
// 初回ならユーザーとidentityを作成してcreated=trueを返す。
func (r *PostgresAccountRepo) RecordLogin(ctx context.Context, login model.Login) (*model.User, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	user := &model.User{Email: login.Email, Name: login.Name, LastLogin: &login.At, UpdatedAt: login.At}
	err = tx.QueryRowContext(ctx,
		`SELECT u.id, u.created_at
		 FROM identities i JOIN users u ON u.id = i.user_id
		 WHERE i.provider = $1 AND i.provider_user_id = $2
		 FOR UPDATE OF u`,
		login.Provider, login.ProviderUserID,
	).Scan(&user.ID, &user.CreatedAt)

	created := false
	switch {
	case errors.Is(err, sql.ErrNoRows):
		created = true
		user.ID = uuid.NewString()
		user.CreatedAt = login.At
		if err := insertAccount(ctx, tx, user, login); err != nil {
			return nil, false, err
		}
	case err != nil:
		return nil, false, fmt.Errorf("failed to find identity: %w", err)
	default:
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET email = $2, name = $3, last_login = $4, updated_at = $4 WHERE id = $1`,
			user.ID, user.Email, user.Name, login.At,
		)
		if err != nil {
			return nil, false, fmt.Errorf("failed to update user: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return user, created, nil
}

func insertAccount(ctx context.Context, tx *sql.Tx, user *model.User, login model.Login) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, email, name, last_login, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)`,
		user.ID, user.Email, user.Name, login.At, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO identities (id, user_id, provider, provider_user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), user.ID, login.Provider, login.ProviderUserID, login.At,
	)
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}
	return nil
}

var _ AccountRepository = (*PostgresAccountRepo)(nil)
