package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/diabetes/internal/model"
)

// PostgresGlucoseRepo はPostgreSQLを使用した血糖値リポジトリ。
type PostgresGlucoseRepo struct {
	*PostgresEntityRepo[*model.Glucose]
}

// NewPostgresGlucoseRepo はPostgresGlucoseRepoを生成する。
func NewPostgresGlucoseRepo(db *sql.DB) *PostgresGlucoseRepo {
	return &PostgresGlucoseRepo{PostgresEntityRepo: NewPostgresEntityRepo(db, GlucoseTable)}
}

// ListRecent は新しい順に最大limit件の測定記録を返す。
func (r *PostgresGlucoseRepo) ListRecent(ctx context.Context, limit int) ([]*model.Glucose, error) {
	return r.query(ctx, " ORDER BY date_glucose DESC, hour_glucose DESC LIMIT $1", limit)
}

// compile-time interface check
var _ GlucoseRepository = (*PostgresGlucoseRepo)(nil)
