package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/diabetes/internal/model"
)

// Column は記録テーブルの業務カラム。
// Castを指定した場合、SELECT時に "name::cast" として読み出す。
type Column struct {
	Name string
	Cast string
}

func (c Column) selectExpr() string {
	if c.Cast == "" {
		return c.Name
	}
	return c.Name + "::" + c.Cast
}

// Table は記録エンティティとテーブルの対応を定義する。
// Fields と Values は Columns と同じ順序でフィールドを返すこと。
type Table[E model.Entity] struct {
	Name    string // テーブル名
	Entity  string // エラーメッセージ用のエンティティ名
	Columns []Column
	OrderBy string // 一覧の並び順（ORDER BY句の中身）
	New     func() E
	Fields  func(e E) []any // Scan先
	Values  func(e E) []any // INSERT/UPDATEの値
}

// Executor は *sql.DB と *sql.Tx の共通メソッド。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresEntityRepo はPostgreSQLを使用した記録エンティティの汎用リポジトリ。
type PostgresEntityRepo[E model.Entity] struct {
	db    *sql.DB
	table Table[E]
	now   func() time.Time

	selectSQL string
	insertSQL string
	updateSQL string
	deleteSQL string
}

// NewPostgresEntityRepo はテーブル定義からPostgresEntityRepoを生成する。
func NewPostgresEntityRepo[E model.Entity](db *sql.DB, table Table[E]) *PostgresEntityRepo[E] {
	r := &PostgresEntityRepo[E]{
		db:    db,
		table: table,
		now:   time.Now,
	}
	r.buildQueries()
	return r
}

func (r *PostgresEntityRepo[E]) buildQueries() {
	t := r.table
	n := len(t.Columns)

	selects := make([]string, 0, n+4)
	selects = append(selects, "id", "user_id", "created_at", "updated_at")
	names := make([]string, 0, n+4)
	names = append(names, "id", "user_id", "created_at", "updated_at")
	sets := make([]string, 0, n+1)
	for i, c := range t.Columns {
		selects = append(selects, c.selectExpr())
		names = append(names, c.Name)
		sets = append(sets, fmt.Sprintf("%s = $%d", c.Name, i+2))
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", n+2))

	placeholders := make([]string, len(names))
	for i := range names {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	r.selectSQL = fmt.Sprintf("SELECT %s FROM %s", strings.Join(selects, ", "), t.Name)
	r.insertSQL = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.Name, strings.Join(names, ", "), strings.Join(placeholders, ", "))
	// user_idは更新しない（作成時の所有者を維持する）
	r.updateSQL = fmt.Sprintf("UPDATE %s SET %s WHERE id = $1", t.Name, strings.Join(sets, ", "))
	r.deleteSQL = fmt.Sprintf("DELETE FROM %s WHERE id = $1", t.Name)
}

// Create は記録を作成する。IDが未設定の場合はUUIDを割り当てる。
func (r *PostgresEntityRepo[E]) Create(ctx context.Context, e E) error {
	return r.create(ctx, r.db, e)
}

func (r *PostgresEntityRepo[E]) create(ctx context.Context, exec Executor, e E) error {
	rec := e.Base()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := r.now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	args := append([]any{rec.ID, rec.UserID, rec.CreatedAt, rec.UpdatedAt}, r.table.Values(e)...)
	if _, err := exec.ExecContext(ctx, r.insertSQL, args...); err != nil {
		return fmt.Errorf("failed to create %s: %w", r.table.Entity, err)
	}
	return nil
}

// Update は記録の業務カラムを上書き更新する。所有者は変更しない。
func (r *PostgresEntityRepo[E]) Update(ctx context.Context, e E) error {
	return r.update(ctx, r.db, e)
}

func (r *PostgresEntityRepo[E]) update(ctx context.Context, exec Executor, e E) error {
	rec := e.Base()
	if !validID(rec.ID) {
		return model.NewNotFoundError(r.table.Entity, rec.ID)
	}
	rec.UpdatedAt = r.now()

	args := append([]any{rec.ID}, r.table.Values(e)...)
	args = append(args, rec.UpdatedAt)
	result, err := exec.ExecContext(ctx, r.updateSQL, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", r.table.Entity, err)
	}
	return r.requireAffected(result, rec.ID)
}

// Delete は指定IDの記録を削除する。
func (r *PostgresEntityRepo[E]) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return model.NewNotFoundError(r.table.Entity, id)
	}
	result, err := r.db.ExecContext(ctx, r.deleteSQL, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", r.table.Entity, err)
	}
	return r.requireAffected(result, id)
}

// FindByID は指定IDの記録を取得する。見つからない場合はNOT_FOUNDのAPIErrorを返す。
func (r *PostgresEntityRepo[E]) FindByID(ctx context.Context, id string) (E, error) {
	var zero E
	if !validID(id) {
		return zero, model.NewNotFoundError(r.table.Entity, id)
	}

	e := r.table.New()
	err := r.db.QueryRowContext(ctx, r.selectSQL+" WHERE id = $1", id).Scan(r.dest(e)...)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, model.NewNotFoundError(r.table.Entity, id)
	}
	if err != nil {
		return zero, fmt.Errorf("failed to find %s: %w", r.table.Entity, err)
	}
	return e, nil
}

// List は全ユーザーの記録を既定の並び順で返す。
func (r *PostgresEntityRepo[E]) List(ctx context.Context) ([]E, error) {
	return r.query(ctx, " ORDER BY "+r.table.OrderBy)
}

// query はSELECT文にsuffix（WHERE/ORDER BY/LIMIT）を付けて実行する。
func (r *PostgresEntityRepo[E]) query(ctx context.Context, suffix string, args ...any) ([]E, error) {
	rows, err := r.db.QueryContext(ctx, r.selectSQL+suffix, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.table.Entity, err)
	}
	defer rows.Close()

	var out []E
	for rows.Next() {
		e := r.table.New()
		if err := rows.Scan(r.dest(e)...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", r.table.Entity, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", r.table.Entity, err)
	}
	return out, nil
}

func (r *PostgresEntityRepo[E]) dest(e E) []any {
	rec := e.Base()
	return append([]any{&rec.ID, &rec.UserID, &rec.CreatedAt, &rec.UpdatedAt}, r.table.Fields(e)...)
}

func (r *PostgresEntityRepo[E]) requireAffected(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return model.NewNotFoundError(r.table.Entity, id)
	}
	return nil
}

// validID はIDがUUID形式かどうかを返す。
// 形式不正のIDはPostgreSQLに渡さず、存在しない記録として扱う。
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
