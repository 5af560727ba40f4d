package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/diabetes/internal/model"
)

// PostgresExaminationRepo はPostgreSQLを使用した検査リポジトリ。
// 検査詳細（exam_details）は親の保存操作を通じてのみ変更する。
type PostgresExaminationRepo struct {
	*PostgresEntityRepo[*model.Examination]
}

// NewPostgresExaminationRepo はPostgresExaminationRepoを生成する。
func NewPostgresExaminationRepo(db *sql.DB) *PostgresExaminationRepo {
	return &PostgresExaminationRepo{PostgresEntityRepo: NewPostgresEntityRepo(db, ExaminationTable)}
}

// ListDetails は検査に属する詳細を登録順に返す。
func (r *PostgresExaminationRepo) ListDetails(ctx context.Context, examinationID string) ([]*model.ExamDetail, error) {
	if !validID(examinationID) {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, examination_id, title, value
		 FROM exam_details
		 WHERE examination_id = $1
		 ORDER BY created_at ASC, id ASC`,
		examinationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list exam details: %w", err)
	}
	defer rows.Close()

	var details []*model.ExamDetail
	for rows.Next() {
		d := &model.ExamDetail{}
		if err := rows.Scan(&d.ID, &d.ExaminationID, &d.Title, &d.Value); err != nil {
			return nil, fmt.Errorf("failed to scan exam detail: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exam details: %w", err)
	}
	return details, nil
}

// SaveWithDetails は検査の更新と詳細の追加・更新・削除を同一トランザクションで行う。
// いずれかが失敗した場合は何も永続化しない。
func (r *PostgresExaminationRepo) SaveWithDetails(ctx context.Context, exam *model.Examination, changes model.ExamDetailChanges) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.update(ctx, tx, exam); err != nil {
		return err
	}

	for _, id := range changes.Delete {
		if !validID(id) {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM exam_details WHERE id = $1 AND examination_id = $2`,
			id, exam.ID,
		); err != nil {
			return fmt.Errorf("failed to delete exam detail: %w", err)
		}
	}

	for _, d := range changes.Update {
		if !validID(d.ID) {
			return model.NewNotFoundError("exam_detail", d.ID)
		}
		result, err := tx.ExecContext(ctx,
			`UPDATE exam_details SET title = $3, value = $4 WHERE id = $1 AND examination_id = $2`,
			d.ID, exam.ID, d.Title, d.Value,
		)
		if err != nil {
			return fmt.Errorf("failed to update exam detail: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		} else if n == 0 {
			return model.NewNotFoundError("exam_detail", d.ID)
		}
		d.ExaminationID = exam.ID
	}

	for _, d := range changes.Create {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		d.ExaminationID = exam.ID
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO exam_details (id, examination_id, title, value, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			d.ID, d.ExaminationID, d.Title, d.Value, r.now(),
		); err != nil {
			return fmt.Errorf("failed to insert exam detail: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ExaminationRepository = (*PostgresExaminationRepo)(nil)
