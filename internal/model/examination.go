package model

import "time"

// Examination は検査結果の記録を表す。
// ExamDetailを0件以上所有し、削除時は詳細もCASCADE削除される。
type Examination struct {
	Record
	ExaminationType string
	Comments        string
	Date            time.Time
	Hour            string
}

// ExamDetail は検査結果の個別項目（HbA1cなど）を表す。
// ライフサイクルは親のExaminationに従属し、親の保存操作でのみ変更される。
type ExamDetail struct {
	ID            string
	ExaminationID string
	Title         string
	Value         float64
}

// ExamDetailChanges は親の保存時に適用する子レコードの差分。
type ExamDetailChanges struct {
	Create []*ExamDetail
	Update []*ExamDetail
	Delete []string
}

// Empty は適用すべき差分が無いかどうかを返す。
func (c ExamDetailChanges) Empty() bool {
	return len(c.Create) == 0 && len(c.Update) == 0 && len(c.Delete) == 0
}
