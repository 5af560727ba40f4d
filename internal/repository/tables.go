package repository

import (
	"database/sql"

	"github.com/hitoshi/diabetes/internal/model"
)

// 時刻カラムはTIME型のため文字列（HH:MM:SS）として読み出す。
func hourColumn(name string) Column {
	return Column{Name: name, Cast: "text"}
}

// GlucoseTable は血糖値テーブルの定義。
var GlucoseTable = Table[*model.Glucose]{
	Name:   "glucoses",
	Entity: "glucose",
	Columns: []Column{
		{Name: "moment"}, {Name: "glucose"}, {Name: "insulin"}, {Name: "comment"},
		{Name: "date_glucose"}, hourColumn("hour_glucose"),
	},
	OrderBy: "date_glucose DESC, hour_glucose DESC, created_at DESC",
	New:     func() *model.Glucose { return &model.Glucose{} },
	Fields: func(g *model.Glucose) []any {
		return []any{&g.Moment, &g.Glucose, &g.Insulin, &g.Comment, &g.Date, &g.Hour}
	},
	Values: func(g *model.Glucose) []any {
		return []any{g.Moment, g.Glucose, g.Insulin, g.Comment, g.Date, g.Hour}
	},
}

// AppointmentTable は診察予約テーブルの定義。
var AppointmentTable = Table[*model.Appointment]{
	Name:   "appointments",
	Entity: "appointment",
	Columns: []Column{
		{Name: "appointment_types"}, {Name: "title"}, {Name: "body"},
		{Name: "date_appointment"}, hourColumn("hour_appointment"),
		{Name: "recall_one_duration"}, {Name: "recall_one_unit"},
		{Name: "recall_two_duration"}, {Name: "recall_two_unit"},
	},
	OrderBy: "date_appointment DESC, hour_appointment DESC",
	New:     func() *model.Appointment { return &model.Appointment{} },
	Fields: func(a *model.Appointment) []any {
		return []any{
			&a.AppointmentType, &a.Title, &a.Body, &a.Date, &a.Hour,
			&a.RecallOneDuration, &a.RecallOneUnit, &a.RecallTwoDuration, &a.RecallTwoUnit,
		}
	},
	Values: func(a *model.Appointment) []any {
		return []any{
			a.AppointmentType, a.Title, a.Body, a.Date, a.Hour,
			a.RecallOneDuration, a.RecallOneUnit, a.RecallTwoDuration, a.RecallTwoUnit,
		}
	},
}

// IssueTable は質問テーブルの定義。
var IssueTable = Table[*model.Issue]{
	Name:   "issues",
	Entity: "issue",
	Columns: []Column{
		{Name: "question"}, {Name: "question_to"}, {Name: "answer"}, {Name: "date_answer"},
	},
	OrderBy: "created_at DESC",
	New:     func() *model.Issue { return &model.Issue{} },
	Fields: func(i *model.Issue) []any {
		return []any{&i.Question, &i.QuestionTo, &i.Answer, &i.DateAnswer}
	},
	Values: func(i *model.Issue) []any {
		var answered sql.NullTime
		if i.DateAnswer != nil {
			answered = sql.NullTime{Time: *i.DateAnswer, Valid: true}
		}
		return []any{i.Question, i.QuestionTo, i.Answer, answered}
	},
}

// WeightTable は体重テーブルの定義。一覧は登録順。
var WeightTable = Table[*model.Weight]{
	Name:   "weights",
	Entity: "weight",
	Columns: []Column{
		{Name: "weight"}, {Name: "date_weight"},
	},
	OrderBy: "created_at ASC, id ASC",
	New:     func() *model.Weight { return &model.Weight{} },
	Fields: func(w *model.Weight) []any {
		return []any{&w.Weight, &w.Date}
	},
	Values: func(w *model.Weight) []any {
		return []any{w.Weight, w.Date}
	},
}

// MealTable は食事テーブルの定義。一覧は登録順。
var MealTable = Table[*model.Meal]{
	Name:   "meals",
	Entity: "meal",
	Columns: []Column{
		{Name: "food"}, {Name: "breakfast_lunch_diner"}, {Name: "date_meal"}, hourColumn("hour_meal"),
	},
	OrderBy: "created_at ASC, id ASC",
	New:     func() *model.Meal { return &model.Meal{} },
	Fields: func(m *model.Meal) []any {
		return []any{&m.Food, &m.Slot, &m.Date, &m.Hour}
	},
	Values: func(m *model.Meal) []any {
		return []any{m.Food, m.Slot, m.Date, m.Hour}
	},
}

// ExerciseTable は運動テーブルの定義。一覧は登録順。
var ExerciseTable = Table[*model.Exercise]{
	Name:   "exercises",
	Entity: "exercise",
	Columns: []Column{
		{Name: "sports"}, {Name: "comment"}, {Name: "duration"},
		{Name: "date_exercise"}, hourColumn("hour_exercise"),
	},
	OrderBy: "created_at ASC, id ASC",
	New:     func() *model.Exercise { return &model.Exercise{} },
	Fields: func(e *model.Exercise) []any {
		return []any{&e.Sports, &e.Comment, &e.Duration, &e.Date, &e.Hour}
	},
	Values: func(e *model.Exercise) []any {
		return []any{e.Sports, e.Comment, e.Duration, e.Date, e.Hour}
	},
}

// ExaminationTable は検査テーブルの定義。
var ExaminationTable = Table[*model.Examination]{
	Name:   "examinations",
	Entity: "examination",
	Columns: []Column{
		{Name: "examination_types"}, {Name: "comments"},
		{Name: "date_examination"}, hourColumn("hour_examination"),
	},
	OrderBy: "created_at DESC",
	New:     func() *model.Examination { return &model.Examination{} },
	Fields: func(e *model.Examination) []any {
		return []any{&e.ExaminationType, &e.Comments, &e.Date, &e.Hour}
	},
	Values: func(e *model.Examination) []any {
		return []any{e.ExaminationType, e.Comments, e.Date, e.Hour}
	},
}

// NewAppointmentRepo は診察予約リポジトリを生成する。
func NewAppointmentRepo(db *sql.DB) *PostgresEntityRepo[*model.Appointment] {
	return NewPostgresEntityRepo(db, AppointmentTable)
}

// NewIssueRepo は質問リポジトリを生成する。
func NewIssueRepo(db *sql.DB) *PostgresEntityRepo[*model.Issue] {
	return NewPostgresEntityRepo(db, IssueTable)
}

// NewWeightRepo は体重リポジトリを生成する。
func NewWeightRepo(db *sql.DB) *PostgresEntityRepo[*model.Weight] {
	return NewPostgresEntityRepo(db, WeightTable)
}

// NewMealRepo は食事リポジトリを生成する。
func NewMealRepo(db *sql.DB) *PostgresEntityRepo[*model.Meal] {
	return NewPostgresEntityRepo(db, MealTable)
}

// NewExerciseRepo は運動リポジトリを生成する。
func NewExerciseRepo(db *sql.DB) *PostgresEntityRepo[*model.Exercise] {
	return NewPostgresEntityRepo(db, ExerciseTable)
}
