package handler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hitoshi/diabetes/internal/form"
	"github.com/hitoshi/diabetes/internal/model"
	"github.com/hitoshi/diabetes/internal/view"
)

// DateDefaults は作成フォームの日付・時刻の初期値を提供する。
// defaults.Providerが満たす。
type DateDefaults interface {
	RightNow(name string) map[string]string
	Today(name string) map[string]string
}

// ページあたりの件数
const (
	glucosePerPage = 5
	defaultPerPage = 15
)

// 入力値の上限（mg/dL、単位、kg）
const (
	maxGlucose = 1000
	maxInsulin = 500
	maxWeight  = 1000
)

// GlucoseResource は血糖値の画面定義を返す。トップページを兼ねる。
func GlucoseResource(d DateDefaults) Resource[*model.Glucose] {
	return Resource[*model.Glucose]{
		Name:      "glucose",
		Title:     "血糖値",
		Base:      "/glucoses/",
		Landing:   "/",
		PerPage:   glucosePerPage,
		ShowChart: true,
		Fields: []view.Field{
			{Name: "moment", Label: "タイミング", Type: "select", Required: true, Choices: model.Moments},
			{Name: "glucose", Label: "血糖値", Type: "number", Step: "any", Required: true},
			{Name: "insulin", Label: "インスリン", Type: "number", Step: "any"},
			{Name: "comment", Label: "コメント", Type: "textarea"},
			{Name: "date_glucose", Label: "日付", Type: "date", Required: true},
			{Name: "hour_glucose", Label: "時刻", Type: "time", Step: "1", Required: true},
		},
		Columns: []string{"日付", "時刻", "タイミング", "血糖値", "インスリン", "コメント"},
		New:     func() *model.Glucose { return &model.Glucose{} },
		Cells: func(g *model.Glucose) []string {
			return []string{
				formatDate(g.Date), g.Hour, model.ChoiceLabel(model.Moments, g.Moment),
				formatFloat(g.Glucose), formatNullableFloat(g.Insulin), g.Comment,
			}
		},
		Summary: func(g *model.Glucose) string {
			return fmt.Sprintf("%s %s 血糖値 %s", formatDate(g.Date), g.Hour, formatFloat(g.Glucose))
		},
		Initial: func() map[string]string { return d.RightNow("glucose") },
		Values: func(g *model.Glucose) map[string]string {
			return map[string]string{
				"moment":       g.Moment,
				"glucose":      formatFloat(g.Glucose),
				"insulin":      formatNullableFloat(g.Insulin),
				"comment":      g.Comment,
				"date_glucose": formatDate(g.Date),
				"hour_glucose": g.Hour,
			}
		},
		Bind: func(f *form.Form, g *model.Glucose) {
			g.Moment = f.Choice("moment", model.Moments)
			g.Glucose = f.Float("glucose")
			f.Positive("glucose", g.Glucose)
			f.Max("glucose", g.Glucose, maxGlucose)
			g.Insulin = f.OptionalFloat("insulin")
			if g.Insulin != nil {
				f.NonNegative("insulin", *g.Insulin)
				f.Max("insulin", *g.Insulin, maxInsulin)
			}
			g.Comment = f.Text("comment")
			g.Date = f.Date("date_glucose")
			g.Hour = f.Hour("hour_glucose")
		},
	}
}

// AppointmentResource は診察予約の画面定義を返す。
func AppointmentResource(d DateDefaults) Resource[*model.Appointment] {
	return Resource[*model.Appointment]{
		Name:    "appointment",
		Title:   "予約",
		Base:    "/appointments/",
		Landing: "/appointments/",
		PerPage: defaultPerPage,
		Fields: []view.Field{
			{Name: "appointment_types", Label: "種別", Type: "select", Required: true, Choices: model.AppointmentTypes},
			{Name: "title", Label: "件名", Type: "text", Required: true},
			{Name: "body", Label: "内容", Type: "textarea"},
			{Name: "date_appointment", Label: "日付", Type: "date", Required: true},
			{Name: "hour_appointment", Label: "時刻", Type: "time", Step: "1", Required: true},
			{Name: "recall_one_duration", Label: "リマインダー1", Type: "number", Step: "1"},
			{Name: "recall_one_unit", Label: "単位", Type: "select", Choices: model.RecallUnits},
			{Name: "recall_two_duration", Label: "リマインダー2", Type: "number", Step: "1"},
			{Name: "recall_two_unit", Label: "単位", Type: "select", Choices: model.RecallUnits},
		},
		Columns: []string{"日付", "時刻", "種別", "件名"},
		New:     func() *model.Appointment { return &model.Appointment{} },
		Cells: func(a *model.Appointment) []string {
			return []string{
				formatDate(a.Date), a.Hour, model.ChoiceLabel(model.AppointmentTypes, a.AppointmentType), a.Title,
			}
		},
		Summary: func(a *model.Appointment) string {
			return fmt.Sprintf("%s %s %s", formatDate(a.Date), a.Hour, a.Title)
		},
		Initial: func() map[string]string { return d.RightNow("appointment") },
		Values: func(a *model.Appointment) map[string]string {
			return map[string]string{
				"appointment_types":   a.AppointmentType,
				"title":               a.Title,
				"body":                a.Body,
				"date_appointment":    formatDate(a.Date),
				"hour_appointment":    a.Hour,
				"recall_one_duration": strconv.Itoa(a.RecallOneDuration),
				"recall_one_unit":     a.RecallOneUnit,
				"recall_two_duration": strconv.Itoa(a.RecallTwoDuration),
				"recall_two_unit":     a.RecallTwoUnit,
			}
		},
		Bind: func(f *form.Form, a *model.Appointment) {
			a.AppointmentType = f.Choice("appointment_types", model.AppointmentTypes)
			a.Title = f.RequiredText("title")
			a.Body = f.Text("body")
			a.Date = f.Date("date_appointment")
			a.Hour = f.Hour("hour_appointment")
			a.RecallOneDuration = f.Int("recall_one_duration")
			f.NonNegative("recall_one_duration", float64(a.RecallOneDuration))
			a.RecallOneUnit = f.OptionalChoice("recall_one_unit", model.RecallUnits)
			a.RecallTwoDuration = f.Int("recall_two_duration")
			f.NonNegative("recall_two_duration", float64(a.RecallTwoDuration))
			a.RecallTwoUnit = f.OptionalChoice("recall_two_unit", model.RecallUnits)
		},
	}
}

// IssueResource は質問の画面定義を返す。
func IssueResource() Resource[*model.Issue] {
	return Resource[*model.Issue]{
		Name:    "issue",
		Title:   "質問",
		Base:    "/issues/",
		Landing: "/issues/",
		PerPage: defaultPerPage,
		Fields: []view.Field{
			{Name: "question", Label: "質問", Type: "textarea", Required: true},
			{Name: "question_to", Label: "質問先", Type: "text"},
			{Name: "answer", Label: "回答", Type: "textarea"},
			{Name: "date_answer", Label: "回答日", Type: "date"},
		},
		Columns: []string{"質問", "質問先", "回答", "回答日"},
		New:     func() *model.Issue { return &model.Issue{} },
		Cells: func(i *model.Issue) []string {
			return []string{i.Question, i.QuestionTo, i.Answer, formatNullableDate(i.DateAnswer)}
		},
		Summary: func(i *model.Issue) string { return i.Question },
		Values: func(i *model.Issue) map[string]string {
			return map[string]string{
				"question":    i.Question,
				"question_to": i.QuestionTo,
				"answer":      i.Answer,
				"date_answer": formatNullableDate(i.DateAnswer),
			}
		},
		Bind: func(f *form.Form, i *model.Issue) {
			i.Question = f.RequiredText("question")
			i.QuestionTo = f.Text("question_to")
			i.Answer = f.Text("answer")
			i.DateAnswer = f.OptionalDate("date_answer")
		},
	}
}

// WeightResource は体重の画面定義を返す。
func WeightResource(d DateDefaults) Resource[*model.Weight] {
	return Resource[*model.Weight]{
		Name:    "weight",
		Title:   "体重",
		Base:    "/weights/",
		Landing: "/weights/",
		PerPage: defaultPerPage,
		Fields: []view.Field{
			{Name: "weight", Label: "体重(kg)", Type: "number", Step: "any", Required: true},
			{Name: "date_weight", Label: "日付", Type: "date", Required: true},
		},
		Columns: []string{"日付", "体重"},
		New:     func() *model.Weight { return &model.Weight{} },
		Cells: func(wt *model.Weight) []string {
			return []string{formatDate(wt.Date), formatFloat(wt.Weight)}
		},
		Summary: func(wt *model.Weight) string {
			return fmt.Sprintf("%s %skg", formatDate(wt.Date), formatFloat(wt.Weight))
		},
		Initial: func() map[string]string { return d.Today("weight") },
		Values: func(wt *model.Weight) map[string]string {
			return map[string]string{
				"weight":      formatFloat(wt.Weight),
				"date_weight": formatDate(wt.Date),
			}
		},
		Bind: func(f *form.Form, wt *model.Weight) {
			wt.Weight = f.Float("weight")
			f.Positive("weight", wt.Weight)
			f.Max("weight", wt.Weight, maxWeight)
			wt.Date = f.Date("date_weight")
		},
	}
}

// MealResource は食事の画面定義を返す。
func MealResource(d DateDefaults) Resource[*model.Meal] {
	return Resource[*model.Meal]{
		Name:    "meal",
		Title:   "食事",
		Base:    "/meals/",
		Landing: "/meals/",
		PerPage: defaultPerPage,
		Fields: []view.Field{
			{Name: "food", Label: "内容", Type: "textarea", Required: true},
			{Name: "breakfast_lunch_diner", Label: "区分", Type: "select", Required: true, Choices: model.MealSlots},
			{Name: "date_meal", Label: "日付", Type: "date", Required: true},
			{Name: "hour_meal", Label: "時刻", Type: "time", Step: "1", Required: true},
		},
		Columns: []string{"日付", "時刻", "区分", "内容"},
		New:     func() *model.Meal { return &model.Meal{} },
		Cells: func(m *model.Meal) []string {
			return []string{formatDate(m.Date), m.Hour, model.ChoiceLabel(model.MealSlots, m.Slot), m.Food}
		},
		Summary: func(m *model.Meal) string {
			return fmt.Sprintf("%s %s %s", formatDate(m.Date), model.ChoiceLabel(model.MealSlots, m.Slot), m.Food)
		},
		Initial: func() map[string]string { return d.RightNow("meal") },
		Values: func(m *model.Meal) map[string]string {
			return map[string]string{
				"food":                  m.Food,
				"breakfast_lunch_diner": m.Slot,
				"date_meal":             formatDate(m.Date),
				"hour_meal":             m.Hour,
			}
		},
		Bind: func(f *form.Form, m *model.Meal) {
			m.Food = f.RequiredText("food")
			m.Slot = f.Choice("breakfast_lunch_diner", model.MealSlots)
			m.Date = f.Date("date_meal")
			m.Hour = f.Hour("hour_meal")
		},
	}
}

// ExerciseResource は運動の画面定義を返す。
func ExerciseResource(d DateDefaults) Resource[*model.Exercise] {
	return Resource[*model.Exercise]{
		Name:    "exercise",
		Title:   "運動",
		Base:    "/exercises/",
		Landing: "/exercises/",
		PerPage: defaultPerPage,
		Fields: []view.Field{
			{Name: "sports", Label: "種目", Type: "text", Required: true},
			{Name: "comment", Label: "コメント", Type: "textarea"},
			{Name: "duration", Label: "時間(分)", Type: "number", Step: "1"},
			{Name: "date_exercise", Label: "日付", Type: "date", Required: true},
			{Name: "hour_exercise", Label: "時刻", Type: "time", Step: "1", Required: true},
		},
		Columns: []string{"日付", "時刻", "種目", "時間(分)", "コメント"},
		New:     func() *model.Exercise { return &model.Exercise{} },
		Cells: func(x *model.Exercise) []string {
			return []string{formatDate(x.Date), x.Hour, x.Sports, strconv.Itoa(x.Duration), x.Comment}
		},
		Summary: func(x *model.Exercise) string {
			return fmt.Sprintf("%s %s %d分", formatDate(x.Date), x.Sports, x.Duration)
		},
		Initial: func() map[string]string { return d.RightNow("exercise") },
		Values: func(x *model.Exercise) map[string]string {
			return map[string]string{
				"sports":        x.Sports,
				"comment":       x.Comment,
				"duration":      strconv.Itoa(x.Duration),
				"date_exercise": formatDate(x.Date),
				"hour_exercise": x.Hour,
			}
		},
		Bind: func(f *form.Form, x *model.Exercise) {
			x.Sports = f.RequiredText("sports")
			x.Comment = f.Text("comment")
			x.Duration = f.Int("duration")
			f.NonNegative("duration", float64(x.Duration))
			x.Date = f.Date("date_exercise")
			x.Hour = f.Hour("hour_exercise")
		},
	}
}

// ExaminationResource は検査の画面定義を返す。詳細のフォームセットはExamHandlerが扱う。
func ExaminationResource(d DateDefaults) Resource[*model.Examination] {
	return Resource[*model.Examination]{
		Name:    "examination",
		Title:   "検査",
		Base:    "/exams/",
		Landing: "/exams/",
		PerPage: defaultPerPage,
		Fields: []view.Field{
			{Name: "examination_types", Label: "検査種別", Type: "text", Required: true},
			{Name: "comments", Label: "コメント", Type: "textarea"},
			{Name: "date_examination", Label: "日付", Type: "date", Required: true},
			{Name: "hour_examination", Label: "時刻", Type: "time", Step: "1", Required: true},
		},
		Columns: []string{"日付", "時刻", "検査種別", "コメント"},
		New:     func() *model.Examination { return &model.Examination{} },
		Cells: func(x *model.Examination) []string {
			return []string{formatDate(x.Date), x.Hour, x.ExaminationType, x.Comments}
		},
		Summary: func(x *model.Examination) string {
			return fmt.Sprintf("%s %s", formatDate(x.Date), x.ExaminationType)
		},
		Initial: func() map[string]string { return d.RightNow("examination") },
		Values: func(x *model.Examination) map[string]string {
			return map[string]string{
				"examination_types": x.ExaminationType,
				"comments":          x.Comments,
				"date_examination":  formatDate(x.Date),
				"hour_examination":  x.Hour,
			}
		},
		Bind: func(f *form.Form, x *model.Examination) {
			x.ExaminationType = f.RequiredText("examination_types")
			x.Comments = f.Text("comments")
			x.Date = f.Date("date_examination")
			x.Hour = f.Hour("hour_examination")
		},
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNullableFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}

func formatNullableDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDate(*t)
}
