package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/diabetes/internal/form"
	"github.com/hitoshi/diabetes/internal/model"
	"github.com/hitoshi/diabetes/internal/repository"
	"github.com/hitoshi/diabetes/internal/security"
	"github.com/hitoshi/diabetes/internal/view"
)

// detailsPrefix は検査詳細フォームセットの名前の接頭辞。
const detailsPrefix = "details"

// detailExtraRows はフォームセットの末尾に追加する空行の数。
const detailExtraRows = 1

const msgUnknownDetail = "この検査に属さない項目です。"

var detailFields = []view.Field{
	{Name: "title", Label: "項目", Type: "text", Required: true},
	{Name: "value", Label: "値", Type: "number", Step: "any", Required: true},
}

// ExamHandler は検査とその詳細（フォームセット）をまとめて扱うハンドラー。
// 一覧と削除はEntityHandlerに委譲する。
type ExamHandler struct {
	entity *EntityHandler[*model.Examination]
	store  repository.ExaminationRepository
}

// NewExamHandler はExamHandlerを生成する。
func NewExamHandler(
	store repository.ExaminationRepository,
	defaults DateDefaults,
	pages *Pages,
	sanitizer security.Sanitizer,
	metrics EntityMetrics,
) *ExamHandler {
	return &ExamHandler{
		entity: NewEntityHandler[*model.Examination](ExaminationResource(defaults), store, pages, sanitizer, metrics),
		store:  store,
	}
}

// Handle は操作に対応するハンドラーを返す。
func (h *ExamHandler) Handle(action Action) http.HandlerFunc {
	switch action {
	case ActionCreate:
		return h.create
	case ActionUpdate:
		return h.update
	default:
		return h.entity.Handle(action)
	}
}

// create は検査を作成する。フォームセットは表示のみで、作成時は親だけを保存する。
func (h *ExamHandler) create(w http.ResponseWriter, r *http.Request) {
	e := h.entity
	if r.Method != http.MethodPost {
		e.renderForm(w, r, formState{
			action:  r.URL.Path,
			values:  e.initial(),
			details: storedDetailsView(nil),
		})
		return
	}

	userID, ok := e.requireUser(w, r)
	if !ok {
		return
	}
	f, ok := e.parseForm(w, r)
	if !ok {
		return
	}

	exam := &model.Examination{}
	e.res.Bind(f, exam)
	if !f.Valid() {
		e.metrics.RecordValidationFailure(e.res.Name)
		set := form.ParseSet(r.PostForm, detailsPrefix, e.sanitizer)
		e.renderForm(w, r, formState{
			action:  r.URL.Path,
			values:  f.Values(),
			errors:  f.Errors,
			details: submittedDetailsView(set),
		})
		return
	}

	exam.UserID = userID
	if err := h.store.Create(r.Context(), exam); err != nil {
		e.pages.handleError(w, r, err)
		return
	}

	e.recordOperation(r, ActionCreate, exam.Base())
	http.Redirect(w, r, e.res.Landing, http.StatusFound)
}

// update は検査と詳細を更新する。
// 親が不正なら再表示する。親が正しく詳細が不正な場合は何も保存せず一覧へ戻る。
// 両方正しい場合は親と詳細の差分を1トランザクションで保存する。
func (h *ExamHandler) update(w http.ResponseWriter, r *http.Request) {
	e := h.entity
	exam, err := h.store.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		e.pages.handleError(w, r, err)
		return
	}
	stored, err := h.store.ListDetails(r.Context(), exam.ID)
	if err != nil {
		e.pages.handleError(w, r, err)
		return
	}

	if r.Method != http.MethodPost {
		e.renderForm(w, r, formState{
			action:  r.URL.Path,
			editing: true,
			values:  e.res.Values(exam),
			details: storedDetailsView(stored),
		})
		return
	}

	if _, ok := e.requireUser(w, r); !ok {
		return
	}
	f, ok := e.parseForm(w, r)
	if !ok {
		return
	}

	e.res.Bind(f, exam)
	set := form.ParseSet(r.PostForm, detailsPrefix, e.sanitizer)
	changes := bindDetails(set, exam.ID, stored)

	if !f.Valid() {
		e.metrics.RecordValidationFailure(e.res.Name)
		e.renderForm(w, r, formState{
			action:  r.URL.Path,
			editing: true,
			values:  f.Values(),
			errors:  f.Errors,
			details: submittedDetailsView(set),
		})
		return
	}

	if !set.Valid() {
		e.metrics.RecordValidationFailure(e.res.Name)
		slog.Warn("examination details invalid, nothing saved",
			slog.String("id", exam.ID),
			slog.String("management_error", set.ManagementError),
		)
		http.Redirect(w, r, e.res.Landing, http.StatusFound)
		return
	}

	if err := h.store.SaveWithDetails(r.Context(), exam, changes); err != nil {
		e.pages.handleError(w, r, err)
		return
	}

	e.recordOperation(r, ActionUpdate, exam.Base())
	http.Redirect(w, r, e.res.Landing, http.StatusFound)
}

// bindDetails はフォームセットを検証し、保存済みの詳細との差分を組み立てる。
// 新規の空行と削除指定された新規行は無視する。既存行のIDはこの検査に属していなければならない。
func bindDetails(set *form.Set, examinationID string, stored []*model.ExamDetail) model.ExamDetailChanges {
	owned := make(map[string]bool, len(stored))
	for _, d := range stored {
		owned[d.ID] = true
	}

	var changes model.ExamDetailChanges
	for _, row := range set.Rows {
		id := row.Raw(form.IDField)
		if id == "" && (row.Blank() || row.Delete) {
			continue
		}
		if id != "" && !owned[id] {
			row.Errors.Add(form.IDField, msgUnknownDetail)
			continue
		}
		if row.Delete {
			changes.Delete = append(changes.Delete, id)
			continue
		}

		d := &model.ExamDetail{
			ID:            id,
			ExaminationID: examinationID,
			Title:         row.RequiredText("title"),
			Value:         row.Float("value"),
		}
		if !row.Valid() {
			continue
		}
		if id == "" {
			changes.Create = append(changes.Create, d)
		} else {
			changes.Update = append(changes.Update, d)
		}
	}
	return changes
}

// storedDetailsView は保存済みの詳細と空行からフォームセットの表示データを作る。
func storedDetailsView(stored []*model.ExamDetail) *view.FormSet {
	fs := &view.FormSet{
		Prefix:       detailsPrefix,
		InitialForms: len(stored),
		TotalForms:   len(stored) + detailExtraRows,
	}
	for i, d := range stored {
		values := map[string]string{"title": d.Title, "value": formatFloat(d.Value)}
		fs.Rows = append(fs.Rows, view.FormSetRow{
			Index:  i,
			ID:     d.ID,
			Fields: bindFields(detailFields, form.FieldName(detailsPrefix, i, ""), values, nil),
		})
	}
	for i := len(stored); i < fs.TotalForms; i++ {
		fs.Rows = append(fs.Rows, view.FormSetRow{
			Index:  i,
			Fields: bindFields(detailFields, form.FieldName(detailsPrefix, i, ""), nil, nil),
		})
	}
	return fs
}

// submittedDetailsView は送信されたフォームセットを入力値とエラー付きで再表示用に変換する。
func submittedDetailsView(set *form.Set) *view.FormSet {
	if set.ManagementError != "" {
		fs := storedDetailsView(nil)
		fs.Error = set.ManagementError
		return fs
	}

	fs := &view.FormSet{Prefix: detailsPrefix, TotalForms: len(set.Rows)}
	for _, row := range set.Rows {
		id := row.Raw(form.IDField)
		if id != "" {
			fs.InitialForms++
		}
		fs.Rows = append(fs.Rows, view.FormSetRow{
			Index:  row.Index,
			ID:     id,
			Delete: row.Delete,
			Fields: bindFields(detailFields, form.FieldName(detailsPrefix, row.Index, ""), row.Values(), row.Errors),
		})
	}
	return fs
}
