package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/diabetes/internal/form"
	"github.com/hitoshi/diabetes/internal/middleware"
	"github.com/hitoshi/diabetes/internal/model"
	"github.com/hitoshi/diabetes/internal/pagination"
	"github.com/hitoshi/diabetes/internal/repository"
	"github.com/hitoshi/diabetes/internal/security"
	"github.com/hitoshi/diabetes/internal/view"
)

// Action はEntityHandlerが処理する操作の種類。
type Action int

const (
	ActionCreate Action = iota
	ActionUpdate
	ActionDelete
)

// String はメトリクスとログで使う操作名を返す。
func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// EntityMetrics は記録操作のメトリクス記録に必要なインターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type EntityMetrics interface {
	RecordEntityOperation(entity, action string)
	RecordValidationFailure(entity string)
}

// Resource は記録エンティティ1種類分の画面定義。
type Resource[E model.Entity] struct {
	Name      string // ログとメトリクスのラベル
	Title     string
	Base      string // 一覧・作成のパス（"/weights/"）。編集は Base+"edit/{id}"
	Landing   string // 保存・削除後のリダイレクト先
	PerPage   int
	ShowChart bool
	Fields    []view.Field // 値とエラーを除いた入力欄の定義
	Columns   []string
	New       func() E
	Cells     func(e E) []string
	Summary   func(e E) string            // 削除確認に表示する要約
	Initial   func() map[string]string    // 作成フォームの初期値
	Values    func(e E) map[string]string // 編集フォームの初期値
	Bind      func(f *form.Form, e E)     // フォーム値の検証とエンティティへの反映
}

// EntityHandler は1種類の記録エンティティの作成・一覧・編集・削除を処理する。
type EntityHandler[E model.Entity] struct {
	res       Resource[E]
	store     repository.EntityStore[E]
	pages     *Pages
	sanitizer security.Sanitizer
	metrics   EntityMetrics
}

// NewEntityHandler はEntityHandlerを生成する。
func NewEntityHandler[E model.Entity](
	res Resource[E],
	store repository.EntityStore[E],
	pages *Pages,
	sanitizer security.Sanitizer,
	metrics EntityMetrics,
) *EntityHandler[E] {
	return &EntityHandler[E]{
		res:       res,
		store:     store,
		pages:     pages,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// Handle は操作に対応するハンドラーを返す。
// GETはフォームまたは確認画面を表示し、POSTで保存または削除する。
func (h *EntityHandler[E]) Handle(action Action) http.HandlerFunc {
	switch action {
	case ActionUpdate:
		return h.update
	case ActionDelete:
		return h.delete
	default:
		return h.create
	}
}

// formState はフォーム再表示に必要な状態。
type formState struct {
	action  string
	editing bool
	values  map[string]string
	errors  form.Errors
	details *view.FormSet
}

func (h *EntityHandler[E]) create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.renderForm(w, r, formState{action: r.URL.Path, values: h.initial()})
		return
	}

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	f, ok := h.parseForm(w, r)
	if !ok {
		return
	}

	e := h.res.New()
	h.res.Bind(f, e)
	if !f.Valid() {
		h.metrics.RecordValidationFailure(h.res.Name)
		h.renderForm(w, r, formState{action: r.URL.Path, values: f.Values(), errors: f.Errors})
		return
	}

	// 所有者は常にセッションのユーザー
	e.Base().UserID = userID
	if err := h.store.Create(r.Context(), e); err != nil {
		h.pages.handleError(w, r, err)
		return
	}

	h.recordOperation(r, ActionCreate, e.Base())
	http.Redirect(w, r, h.res.Landing, http.StatusFound)
}

func (h *EntityHandler[E]) update(w http.ResponseWriter, r *http.Request) {
	e, err := h.store.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.pages.handleError(w, r, err)
		return
	}

	if r.Method != http.MethodPost {
		h.renderForm(w, r, formState{action: r.URL.Path, editing: true, values: h.res.Values(e)})
		return
	}

	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	f, ok := h.parseForm(w, r)
	if !ok {
		return
	}

	h.res.Bind(f, e)
	if !f.Valid() {
		h.metrics.RecordValidationFailure(h.res.Name)
		h.renderForm(w, r, formState{action: r.URL.Path, editing: true, values: f.Values(), errors: f.Errors})
		return
	}

	if err := h.store.Update(r.Context(), e); err != nil {
		h.pages.handleError(w, r, err)
		return
	}

	h.recordOperation(r, ActionUpdate, e.Base())
	http.Redirect(w, r, h.res.Landing, http.StatusFound)
}

func (h *EntityHandler[E]) delete(w http.ResponseWriter, r *http.Request) {
	e, err := h.store.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.pages.handleError(w, r, err)
		return
	}

	if r.Method != http.MethodPost {
		h.pages.render(w, r, http.StatusOK, view.PageConfirm, view.ConfirmPage{
			Layout:     h.pages.layout(r, h.res.Title+"の削除"),
			Summary:    h.res.Summary(e),
			FormAction: r.URL.Path,
			CancelHref: h.res.Landing,
		})
		return
	}

	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	if err := h.store.Delete(r.Context(), e.Base().ID); err != nil {
		h.pages.handleError(w, r, err)
		return
	}

	h.recordOperation(r, ActionDelete, e.Base())
	http.Redirect(w, r, h.res.Landing, http.StatusFound)
}

// renderForm はフォームと記録一覧を1画面で描画する。
// 一覧は全ユーザーの記録を既定の並び順でページ分割する。
func (h *EntityHandler[E]) renderForm(w http.ResponseWriter, r *http.Request, st formState) {
	items, err := h.store.List(r.Context())
	if err != nil {
		h.pages.handleError(w, r, err)
		return
	}
	page := pagination.Paginate(items, h.res.PerPage, r.URL.Query().Get("page"))

	rows := make([]view.Row, 0, len(page.Items))
	for _, e := range page.Items {
		rows = append(rows, view.Row{ID: e.Base().ID, Cells: h.res.Cells(e)})
	}

	h.pages.render(w, r, http.StatusOK, view.PageEntity, view.EntityPage{
		Layout:     h.pages.layout(r, h.res.Title),
		Heading:    h.res.Title,
		FormAction: st.action,
		Editing:    st.editing,
		CancelHref: h.res.Landing,
		Fields:     bindFields(h.res.Fields, "", st.values, st.errors),
		Details:    st.details,
		Columns:    h.res.Columns,
		Rows:       rows,
		EditBase:   h.res.Base + "edit/",
		DeleteBase: h.res.Base + "delete/",
		Pager:      toPager(page),
		ShowChart:  h.res.ShowChart,
	})
}

func (h *EntityHandler[E]) initial() map[string]string {
	if h.res.Initial == nil {
		return nil
	}
	return h.res.Initial()
}

// parseForm は送信されたフォームを読み取る。解析に失敗した場合は400を返す。
func (h *EntityHandler[E]) parseForm(w http.ResponseWriter, r *http.Request) (*form.Form, bool) {
	if err := r.ParseForm(); err != nil {
		slog.Warn("failed to parse form",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		h.pages.BadRequest(w, r)
		return nil, false
	}
	return form.New(r.PostForm, h.sanitizer), true
}

// requireUser はセッションのユーザーIDを返す。未認証の場合はログインへリダイレクトする。
func (h *EntityHandler[E]) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		h.pages.handleError(w, r, model.NewUnauthorizedError())
		return "", false
	}
	return userID, true
}

func (h *EntityHandler[E]) recordOperation(r *http.Request, action Action, rec *model.Record) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	slog.Info("record saved",
		slog.String("entity", h.res.Name),
		slog.String("action", action.String()),
		slog.String("id", rec.ID),
		slog.String("user_id", userID),
	)
	h.metrics.RecordEntityOperation(h.res.Name, action.String())
}

// bindFields は入力欄の定義に値とエラーを埋める。prefixは子フォームの名前付けに使う。
func bindFields(defs []view.Field, prefix string, values map[string]string, errs form.Errors) []view.Field {
	fields := make([]view.Field, len(defs))
	for i, def := range defs {
		f := def
		f.Value = values[def.Name]
		f.Error = errs.Get(def.Name)
		f.Name = prefix + def.Name
		fields[i] = f
	}
	return fields
}

func toPager[T any](p pagination.Page[T]) view.Pager {
	return view.Pager{
		Number:      p.Number,
		NumPages:    p.NumPages,
		Count:       p.Count,
		HasNext:     p.HasNext(),
		HasPrevious: p.HasPrevious(),
		Next:        p.NextNumber(),
		Previous:    p.PreviousNumber(),
	}
}
