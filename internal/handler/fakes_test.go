package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/diabetes/internal/chart"
	"github.com/hitoshi/diabetes/internal/defaults"
	"github.com/hitoshi/diabetes/internal/middleware"
	"github.com/hitoshi/diabetes/internal/model"
	"github.com/hitoshi/diabetes/internal/security"
	"github.com/hitoshi/diabetes/internal/view"
)

// --- インメモリのリポジトリ ---

// memStore はテスト用のインメモリEntityStore。挿入順で一覧を返す。
type memStore[E model.Entity] struct {
	mu        sync.Mutex
	items     []E
	seq       int
	clone     func(E) E
	listErr   error
	createErr error
}

func newMemStore[E model.Entity](clone func(E) E) *memStore[E] {
	return &memStore[E]{clone: clone}
}

func (m *memStore[E]) Create(ctx context.Context, e E) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	rec := e.Base()
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("00000000-0000-0000-0000-%012d", m.seq)
	}
	rec.CreatedAt = time.Date(2026, 10, 19, 0, 0, m.seq, 0, time.UTC)
	rec.UpdatedAt = rec.CreatedAt
	m.items = append(m.items, m.clone(e))
	return nil
}

func (m *memStore[E]) Update(ctx context.Context, e E) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, it := range m.items {
		if it.Base().ID == e.Base().ID {
			c := m.clone(e)
			// 所有者は変更しない
			c.Base().UserID = it.Base().UserID
			m.items[i] = c
			return nil
		}
	}
	return model.NewNotFoundError("record", e.Base().ID)
}

func (m *memStore[E]) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, it := range m.items {
		if it.Base().ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return model.NewNotFoundError("record", id)
}

func (m *memStore[E]) FindByID(ctx context.Context, id string) (E, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.Base().ID == id {
			return m.clone(it), nil
		}
	}
	var zero E
	return zero, model.NewNotFoundError("record", id)
}

func (m *memStore[E]) List(ctx context.Context) ([]E, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]E, len(m.items))
	for i, it := range m.items {
		out[i] = m.clone(it)
	}
	return out, nil
}

func (m *memStore[E]) all() []E {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]E(nil), m.items...)
}

func cloneOf[T any](v *T) *T {
	c := *v
	return &c
}

// memExamStore は検査と詳細のインメモリリポジトリ。
type memExamStore struct {
	*memStore[*model.Examination]
	details   map[string][]*model.ExamDetail
	saveCalls []model.ExamDetailChanges
	detailSeq int
}

func newMemExamStore() *memExamStore {
	return &memExamStore{
		memStore: newMemStore(cloneOf[model.Examination]),
		details:  map[string][]*model.ExamDetail{},
	}
}

func (m *memExamStore) ListDetails(ctx context.Context, examinationID string) ([]*model.ExamDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.ExamDetail(nil), m.details[examinationID]...), nil
}

func (m *memExamStore) SaveWithDetails(ctx context.Context, exam *model.Examination, changes model.ExamDetailChanges) error {
	if err := m.Update(ctx, exam); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls = append(m.saveCalls, changes)

	deleted := map[string]bool{}
	for _, id := range changes.Delete {
		deleted[id] = true
	}
	updated := map[string]*model.ExamDetail{}
	for _, d := range changes.Update {
		updated[d.ID] = d
	}

	var kept []*model.ExamDetail
	for _, d := range m.details[exam.ID] {
		if deleted[d.ID] {
			continue
		}
		if u, ok := updated[d.ID]; ok {
			d = u
		}
		kept = append(kept, d)
	}
	for _, d := range changes.Create {
		m.detailSeq++
		d.ID = fmt.Sprintf("detail-%d", m.detailSeq)
		d.ExaminationID = exam.ID
		kept = append(kept, d)
	}
	m.details[exam.ID] = kept
	return nil
}

// --- モック ---

type mockMetrics struct {
	mu          sync.Mutex
	operations  []string
	validations []string
}

func (m *mockMetrics) RecordEntityOperation(entity, action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations = append(m.operations, entity+":"+action)
}

func (m *mockMetrics) RecordValidationFailure(entity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validations = append(m.validations, entity)
}

func (m *mockMetrics) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {}

type mockSessionFinder struct {
	sessions map[string]*model.Session
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, nil
}

type mockAuthService struct {
	getLoginURLFn    func(state string) string
	handleCallbackFn func(ctx context.Context, code string) (*model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

type mockChartSummarizer struct {
	summarizeFn func(ctx context.Context) (chart.Data, error)
}

func (m *mockChartSummarizer) Summarize(ctx context.Context) (chart.Data, error) {
	if m.summarizeFn != nil {
		return m.summarizeFn(ctx)
	}
	return chart.Data{DateGlucose: []string{}, Glucose: []float64{}}, nil
}

type mockPinger struct {
	err error
}

func (m *mockPinger) PingContext(ctx context.Context) error {
	return m.err
}

// --- テスト用ルーター ---

const (
	testCSRFToken = "test-csrf-token"
	aliceSession  = "session-alice"
	bobSession    = "session-bob"
	aliceID       = "user-alice"
	bobID         = "user-bob"
)

// testNow は作成フォームの初期値に使う固定時刻（UTC）。
var testNow = time.Date(2026, 10, 19, 1, 2, 3, 0, time.UTC)

type testEnv struct {
	router       http.Handler
	glucoses     *memStore[*model.Glucose]
	appointments *memStore[*model.Appointment]
	issues       *memStore[*model.Issue]
	weights      *memStore[*model.Weight]
	meals        *memStore[*model.Meal]
	exercises    *memStore[*model.Exercise]
	exams        *memExamStore
	metrics      *mockMetrics
	chart        *mockChartSummarizer
	auth         *mockAuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	renderer, err := view.New()
	if err != nil {
		t.Fatalf("view.New() error: %v", err)
	}
	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	env := &testEnv{
		glucoses:     newMemStore(cloneOf[model.Glucose]),
		appointments: newMemStore(cloneOf[model.Appointment]),
		issues:       newMemStore(cloneOf[model.Issue]),
		weights:      newMemStore(cloneOf[model.Weight]),
		meals:        newMemStore(cloneOf[model.Meal]),
		exercises:    newMemStore(cloneOf[model.Exercise]),
		exams:        newMemExamStore(),
		metrics:      &mockMetrics{},
		chart:        &mockChartSummarizer{},
		auth:         &mockAuthService{},
	}

	env.router = NewRouter(&RouterDeps{
		Logger: slogDiscard(),
		SessionFinder: &mockSessionFinder{sessions: map[string]*model.Session{
			aliceSession: {ID: aliceSession, UserID: aliceID, ExpiresAt: testNow.Add(time.Hour)},
			bobSession:   {ID: bobSession, UserID: bobID, ExpiresAt: testNow.Add(time.Hour)},
		}},
		RateLimiter:       rl,
		CORSAllowedOrigin: "http://localhost:3000",
		Metrics:           env.metrics,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "# metrics")
		}),
		Renderer:    renderer,
		Sanitizer:   security.NewTextSanitizer(),
		Defaults:    defaults.NewProviderWithClock(time.UTC, func() time.Time { return testNow }),
		AuthService: env.auth,
		AuthConfig:  AuthHandlerConfig{SessionMaxAge: 3600},
		Health:      &mockPinger{},
		Chart:       env.chart,
		Stores: Stores{
			Glucose:     env.glucoses,
			Appointment: env.appointments,
			Issue:       env.issues,
			Weight:      env.weights,
			Meal:        env.meals,
			Exercise:    env.exercises,
			Examination: env.exams,
		},
	})
	return env
}

// get はセッション付きのGETリクエストを送る。sessionが空なら未認証。
func (env *testEnv) get(target, session string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if session != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: session})
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// post はCSRFトークン付きでフォームを送信する。
func (env *testEnv) post(target, session string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	form.Set(middleware.CSRFFormField, testCSRFToken)

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: testCSRFToken})
	if session != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: session})
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d\nbody: %s", w.Code, http.StatusFound, w.Body.String())
	}
	if got := w.Header().Get("Location"); got != location {
		t.Errorf("Location = %q, want %q", got, location)
	}
}

func assertContains(t *testing.T, body string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(body, want) {
			t.Errorf("body does not contain %q", want)
		}
	}
}

func testPages(t *testing.T) *Pages {
	t.Helper()
	renderer, err := view.New()
	if err != nil {
		t.Fatalf("view.New() error: %v", err)
	}
	return NewPages(renderer)
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
