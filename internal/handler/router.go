package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/diabetes/internal/middleware"
	"github.com/hitoshi/diabetes/internal/model"
	"github.com/hitoshi/diabetes/internal/repository"
	"github.com/hitoshi/diabetes/internal/security"
	"github.com/hitoshi/diabetes/internal/view"
)

// Metrics はルーターが必要とするメトリクス記録のインターフェース。
type Metrics interface {
	middleware.HTTPRecorder
	EntityMetrics
}

// Stores は記録エンティティごとのリポジトリ。
type Stores struct {
	Glucose     repository.EntityStore[*model.Glucose]
	Appointment repository.EntityStore[*model.Appointment]
	Issue       repository.EntityStore[*model.Issue]
	Weight      repository.EntityStore[*model.Weight]
	Meal        repository.EntityStore[*model.Meal]
	Exercise    repository.EntityStore[*model.Exercise]
	Examination repository.ExaminationRepository
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	CORSAllowedOrigin string
	Metrics           Metrics
	MetricsHandler    http.Handler

	// 画面
	Renderer  Renderer
	Sanitizer security.Sanitizer
	Defaults  DateDefaults

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	Health Pinger
	Chart  ChartSummarizer
	Stores Stores
}

// entityRoutes は作成・編集・削除の各操作をハンドラーとして返す。
type entityRoutes interface {
	Handle(action Action) http.HandlerFunc
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → (公開ルート)
//	→ Session → RateLimit → CSRF
//
// /chart_data_jsonだけはSessionの前にCORSを通す。
// /health, /metrics, /static/*, /auth/* とログアウトは認証不要。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pages := NewPages(deps.Renderer)
	csrf := middleware.NewCSRFMiddleware(deps.CSRFConfig)

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(http.HandlerFunc(pages.InternalError)))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.NotFound(pages.NotFound)

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, pages)
	chartHandler := NewChartHandler(deps.Chart)
	healthHandler := NewHealthHandler(deps.Health)

	// --- 認証不要のルート ---
	r.Get("/health", healthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	r.Handle("/static/*", view.StaticHandler("/static/"))

	r.Route("/auth/google", func(r chi.Router) {
		r.Get("/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
	})
	r.With(csrf).Get("/logout", authHandler.Logout)
	r.With(csrf).Post("/logout", authHandler.Logout)

	session := middleware.NewSessionMiddleware(deps.SessionFinder, middleware.SessionConfig{})
	limit := deps.RateLimiter.Middleware()

	// プリフライトはCookieを送らないため認証より先に応答する
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
		r.Options("/chart_data_json", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
		r.With(session, limit).Get("/chart_data_json", chartHandler.ChartData)
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(session)
		r.Use(limit)

		r.Group(func(r chi.Router) {
			r.Use(csrf)

			s := deps.Stores
			glucose := NewEntityHandler[*model.Glucose](GlucoseResource(deps.Defaults), s.Glucose, pages, deps.Sanitizer, deps.Metrics)
			// トップページは血糖値の入力と一覧
			r.Get("/", glucose.Handle(ActionCreate))
			r.Post("/", glucose.Handle(ActionCreate))
			mountEntity(r, "/glucoses/", glucose)

			mountEntity(r, "/appointments/",
				NewEntityHandler[*model.Appointment](AppointmentResource(deps.Defaults), s.Appointment, pages, deps.Sanitizer, deps.Metrics))
			mountEntity(r, "/issues/",
				NewEntityHandler[*model.Issue](IssueResource(), s.Issue, pages, deps.Sanitizer, deps.Metrics))
			mountEntity(r, "/weights/",
				NewEntityHandler[*model.Weight](WeightResource(deps.Defaults), s.Weight, pages, deps.Sanitizer, deps.Metrics))
			mountEntity(r, "/meals/",
				NewEntityHandler[*model.Meal](MealResource(deps.Defaults), s.Meal, pages, deps.Sanitizer, deps.Metrics))
			mountEntity(r, "/exercises/",
				NewEntityHandler[*model.Exercise](ExerciseResource(deps.Defaults), s.Exercise, pages, deps.Sanitizer, deps.Metrics))
			mountEntity(r, "/exams/",
				NewExamHandler(s.Examination, deps.Defaults, pages, deps.Sanitizer, deps.Metrics))
		})
	})

	return r
}

// mountEntity は base 配下に作成・編集・削除のルートを登録する。
func mountEntity(r chi.Router, base string, h entityRoutes) {
	for _, route := range []struct {
		pattern string
		action  Action
	}{
		{base, ActionCreate},
		{base + "edit/{id}", ActionUpdate},
		{base + "delete/{id}", ActionDelete},
	} {
		r.Get(route.pattern, h.Handle(route.action))
		r.Post(route.pattern, h.Handle(route.action))
	}
}
