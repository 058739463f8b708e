package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/agencytime/internal/middleware"
)

// HealthChecker はヘルスチェックで疎通を確認する依存先。*sqlx.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	PrincipalResolver middleware.PrincipalResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.StatusRecorder

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 時間計測
	TrackingService TrackingServiceInterface
	BillingService  BillingServiceInterface

	// 管理
	CatalogService    CatalogServiceInterface
	AssignmentService AssignmentServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Logging → CORS → SecurityHeaders → Metrics → Recovery → Auth → RateLimit(General) [→ RequireAdmin]
//
// /health と /metrics は認証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}
	r.Use(middleware.NewRecoveryMiddleware())

	ttHandler := NewTimeTrackingHandler(deps.TrackingService, deps.BillingService)
	customerHandler := NewCustomerHandler(deps.CatalogService, deps.AssignmentService)
	catalogHandler := NewCatalogHandler(deps.CatalogService)

	// --- 認証不要のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.PrincipalResolver))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		// 時間計測
		r.Route("/time-tracking", func(r chi.Router) {
			r.Get("/", ttHandler.List)
			r.Post("/start", ttHandler.Start)
			r.Post("/stop", ttHandler.Stop)
			r.Post("/manual", ttHandler.AddManual)
			r.Get("/active", ttHandler.Active)
			r.Get("/all-active", ttHandler.AllActive)
			r.Get("/entries", ttHandler.OwnEntries)
			r.Get("/assigned-customers", ttHandler.AssignedCustomers)

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", ttHandler.Update)
				r.Delete("/", ttHandler.Delete)
				r.With(middleware.RequireAdmin).Get("/summary", ttHandler.MonthlySummary)
			})
		})

		// プロジェクト・タスク種別（参照は全ユーザー、作成は管理者）
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", catalogHandler.ListProjects)
			r.Get("/{id}", catalogHandler.GetProject)
			r.With(middleware.RequireAdmin).Post("/", catalogHandler.CreateProject)
			r.With(middleware.RequireAdmin).Put("/{id}", catalogHandler.UpdateProject)
			r.With(middleware.RequireAdmin).Delete("/{id}", catalogHandler.DeleteProject)
		})
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", catalogHandler.ListTasks)
			r.Get("/{id}", catalogHandler.GetTask)
			r.With(middleware.RequireAdmin).Post("/", catalogHandler.CreateTask)
			r.With(middleware.RequireAdmin).Put("/{id}", catalogHandler.UpdateTask)
			r.With(middleware.RequireAdmin).Delete("/{id}", catalogHandler.DeleteTask)
		})

		// 管理者専用
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Route("/customers", func(r chi.Router) {
				r.Get("/", customerHandler.List)
				r.Post("/", customerHandler.Create)

				r.Route("/{customerID}", func(r chi.Router) {
					r.Get("/", customerHandler.Get)
					r.Put("/", customerHandler.Update)

					r.Get("/users", customerHandler.ListUsers)
					r.Post("/users", customerHandler.AssignUser)
					r.Delete("/users/{userID}", customerHandler.UnassignUser)
				})
			})

			r.Get("/users", catalogHandler.ListUsers)
			r.Get("/users/{userID}/customers", customerHandler.CustomersOfUser)
		})
	})

	return r
}

// NewHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func NewHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeHealth(w, http.StatusServiceUnavailable, false)
				return
			}
		}
		writeHealth(w, http.StatusOK, true)
	}
}

func writeHealth(w http.ResponseWriter, statusCode int, healthy bool) {
	status := "ok"
	if !healthy {
		status = "unavailable"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(successResponse{Success: healthy, Data: map[string]string{"status": status}})
}
