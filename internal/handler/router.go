package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/dishlist/internal/middleware"
	"github.com/hitoshi/dishlist/internal/procedure"
	"github.com/hitoshi/dishlist/internal/view"
)

// RouterMetrics はルーターが記録するメトリクスのインターフェース。
type RouterMetrics interface {
	middleware.StatusRecorder
	procedure.Metrics
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionResolver   middleware.SessionResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	IsDevelopment     bool
	Logger            *slog.Logger

	// 運用
	HealthChecker  HealthChecker
	Metrics        RouterMetrics // nilの場合は記録しない
	MetricsHandler http.Handler  // nilの場合は /metrics を公開しない

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 料理
	DishService procedure.DishService

	// ユーザー
	UserService UserServiceInterface
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → RequestID → Recovery → SecurityHeaders → CORS → Metrics
//	→ SessionResolver → Logging → RateLimit(General) → CSRF → RateLimit(Mutation)
//
// /health と /metrics はセッション解決の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.IsDevelopment))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker).ServeHTTP)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig.CookieDomain, deps.AuthConfig.CookieSecure)
	rpcHandler := procedure.NewHandler(procedure.NewAppRouter(deps.DishService), deps.Metrics)
	viewHandler := view.NewHandler(deps.DishService, deps.AuthService, view.Config{
		CSRF:         deps.CSRFConfig,
		CookieDomain: deps.AuthConfig.CookieDomain,
		CookieSecure: deps.AuthConfig.CookieSecure,
	})

	// --- アプリケーションのルート ---
	// セッションは任意。必須のルートのみRequireSessionを追加する。
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionResolverMiddleware(deps.SessionResolver))
		r.Use(middleware.NewLoggingMiddleware(logger))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.MutationMiddleware())

		// 認証ルート（OAuthフロー）
		r.Route("/auth", func(r chi.Router) {
			r.Get("/google/login", authHandler.Login)
			r.Get("/google/callback", authHandler.Callback)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

		// プロシージャ（dish:list, dish:create, dish:remove）
		r.Mount("/api/rpc", rpcHandler.Routes())

		// ユーザー管理
		r.With(middleware.RequireSession).Delete("/api/users/me", userHandler.Withdraw)

		// クライアントビュー
		viewHandler.Register(r)
	})

	return r
}
