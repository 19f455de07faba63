package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/MorseWayne/shelf_hub/internal/api"
	"github.com/MorseWayne/shelf_hub/internal/config"
	"github.com/MorseWayne/shelf_hub/internal/database"
	"github.com/MorseWayne/shelf_hub/internal/logger"
	mw "github.com/MorseWayne/shelf_hub/internal/middleware"
	"github.com/MorseWayne/shelf_hub/internal/repo"
	"github.com/MorseWayne/shelf_hub/internal/resp"
	"github.com/MorseWayne/shelf_hub/internal/service"
)

// AppDependencies 包含应用的所有依赖
type AppDependencies struct {
	UserHandler  *api.UserHandler
	BookHandler  *api.BookHandler
	LoanHandler  *api.LoanHandler
	AdminHandler *api.AdminHandler
	JWTService   service.JWTService
}

// initConfigAndLogger 初始化配置和日志器
func initConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %v", err)
	}

	lg, err := logger.New(cfg.App.Env, cfg.Log.Level, cfg.Log.Encoding, cfg.App.Name, cfg.App.Version)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %v", err)
	}

	return cfg, lg, nil
}

// initDatabase 初始化数据库连接并执行迁移
func initDatabase(cfg *config.Config, lg *zap.Logger) (*database.DB, error) {
	db, err := database.New(cfg, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// 在HTTP服务器启动前执行迁移，确保处理请求时表结构已就绪
	migrationsDir := cfg.Migrations.Dir
	lg.Sugar().Infow("using migrations directory", "path", migrationsDir)

	if err := db.RunMigrations(migrationsDir); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %v", err)
	}

	return db, nil
}

// initDependencies 初始化应用依赖（仓储、服务、处理器）
func initDependencies(cfg *config.Config, db *database.DB, lg *zap.Logger) *AppDependencies {
	// 依赖注入链：仓储 -> 服务 -> API处理器
	userRepo := repo.NewUserRepository(db)
	bookRepo := repo.NewBookRepository(db)
	loanRepo := repo.NewLoanRepository(db)

	jwtService := service.NewJWTService(cfg, userRepo, lg)
	userService := service.NewUserService(userRepo, loanRepo, lg)
	bookService := service.NewBookService(bookRepo, loanRepo, lg)
	loanService := service.NewLoanService(loanRepo, bookRepo, lg)
	statsService := service.NewStatsService(userRepo, bookRepo, loanRepo, lg)

	return &AppDependencies{
		UserHandler:  api.NewUserHandler(userService, jwtService, lg),
		BookHandler:  api.NewBookHandler(bookService, lg),
		LoanHandler:  api.NewLoanHandler(loanService, lg),
		AdminHandler: api.NewAdminHandler(userService, statsService, lg),
		JWTService:   jwtService,
	}
}

// setupRoutes 设置路由和中间件
func setupRoutes(cfg *config.Config, deps *AppDependencies, lg *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	// 健康检查端点
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		reqID := mw.RequestIDFromContext(r.Context())
		data := map[string]any{
			"status":  "ok",
			"version": cfg.App.Version,
		}
		resp.OK(w, &data, reqID, "")
	})

	// 认证相关路由（无需登录）
	mux.HandleFunc("POST /api/v1/auth/register", deps.UserHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", deps.UserHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", deps.UserHandler.RefreshToken)

	auth := mw.AuthMiddleware(deps.JWTService, lg)
	admin := mw.RequireAdmin(lg)

	authed := func(h http.HandlerFunc) http.Handler {
		return auth(h)
	}
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return auth(admin(h))
	}

	// 个人资料
	mux.Handle("GET /api/v1/auth/profile", authed(deps.UserHandler.GetProfile))
	mux.Handle("PUT /api/v1/auth/profile", authed(deps.UserHandler.UpdateProfile))

	// 图书目录。字面量路径（all/search/my-books）优先于 {id} 通配。
	mux.Handle("GET /api/v1/books", authed(deps.BookHandler.ListBooks))
	mux.Handle("GET /api/v1/books/all", adminOnly(deps.BookHandler.ListAllBooks))
	mux.Handle("GET /api/v1/books/search", authed(deps.BookHandler.SearchBooks))
	mux.Handle("GET /api/v1/books/my-books", authed(deps.LoanHandler.MyBooks))
	mux.Handle("GET /api/v1/books/{id}", authed(deps.BookHandler.GetBook))
	mux.Handle("POST /api/v1/books", adminOnly(deps.BookHandler.CreateBook))
	mux.Handle("PUT /api/v1/books/{id}", adminOnly(deps.BookHandler.UpdateBook))
	mux.Handle("DELETE /api/v1/books/{id}", adminOnly(deps.BookHandler.DeleteBook))

	// 借阅
	mux.Handle("POST /api/v1/books/{id}/borrow", authed(deps.LoanHandler.Borrow))
	mux.Handle("POST /api/v1/books/{id}/return", authed(deps.LoanHandler.Return))

	// 用户管理与仪表盘（管理员）
	mux.Handle("GET /api/v1/users", adminOnly(deps.AdminHandler.ListUsers))
	mux.Handle("GET /api/v1/users/dashboard-stats", adminOnly(deps.AdminHandler.DashboardStats))
	mux.Handle("GET /api/v1/users/{id}", adminOnly(deps.AdminHandler.GetUser))
	mux.Handle("PUT /api/v1/users/{id}/role", adminOnly(deps.AdminHandler.UpdateUserRole))
	mux.Handle("PUT /api/v1/users/{id}/toggle-status", adminOnly(deps.AdminHandler.ToggleUserStatus))
	mux.Handle("GET /api/v1/users/{id}/borrowing-history", adminOnly(deps.AdminHandler.BorrowingHistory))

	// 构建中间件链：请求进入时执行顺序为 access log → CORS → timeout → recovery → request ID
	handler := mw.RequestID(mux)
	handler = mw.Recovery(lg)(handler)
	handler = mw.Timeout(cfg.App.RequestTimeout)(handler)
	handler = mw.CORS(cfg.CORS)(handler)
	handler = mw.AccessLog(lg)(handler)

	return handler
}

// startServer 启动服务器并处理优雅关闭
func startServer(cfg *config.Config, handler http.Handler, lg *zap.Logger) {
	addr := fmt.Sprintf(":%d", cfg.App.Port)
	lg.Sugar().Infow("server starting", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	select {
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			lg.Sugar().Fatalw("server error", "err", err)
		}
	case <-quit:
		lg.Sugar().Infow("shutdown signal received")
	}

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Sugar().Errorw("server shutdown error", "err", err)
	}
	lg.Sugar().Infow("server exited")
}

// main 为应用入口，协调各个组件的初始化和启动
func main() {
	// 1) 加载配置和初始化日志
	cfg, lg, err := initConfigAndLogger()
	if err != nil {
		log.Fatalf("failed to initialize config and logger: %v", err)
	}

	// 2) 初始化数据库连接并执行迁移
	db, err := initDatabase(cfg, lg)
	if err != nil {
		lg.Sugar().Fatalw("failed to initialize database", "err", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			lg.Sugar().Errorw("failed to close database connection", "err", err)
		}
	}()

	// 3) 初始化应用依赖（仓储、服务、处理器）
	deps := initDependencies(cfg, db, lg)

	// 4) 设置路由和中间件
	handler := setupRoutes(cfg, deps, lg)

	// 5) 启动 HTTP 服务器
	startServer(cfg, handler, lg)
}
