package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/MorseWayne/shelf_hub/internal/domain"
	"github.com/MorseWayne/shelf_hub/internal/middleware"
	"github.com/MorseWayne/shelf_hub/internal/resp"
	"github.com/MorseWayne/shelf_hub/internal/service"
)

// AdminHandler 管理员专用的HTTP处理器：用户管理与仪表盘统计
type AdminHandler struct {
	userService  service.UserService
	statsService service.StatsService
	logger       *zap.Logger
}

// NewAdminHandler 创建管理员处理器实例
func NewAdminHandler(userService service.UserService, statsService service.StatsService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		userService:  userService,
		statsService: statsService,
		logger:       logger,
	}
}

// userIDFromPath 从路径参数中解析用户ID
func userIDFromPath(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ListUsers 分页获取用户列表
// GET /api/v1/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	req := &domain.UserListRequest{Page: 1, PageSize: 10}
	q := r.URL.Query()
	if pageStr := q.Get("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			req.Page = page
		}
	}
	if pageSizeStr := q.Get("page_size"); pageSizeStr != "" {
		if pageSize, err := strconv.Atoi(pageSizeStr); err == nil && pageSize > 0 && pageSize <= 100 {
			req.PageSize = pageSize
		}
	}
	if roleStr := q.Get("role"); roleStr != "" {
		role := domain.UserRole(roleStr)
		if role.IsValid() {
			req.Role = &role
		}
	}
	if search := strings.TrimSpace(q.Get("q")); search != "" {
		req.Search = &search
	}

	result, err := h.userService.ListUsers(req)
	if err != nil {
		h.logger.Error("list users failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "list users failed", reqID, "")
		return
	}

	resp.OK(w, result, reqID, "")
}

// GetUser 获取单个用户及其在借图书
// GET /api/v1/users/{id}
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := userIDFromPath(r)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid user ID", reqID, "")
		return
	}

	user, err := h.userService.GetUserWithLoans(id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "user not found", reqID, "")
			return
		}
		h.logger.Error("get user failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get user failed", reqID, "")
		return
	}

	resp.OK(w, user, reqID, "")
}

// UpdateUserRole 修改用户角色
// PUT /api/v1/users/{id}/role
func (h *AdminHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := userIDFromPath(r)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid user ID", reqID, "")
		return
	}

	var req domain.UpdateUserRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	user, err := h.userService.UpdateUserRole(id, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRole):
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "role must be user or admin", reqID, "")
		case errors.Is(err, service.ErrUserNotFound):
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "user not found", reqID, "")
		default:
			h.logger.Error("update user role failed", zap.String("request_id", reqID), zap.Error(err))
			resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "update user role failed", reqID, "")
		}
		return
	}

	resp.OK(w, user, reqID, "user role updated")
}

// ToggleUserStatus 翻转用户启用状态
// PUT /api/v1/users/{id}/toggle-status
func (h *AdminHandler) ToggleUserStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	current := middleware.UserFromContext(r.Context())
	if current == nil {
		resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "authentication required", reqID, "")
		return
	}

	id, ok := userIDFromPath(r)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid user ID", reqID, "")
		return
	}

	user, err := h.userService.ToggleUserStatus(current.ID, id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "user not found", reqID, "")
		case errors.Is(err, service.ErrSelfDeactivation):
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "cannot deactivate your own admin account", reqID, "")
		default:
			h.logger.Error("toggle user status failed", zap.String("request_id", reqID), zap.Error(err))
			resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "toggle user status failed", reqID, "")
		}
		return
	}

	resp.OK(w, user, reqID, "user status updated")
}

// BorrowingHistory 查询用户全部借阅历史
// GET /api/v1/users/{id}/borrowing-history
func (h *AdminHandler) BorrowingHistory(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := userIDFromPath(r)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid user ID", reqID, "")
		return
	}

	history, err := h.userService.BorrowingHistory(id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "user not found", reqID, "")
			return
		}
		h.logger.Error("get borrowing history failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get borrowing history failed", reqID, "")
		return
	}

	resp.OK(w, history, reqID, "")
}

// DashboardStats 获取仪表盘统计
// GET /api/v1/users/dashboard-stats
func (h *AdminHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	stats, err := h.statsService.DashboardStats()
	if err != nil {
		h.logger.Error("get dashboard stats failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get dashboard stats failed", reqID, "")
		return
	}

	resp.OK(w, stats, reqID, "")
}
