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

// BookHandler 图书目录相关的HTTP处理器
type BookHandler struct {
	bookService service.BookService
	logger      *zap.Logger
}

// NewBookHandler 创建图书处理器实例
func NewBookHandler(bookService service.BookService, logger *zap.Logger) *BookHandler {
	return &BookHandler{
		bookService: bookService,
		logger:      logger,
	}
}

// bookIDFromPath 从路径参数中解析图书ID
func bookIDFromPath(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseBookListRequest 从查询参数构建列表请求
func parseBookListRequest(r *http.Request) *domain.BookListRequest {
	req := &domain.BookListRequest{Page: 1, PageSize: 20}

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
	if categoryStr := q.Get("category"); categoryStr != "" {
		category := domain.BookCategory(categoryStr)
		if category.IsValid() {
			req.Category = &category
		}
	}
	if statusStr := q.Get("status"); statusStr != "" {
		status := domain.BookStatus(statusStr)
		if status == domain.BookStatusAvailable || status == domain.BookStatusBorrowed {
			req.Status = &status
		}
	}
	if search := strings.TrimSpace(q.Get("q")); search != "" {
		req.Search = &search
	}

	return req
}

// ListBooks 读者视图的图书列表
// GET /api/v1/books
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	result, err := h.bookService.ListBooks(parseBookListRequest(r))
	if err != nil {
		h.logger.Error("list books failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "list books failed", reqID, "")
		return
	}

	resp.OK(w, result, reqID, "")
}

// ListAllBooks 管理员视图的图书列表，含下架图书
// GET /api/v1/books/all
func (h *BookHandler) ListAllBooks(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	result, err := h.bookService.ListAllBooks(parseBookListRequest(r))
	if err != nil {
		h.logger.Error("list all books failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "list books failed", reqID, "")
		return
	}

	resp.OK(w, result, reqID, "")
}

// SearchBooks 全文搜索图书
// GET /api/v1/books/search?q=keyword
func (h *BookHandler) SearchBooks(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	result, err := h.bookService.SearchBooks(parseBookListRequest(r))
	if err != nil {
		if errors.Is(err, service.ErrSearchTermRequired) {
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "search term is required", reqID, "")
			return
		}
		h.logger.Error("search books failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "search books failed", reqID, "")
		return
	}

	resp.OK(w, result, reqID, "")
}

// GetBook 获取单本图书详情。
// 管理员额外返回当前借阅人明细，普通读者只看到图书本身。
// GET /api/v1/books/{id}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := bookIDFromPath(r)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid book ID", reqID, "")
		return
	}

	current := middleware.UserFromContext(r.Context())
	isAdmin := current != nil && current.IsAdmin()

	var (
		data any
		err  error
	)
	if isAdmin {
		data, err = h.bookService.GetBookWithBorrowers(id)
	} else {
		data, err = h.bookService.GetBook(id)
	}
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "book not found", reqID, "")
			return
		}
		h.logger.Error("get book failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get book failed", reqID, "")
		return
	}

	resp.OK(w, data, reqID, "")
}

// CreateBook 新增图书（管理员）
// POST /api/v1/books
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.CreateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	if errs := domain.ValidateCreateBookRequest(&req); len(errs) > 0 {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "validation failed", reqID, validationDetail(errs))
		return
	}

	book, err := h.bookService.CreateBook(&req)
	if err != nil {
		if errors.Is(err, service.ErrISBNExists) {
			resp.Error(w, http.StatusBadRequest, resp.CodeRuleViolation, "book with this ISBN already exists", reqID, "")
			return
		}
		h.logger.Error("create book failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "create book failed", reqID, "")
		return
	}

	resp.Created(w, book, reqID, "")
}

// UpdateBook 更新图书（管理员）
// PUT /api/v1/books/{id}
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := bookIDFromPath(r)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid book ID", reqID, "")
		return
	}

	var req domain.UpdateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	if errs := domain.ValidateUpdateBookRequest(&req); len(errs) > 0 {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "validation failed", reqID, validationDetail(errs))
		return
	}

	book, err := h.bookService.UpdateBook(id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBookNotFound):
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "book not found", reqID, "")
		case errors.Is(err, service.ErrISBNExists):
			resp.Error(w, http.StatusBadRequest, resp.CodeRuleViolation, "book with this ISBN already exists", reqID, "")
		case errors.Is(err, service.ErrCopiesBelowBorrowed):
			resp.Error(w, http.StatusBadRequest, resp.CodeRuleViolation, "total copies cannot be less than borrowed copies", reqID, "")
		default:
			h.logger.Error("update book failed", zap.String("request_id", reqID), zap.Error(err))
			resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "update book failed", reqID, "")
		}
		return
	}

	resp.OK(w, book, reqID, "")
}

// DeleteBook 删除图书（管理员）
// DELETE /api/v1/books/{id}
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := bookIDFromPath(r)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid book ID", reqID, "")
		return
	}

	if err := h.bookService.DeleteBook(id); err != nil {
		switch {
		case errors.Is(err, service.ErrBookNotFound):
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "book not found", reqID, "")
		case errors.Is(err, service.ErrBookHasLoans):
			resp.Error(w, http.StatusBadRequest, resp.CodeRuleViolation, "book has active loans", reqID, "")
		default:
			h.logger.Error("delete book failed", zap.String("request_id", reqID), zap.Error(err))
			resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "delete book failed", reqID, "")
		}
		return
	}

	resp.OK(w, nil, reqID, "book deleted")
}
