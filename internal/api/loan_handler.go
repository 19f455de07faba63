package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/MorseWayne/shelf_hub/internal/middleware"
	"github.com/MorseWayne/shelf_hub/internal/resp"
	"github.com/MorseWayne/shelf_hub/internal/service"
)

// LoanHandler 借阅相关的HTTP处理器
type LoanHandler struct {
	loanService service.LoanService
	logger      *zap.Logger
}

// NewLoanHandler 创建借阅处理器实例
func NewLoanHandler(loanService service.LoanService, logger *zap.Logger) *LoanHandler {
	return &LoanHandler{
		loanService: loanService,
		logger:      logger,
	}
}

// Borrow 借出一本图书
// POST /api/v1/books/{id}/borrow
func (h *LoanHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	current := middleware.UserFromContext(r.Context())
	if current == nil {
		resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "authentication required", reqID, "")
		return
	}

	bookID, ok := bookIDFromPath(r)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid book ID", reqID, "")
		return
	}

	result, err := h.loanService.Borrow(current.ID, bookID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBookNotFound):
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "book not found", reqID, "")
		case errors.Is(err, service.ErrAlreadyBorrowed):
			resp.Error(w, http.StatusBadRequest, resp.CodeRuleViolation, "you have already borrowed this book", reqID, "")
		case errors.Is(err, service.ErrBookUnavailable):
			resp.Error(w, http.StatusBadRequest, resp.CodeRuleViolation, "no copies available", reqID, "")
		default:
			h.logger.Error("borrow failed", zap.String("request_id", reqID), zap.Error(err))
			resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "borrow failed", reqID, "")
		}
		return
	}

	resp.OK(w, result, reqID, "book borrowed")
}

// Return 归还一本图书
// POST /api/v1/books/{id}/return
func (h *LoanHandler) Return(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	current := middleware.UserFromContext(r.Context())
	if current == nil {
		resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "authentication required", reqID, "")
		return
	}

	bookID, ok := bookIDFromPath(r)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid book ID", reqID, "")
		return
	}

	result, err := h.loanService.Return(current.ID, bookID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBookNotFound):
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "book not found", reqID, "")
		case errors.Is(err, service.ErrNotBorrowed):
			resp.Error(w, http.StatusBadRequest, resp.CodeRuleViolation, "you have not borrowed this book", reqID, "")
		default:
			h.logger.Error("return failed", zap.String("request_id", reqID), zap.Error(err))
			resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "return failed", reqID, "")
		}
		return
	}

	resp.OK(w, result, reqID, "book returned")
}

// MyBooks 查询当前用户在借的图书
// GET /api/v1/books/my-books
func (h *LoanHandler) MyBooks(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	current := middleware.UserFromContext(r.Context())
	if current == nil {
		resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "authentication required", reqID, "")
		return
	}

	books, err := h.loanService.MyBooks(current.ID)
	if err != nil {
		h.logger.Error("get my books failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get my books failed", reqID, "")
		return
	}

	resp.OK(w, books, reqID, "")
}
