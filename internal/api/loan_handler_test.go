package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/MorseWayne/shelf_hub/internal/domain"
	"github.com/MorseWayne/shelf_hub/internal/middleware"
	"github.com/MorseWayne/shelf_hub/internal/resp"
	"github.com/MorseWayne/shelf_hub/internal/service"
)

// newLoanTestServer 按生产路由模式挂载借阅端点，走真实的认证中间件
func newLoanTestServer(svc service.LoanService, user *domain.User) http.Handler {
	lg := zap.NewNop()
	handler := NewLoanHandler(svc, lg)
	auth := middleware.AuthMiddleware(&stubJWTService{user: user}, lg)

	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/books/{id}/borrow", auth(http.HandlerFunc(handler.Borrow)))
	mux.Handle("POST /api/v1/books/{id}/return", auth(http.HandlerFunc(handler.Return)))
	return middleware.RequestID(mux)
}

func loanTestUser() *domain.User {
	return &domain.User{
		ID:    7,
		Name:  "Reader",
		Email: "reader@example.com",
		Role:  domain.UserRoleUser,
	}
}

func doLoanRequest(t *testing.T, server http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, nil)
	req.Header.Set("Authorization", "Bearer "+stubAccessToken)
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)
	return rr
}

func TestLoanHandler_Borrow_Success(t *testing.T) {
	svc := &stubLoanService{
		borrowResult: &domain.BorrowResult{BookID: 7, Title: "Some Book", Author: "Someone", DueDate: time.Now().Add(domain.LoanPeriod)},
	}
	server := newLoanTestServer(svc, loanTestUser())

	rr := doLoanRequest(t, server, "/api/v1/books/7/borrow")

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if body := decodeBody(t, rr); body.Code != resp.CodeOK {
		t.Errorf("expected code %d, got %d", resp.CodeOK, body.Code)
	}
}

// 业务规则不满足（重复借阅、无可借副本）统一返回400
func TestLoanHandler_Borrow_RuleViolationsReturn400(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"already borrowed", service.ErrAlreadyBorrowed},
		{"no copies available", service.ErrBookUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newLoanTestServer(&stubLoanService{borrowErr: tt.err}, loanTestUser())

			rr := doLoanRequest(t, server, "/api/v1/books/7/borrow")

			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rr.Code)
			}
			if body := decodeBody(t, rr); body.Code != resp.CodeRuleViolation {
				t.Errorf("expected code %d, got %d", resp.CodeRuleViolation, body.Code)
			}
		})
	}
}

func TestLoanHandler_Borrow_BookNotFound(t *testing.T) {
	server := newLoanTestServer(&stubLoanService{borrowErr: service.ErrBookNotFound}, loanTestUser())

	rr := doLoanRequest(t, server, "/api/v1/books/999/borrow")

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestLoanHandler_Return_NotBorrowedReturns400(t *testing.T) {
	server := newLoanTestServer(&stubLoanService{returnErr: service.ErrNotBorrowed}, loanTestUser())

	rr := doLoanRequest(t, server, "/api/v1/books/7/return")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
	if body := decodeBody(t, rr); body.Code != resp.CodeRuleViolation {
		t.Errorf("expected code %d, got %d", resp.CodeRuleViolation, body.Code)
	}
}

func TestLoanHandler_Borrow_Unauthenticated(t *testing.T) {
	server := newLoanTestServer(&stubLoanService{}, loanTestUser())

	req := httptest.NewRequest("POST", "/api/v1/books/7/borrow", nil)
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}
