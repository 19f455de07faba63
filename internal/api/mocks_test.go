package api

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/MorseWayne/shelf_hub/internal/domain"
	"github.com/MorseWayne/shelf_hub/internal/resp"
	"github.com/MorseWayne/shelf_hub/internal/service"
)

const stubAccessToken = "stub-access-token"

// stubJWTService 只认一个固定的访问令牌，解出固定用户
type stubJWTService struct {
	user *domain.User
}

func (s *stubJWTService) GenerateTokenPair(user *domain.User) (*service.TokenPair, error) {
	return &service.TokenPair{AccessToken: stubAccessToken, RefreshToken: "stub-refresh-token"}, nil
}

func (s *stubJWTService) ValidateAccessToken(tokenString string) (*service.Claims, error) {
	if tokenString != stubAccessToken {
		return nil, service.ErrInvalidToken
	}
	return &service.Claims{
		UserID: s.user.ID,
		Name:   s.user.Name,
		Email:  s.user.Email,
		Role:   s.user.Role,
		Type:   "access",
	}, nil
}

func (s *stubJWTService) ValidateRefreshToken(tokenString string) (*service.Claims, error) {
	return nil, service.ErrInvalidToken
}

func (s *stubJWTService) RefreshTokenPair(refreshToken string) (*service.TokenPair, error) {
	return nil, service.ErrInvalidToken
}

// stubLoanService 按预设结果应答，用于处理器层的状态码测试
type stubLoanService struct {
	borrowResult *domain.BorrowResult
	borrowErr    error
	returnResult *domain.ReturnResult
	returnErr    error
	myBooks      []*domain.BorrowedBook
	myBooksErr   error
}

func (s *stubLoanService) Borrow(userID, bookID int64) (*domain.BorrowResult, error) {
	return s.borrowResult, s.borrowErr
}

func (s *stubLoanService) Return(userID, bookID int64) (*domain.ReturnResult, error) {
	return s.returnResult, s.returnErr
}

func (s *stubLoanService) MyBooks(userID int64) ([]*domain.BorrowedBook, error) {
	return s.myBooks, s.myBooksErr
}

// stubBookService 同上，各操作返回预设的错误
type stubBookService struct {
	book      *domain.Book
	createErr error
	updateErr error
	deleteErr error
}

func (s *stubBookService) CreateBook(req *domain.CreateBookRequest) (*domain.Book, error) {
	return s.book, s.createErr
}

func (s *stubBookService) GetBook(id int64) (*domain.Book, error) {
	if s.book == nil {
		return nil, service.ErrBookNotFound
	}
	return s.book, nil
}

func (s *stubBookService) GetBookWithBorrowers(id int64) (*domain.BookWithBorrowers, error) {
	if s.book == nil {
		return nil, service.ErrBookNotFound
	}
	return &domain.BookWithBorrowers{Book: s.book}, nil
}

func (s *stubBookService) UpdateBook(id int64, req *domain.UpdateBookRequest) (*domain.Book, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return s.book, nil
}

func (s *stubBookService) DeleteBook(id int64) error {
	return s.deleteErr
}

func (s *stubBookService) ListBooks(req *domain.BookListRequest) (*domain.BookListResponse, error) {
	return &domain.BookListResponse{Books: []*domain.Book{}}, nil
}

func (s *stubBookService) ListAllBooks(req *domain.BookListRequest) (*domain.BookListResponse, error) {
	return &domain.BookListResponse{Books: []*domain.Book{}}, nil
}

func (s *stubBookService) SearchBooks(req *domain.BookListRequest) (*domain.BookListResponse, error) {
	return &domain.BookListResponse{Books: []*domain.Book{}}, nil
}

// stubUserService 只为Register提供可配置的错误，其余方法不参与测试
type stubUserService struct {
	user        *domain.User
	registerErr error
}

func (s *stubUserService) Register(req *domain.RegisterRequest) (*domain.User, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return s.user, nil
}

func (s *stubUserService) Login(req *domain.LoginRequest) (*domain.User, error) {
	return s.user, nil
}

func (s *stubUserService) GetUserByID(id int64) (*domain.User, error) {
	return s.user, nil
}

func (s *stubUserService) GetUserWithLoans(id int64) (*domain.UserWithLoans, error) {
	return &domain.UserWithLoans{User: s.user, BorrowedBooks: []*domain.BorrowedBook{}}, nil
}

func (s *stubUserService) UpdateProfile(userID int64, req *domain.UpdateProfileRequest) (*domain.User, error) {
	return s.user, nil
}

func (s *stubUserService) ListUsers(req *domain.UserListRequest) (*domain.UserListResponse, error) {
	return &domain.UserListResponse{Users: []*domain.User{}}, nil
}

func (s *stubUserService) UpdateUserRole(userID int64, role domain.UserRole) (*domain.User, error) {
	return s.user, nil
}

func (s *stubUserService) ToggleUserStatus(actorID, targetID int64) (*domain.User, error) {
	return s.user, nil
}

func (s *stubUserService) BorrowingHistory(userID int64) ([]*domain.BorrowedBook, error) {
	return []*domain.BorrowedBook{}, nil
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) *resp.Body {
	t.Helper()
	var body resp.Body
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return &body
}
