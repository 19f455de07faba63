package service

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MorseWayne/shelf_hub/internal/domain"
	"github.com/MorseWayne/shelf_hub/internal/repo"
)

// 借阅相关业务错误
var (
	// ErrBookUnavailable 没有可借副本或图书已下架
	ErrBookUnavailable = errors.New("book unavailable")
	// ErrAlreadyBorrowed 同一用户对同一本书已有在借记录
	ErrAlreadyBorrowed = errors.New("book already borrowed by user")
	// ErrNotBorrowed 该用户没有这本书的在借记录
	ErrNotBorrowed = errors.New("book not borrowed by user")
)

// LoanService 定义借阅服务接口。
// 借出与归还的并发安全由仓储层的事务与条件更新保证，
// 服务层只负责前置校验和业务错误翻译。
type LoanService interface {
	Borrow(userID, bookID int64) (*domain.BorrowResult, error)
	Return(userID, bookID int64) (*domain.ReturnResult, error)
	MyBooks(userID int64) ([]*domain.BorrowedBook, error)
}

// loanService 是 LoanService 接口的实现
type loanService struct {
	loanRepo repo.LoanRepository
	bookRepo repo.BookRepository
	logger   *zap.Logger
}

// NewLoanService 创建借阅服务实例
func NewLoanService(loanRepo repo.LoanRepository, bookRepo repo.BookRepository, logger *zap.Logger) LoanService {
	return &loanService{
		loanRepo: loanRepo,
		bookRepo: bookRepo,
		logger:   logger,
	}
}

// Borrow 借出一本图书。
// 这里读到的图书信息只用于构造响应和区分404/409：
// 真正的可借判定在仓储的条件更新里完成，读到有余量不代表借得到。
func (s *loanService) Borrow(userID, bookID int64) (*domain.BorrowResult, error) {
	book, err := s.bookRepo.GetByID(bookID)
	if err != nil {
		s.logger.Error("failed to get book", zap.Int64("book_id", bookID), zap.Error(err))
		return nil, fmt.Errorf("get book: %w", err)
	}
	if book == nil {
		return nil, ErrBookNotFound
	}
	if !book.IsActive {
		return nil, ErrBookUnavailable
	}

	loan, err := s.loanRepo.Borrow(bookID, userID, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicateLoan):
			return nil, ErrAlreadyBorrowed
		case errors.Is(err, repo.ErrNoAvailableCopies):
			return nil, ErrBookUnavailable
		default:
			s.logger.Error("failed to borrow book",
				zap.Int64("user_id", userID),
				zap.Int64("book_id", bookID),
				zap.Error(err),
			)
			return nil, fmt.Errorf("borrow book: %w", err)
		}
	}

	s.logger.Info("book borrowed",
		zap.Int64("user_id", userID),
		zap.Int64("book_id", bookID),
		zap.Time("due_date", loan.DueDate),
	)

	return &domain.BorrowResult{
		BookID:  book.ID,
		Title:   book.Title,
		Author:  book.Author,
		DueDate: loan.DueDate,
	}, nil
}

// Return 归还一本图书
func (s *loanService) Return(userID, bookID int64) (*domain.ReturnResult, error) {
	book, err := s.bookRepo.GetByID(bookID)
	if err != nil {
		s.logger.Error("failed to get book", zap.Int64("book_id", bookID), zap.Error(err))
		return nil, fmt.Errorf("get book: %w", err)
	}
	if book == nil {
		return nil, ErrBookNotFound
	}

	if err := s.loanRepo.Return(bookID, userID, time.Now()); err != nil {
		if errors.Is(err, repo.ErrNoActiveLoan) {
			return nil, ErrNotBorrowed
		}
		s.logger.Error("failed to return book",
			zap.Int64("user_id", userID),
			zap.Int64("book_id", bookID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("return book: %w", err)
	}

	s.logger.Info("book returned",
		zap.Int64("user_id", userID),
		zap.Int64("book_id", bookID),
	)

	return &domain.ReturnResult{
		BookID: book.ID,
		Title:  book.Title,
		Author: book.Author,
	}, nil
}

// MyBooks 查询当前用户在借的图书
func (s *loanService) MyBooks(userID int64) ([]*domain.BorrowedBook, error) {
	books, err := s.loanRepo.ActiveByUser(userID)
	if err != nil {
		s.logger.Error("failed to get my books", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("get my books: %w", err)
	}
	if books == nil {
		books = []*domain.BorrowedBook{}
	}

	return books, nil
}
