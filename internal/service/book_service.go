package service

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/MorseWayne/shelf_hub/internal/domain"
	"github.com/MorseWayne/shelf_hub/internal/repo"
)

// 图书相关业务错误
var (
	ErrBookNotFound = errors.New("book not found")
	ErrISBNExists   = errors.New("isbn already exists")
	// ErrCopiesBelowBorrowed 新的总副本数低于当前在借数量
	ErrCopiesBelowBorrowed = errors.New("total copies below borrowed copies")
	// ErrBookHasLoans 图书仍有在借记录，禁止删除
	ErrBookHasLoans = errors.New("book has active loans")
	// ErrSearchTermRequired 搜索接口要求非空关键词
	ErrSearchTermRequired = errors.New("search term required")
)

// BookService 定义图书服务接口
type BookService interface {
	CreateBook(req *domain.CreateBookRequest) (*domain.Book, error)
	GetBook(id int64) (*domain.Book, error)
	// GetBookWithBorrowers 附带当前借阅人明细，仅管理员视图使用
	GetBookWithBorrowers(id int64) (*domain.BookWithBorrowers, error)
	UpdateBook(id int64, req *domain.UpdateBookRequest) (*domain.Book, error)
	DeleteBook(id int64) error

	// ListBooks 读者视图，只返回上架图书
	ListBooks(req *domain.BookListRequest) (*domain.BookListResponse, error)
	// ListAllBooks 管理员视图，含下架图书
	ListAllBooks(req *domain.BookListRequest) (*domain.BookListResponse, error)
	SearchBooks(req *domain.BookListRequest) (*domain.BookListResponse, error)
}

// bookService 是 BookService 接口的实现
type bookService struct {
	bookRepo repo.BookRepository
	loanRepo repo.LoanRepository
	logger   *zap.Logger
}

// NewBookService 创建图书服务实例
func NewBookService(bookRepo repo.BookRepository, loanRepo repo.LoanRepository, logger *zap.Logger) BookService {
	return &bookService{
		bookRepo: bookRepo,
		loanRepo: loanRepo,
		logger:   logger,
	}
}

// CreateBook 新增图书。
// 业务规则：ISBN唯一；初始可借数等于总副本数；新书默认上架。
func (s *bookService) CreateBook(req *domain.CreateBookRequest) (*domain.Book, error) {
	isbn := domain.NormalizeISBN(req.ISBN)

	existing, err := s.bookRepo.GetByISBN(isbn)
	if err != nil {
		s.logger.Error("failed to check isbn", zap.Error(err))
		return nil, fmt.Errorf("check isbn: %w", err)
	}
	if existing != nil {
		return nil, ErrISBNExists
	}

	book := &domain.Book{
		Title:           strings.TrimSpace(req.Title),
		Author:          strings.TrimSpace(req.Author),
		ISBN:            isbn,
		Description:     strings.TrimSpace(req.Description),
		Category:        req.Category,
		PublishedYear:   req.PublishedYear,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.TotalCopies,
		IsActive:        true,
	}

	if err := s.bookRepo.Create(book); err != nil {
		s.logger.Error("failed to create book", zap.Error(err))
		return nil, fmt.Errorf("create book: %w", err)
	}

	s.logger.Info("book created",
		zap.Int64("book_id", book.ID),
		zap.String("title", book.Title),
		zap.String("isbn", book.ISBN),
	)

	return book, nil
}

// GetBook 根据ID获取图书
func (s *bookService) GetBook(id int64) (*domain.Book, error) {
	book, err := s.bookRepo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get book", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("get book: %w", err)
	}
	if book == nil {
		return nil, ErrBookNotFound
	}

	return book, nil
}

// GetBookWithBorrowers 获取图书及其当前借阅人明细
func (s *bookService) GetBookWithBorrowers(id int64) (*domain.BookWithBorrowers, error) {
	book, err := s.GetBook(id)
	if err != nil {
		return nil, err
	}

	borrowers, err := s.loanRepo.ActiveByBook(id)
	if err != nil {
		s.logger.Error("failed to get borrowers", zap.Int64("book_id", id), zap.Error(err))
		return nil, fmt.Errorf("get borrowers: %w", err)
	}
	if borrowers == nil {
		borrowers = []*domain.BookBorrower{}
	}

	return &domain.BookWithBorrowers{Book: book, BorrowedBy: borrowers}, nil
}

// UpdateBook 更新图书。
// 描述性字段与副本数走不同路径：副本数通过 AdjustTotalCopies 的
// 条件更新调整，缩减到低于在借数量时整体失败，已做的描述性修改保留。
func (s *bookService) UpdateBook(id int64, req *domain.UpdateBookRequest) (*domain.Book, error) {
	book, err := s.GetBook(id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		book.Title = strings.TrimSpace(*req.Title)
	}
	if req.Author != nil {
		book.Author = strings.TrimSpace(*req.Author)
	}
	if req.ISBN != nil {
		isbn := domain.NormalizeISBN(*req.ISBN)
		if isbn != book.ISBN {
			other, err := s.bookRepo.GetByISBN(isbn)
			if err != nil {
				return nil, fmt.Errorf("check isbn: %w", err)
			}
			if other != nil {
				return nil, ErrISBNExists
			}
			book.ISBN = isbn
		}
	}
	if req.Description != nil {
		book.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		book.Category = *req.Category
	}
	if req.PublishedYear != nil {
		book.PublishedYear = req.PublishedYear
	}
	if req.IsActive != nil {
		book.IsActive = *req.IsActive
	}

	if err := s.bookRepo.Update(book); err != nil {
		s.logger.Error("failed to update book", zap.Int64("book_id", id), zap.Error(err))
		return nil, fmt.Errorf("update book: %w", err)
	}

	// 副本数有变化时才触发条件更新：MySQL对未变更的行报告0影响行数，
	// 无变化也执行会被误判为调整失败。
	if req.TotalCopies != nil && *req.TotalCopies != book.TotalCopies {
		if err := s.bookRepo.AdjustTotalCopies(id, *req.TotalCopies); err != nil {
			if errors.Is(err, repo.ErrCopiesBelowBorrowed) {
				return nil, ErrCopiesBelowBorrowed
			}
			s.logger.Error("failed to adjust total copies", zap.Int64("book_id", id), zap.Error(err))
			return nil, fmt.Errorf("adjust total copies: %w", err)
		}
	}

	// 重新读取，返回调整后的副本数
	updated, err := s.GetBook(id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("book updated", zap.Int64("book_id", id))
	return updated, nil
}

// DeleteBook 删除图书。
// 存在在借记录时拒绝删除；历史借阅记录随图书一并清除。
func (s *bookService) DeleteBook(id int64) error {
	if _, err := s.GetBook(id); err != nil {
		return err
	}

	if err := s.bookRepo.Delete(id); err != nil {
		if errors.Is(err, repo.ErrHasActiveLoans) {
			return ErrBookHasLoans
		}
		s.logger.Error("failed to delete book", zap.Int64("book_id", id), zap.Error(err))
		return fmt.Errorf("delete book: %w", err)
	}

	s.logger.Info("book deleted", zap.Int64("book_id", id))
	return nil
}

// ListBooks 读者视图的图书列表
func (s *bookService) ListBooks(req *domain.BookListRequest) (*domain.BookListResponse, error) {
	req.ActiveOnly = true
	return s.list(req)
}

// ListAllBooks 管理员视图的图书列表，含下架图书
func (s *bookService) ListAllBooks(req *domain.BookListRequest) (*domain.BookListResponse, error) {
	req.ActiveOnly = false
	return s.list(req)
}

// SearchBooks 全文搜索，关键词必填
func (s *bookService) SearchBooks(req *domain.BookListRequest) (*domain.BookListResponse, error) {
	if req.Search == nil || strings.TrimSpace(*req.Search) == "" {
		return nil, ErrSearchTermRequired
	}
	req.ActiveOnly = true
	return s.list(req)
}

func (s *bookService) list(req *domain.BookListRequest) (*domain.BookListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	books, total, err := s.bookRepo.List(req)
	if err != nil {
		s.logger.Error("failed to list books", zap.Error(err))
		return nil, fmt.Errorf("list books: %w", err)
	}
	if books == nil {
		books = []*domain.Book{}
	}

	return &domain.BookListResponse{
		Books:    books,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}
