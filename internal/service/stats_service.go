package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/MorseWayne/shelf_hub/internal/domain"
	"github.com/MorseWayne/shelf_hub/internal/repo"
)

// 仪表盘列表的固定长度
const (
	recentBorrowLimit = 5
	popularBookLimit  = 5
)

// StatsService 定义仪表盘统计服务接口
type StatsService interface {
	DashboardStats() (*domain.DashboardStats, error)
}

// statsService 是 StatsService 接口的实现
type statsService struct {
	userRepo repo.UserRepository
	bookRepo repo.BookRepository
	loanRepo repo.LoanRepository
	logger   *zap.Logger
}

// NewStatsService 创建统计服务实例
func NewStatsService(userRepo repo.UserRepository, bookRepo repo.BookRepository, loanRepo repo.LoanRepository, logger *zap.Logger) StatsService {
	return &statsService{
		userRepo: userRepo,
		bookRepo: bookRepo,
		loanRepo: loanRepo,
		logger:   logger,
	}
}

// DashboardStats 汇总仪表盘统计数据。
// 各项统计来自不同查询，之间没有一致性要求，串行读取即可。
func (s *statsService) DashboardStats() (*domain.DashboardStats, error) {
	totalUsers, err := s.userRepo.CountByRole(domain.UserRoleUser)
	if err != nil {
		s.logger.Error("failed to count users", zap.Error(err))
		return nil, fmt.Errorf("count users: %w", err)
	}

	totalBooks, err := s.bookRepo.Count()
	if err != nil {
		s.logger.Error("failed to count books", zap.Error(err))
		return nil, fmt.Errorf("count books: %w", err)
	}

	totalBorrowed, err := s.loanRepo.CountActive()
	if err != nil {
		s.logger.Error("failed to count active loans", zap.Error(err))
		return nil, fmt.Errorf("count active loans: %w", err)
	}

	totalAvailable, err := s.bookRepo.SumAvailableCopies()
	if err != nil {
		s.logger.Error("failed to sum available copies", zap.Error(err))
		return nil, fmt.Errorf("sum available copies: %w", err)
	}

	recent, err := s.loanRepo.Recent(recentBorrowLimit)
	if err != nil {
		s.logger.Error("failed to get recent borrows", zap.Error(err))
		return nil, fmt.Errorf("get recent borrows: %w", err)
	}
	if recent == nil {
		recent = []*domain.RecentBorrow{}
	}

	popular, err := s.loanRepo.Popular(popularBookLimit)
	if err != nil {
		s.logger.Error("failed to get popular books", zap.Error(err))
		return nil, fmt.Errorf("get popular books: %w", err)
	}
	if popular == nil {
		popular = []*domain.PopularBook{}
	}

	return &domain.DashboardStats{
		TotalUsers:     totalUsers,
		TotalBooks:     totalBooks,
		TotalBorrowed:  totalBorrowed,
		TotalAvailable: totalAvailable,
		RecentBorrows:  recent,
		PopularBooks:   popular,
	}, nil
}
