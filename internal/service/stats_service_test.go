package service

import (
	"testing"

	"go.uber.org/zap"

	"github.com/MorseWayne/shelf_hub/internal/domain"
)

func TestStatsService_DashboardStats(t *testing.T) {
	env := newTestEnv()
	statsService := NewStatsService(env.userRepo, env.bookRepo, env.loanRepo, zap.NewNop())

	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	admin := env.seedUser(t, "admin")
	if _, err := env.userService.UpdateUserRole(admin.ID, domain.UserRoleAdmin); err != nil {
		t.Fatalf("promote admin: %v", err)
	}

	bookA := env.seedBook(t, "Book A", 3)
	bookB := env.seedBook(t, "Book B", 2)

	// bookA被借两次（一次已还），bookB在借一次
	if _, err := env.loanService.Borrow(alice.ID, bookA.ID); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if _, err := env.loanService.Return(alice.ID, bookA.ID); err != nil {
		t.Fatalf("return: %v", err)
	}
	if _, err := env.loanService.Borrow(bob.ID, bookA.ID); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if _, err := env.loanService.Borrow(alice.ID, bookB.ID); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	stats, err := statsService.DashboardStats()
	if err != nil {
		t.Fatalf("DashboardStats failed: %v", err)
	}

	// 只统计普通读者，管理员不计入
	if stats.TotalUsers != 2 {
		t.Errorf("expected 2 users, got %d", stats.TotalUsers)
	}
	if stats.TotalBooks != 2 {
		t.Errorf("expected 2 books, got %d", stats.TotalBooks)
	}
	if stats.TotalBorrowed != 2 {
		t.Errorf("expected 2 active loans, got %d", stats.TotalBorrowed)
	}
	// bookA: 3-1在借=2可借；bookB: 2-1=1
	if stats.TotalAvailable != 3 {
		t.Errorf("expected 3 available copies, got %d", stats.TotalAvailable)
	}

	if len(stats.RecentBorrows) != 2 {
		t.Errorf("expected 2 recent borrows, got %d", len(stats.RecentBorrows))
	}

	// bookA历史借阅2次排在bookB前面
	if len(stats.PopularBooks) != 2 {
		t.Fatalf("expected 2 popular books, got %d", len(stats.PopularBooks))
	}
	if stats.PopularBooks[0].BookID != bookA.ID || stats.PopularBooks[0].BorrowCount != 2 {
		t.Errorf("unexpected top popular book: %+v", stats.PopularBooks[0])
	}
}

func TestStatsService_DashboardStats_Empty(t *testing.T) {
	env := newTestEnv()
	statsService := NewStatsService(env.userRepo, env.bookRepo, env.loanRepo, zap.NewNop())

	stats, err := statsService.DashboardStats()
	if err != nil {
		t.Fatalf("DashboardStats failed: %v", err)
	}

	if stats.TotalUsers != 0 || stats.TotalBooks != 0 || stats.TotalBorrowed != 0 || stats.TotalAvailable != 0 {
		t.Errorf("expected zeroed stats, got %+v", stats)
	}
	// 空库返回空切片而非null
	if stats.RecentBorrows == nil || stats.PopularBooks == nil {
		t.Error("expected empty slices, got nil")
	}
}
