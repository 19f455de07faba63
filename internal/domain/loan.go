// Package domain 定义借阅关系的领域模型。
// 借阅(Loan)是独立实体：一行记录对应一个用户对一本书的一次借阅，
// returned_at 为空表示在借。图书侧与用户侧的借阅视图均由该表派生，
// 不再维护双向冗余列表。
package domain

import (
	"time"
)

// LoanPeriod 借期：到期时间在借出时一次性计算，归还时不重算。
const LoanPeriod = 14 * 24 * time.Hour

// Loan 表示一条借阅记录
type Loan struct {
	ID         int64      `json:"id"`
	BookID     int64      `json:"book_id"`
	UserID     int64      `json:"user_id"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueDate    time.Time  `json:"due_date"`
	ReturnedAt *time.Time `json:"returned_at"` // 为空表示在借
}

// IsActive 判断借阅是否仍在进行中
func (l *Loan) IsActive() bool {
	return l.ReturnedAt == nil
}

// IsOverdue 判断在借记录是否已逾期
func (l *Loan) IsOverdue(now time.Time) bool {
	return l.IsActive() && now.After(l.DueDate)
}

// BorrowResult 表示借书成功的响应载荷
type BorrowResult struct {
	BookID  int64     `json:"book_id"`
	Title   string    `json:"title"`
	Author  string    `json:"author"`
	DueDate time.Time `json:"due_date"`
}

// ReturnResult 表示还书成功的响应载荷
type ReturnResult struct {
	BookID int64  `json:"book_id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// BorrowedBook 表示用户视角的一条在借（或历史）记录
type BorrowedBook struct {
	BookID     int64        `json:"book_id"`
	Title      string       `json:"title"`
	Author     string       `json:"author"`
	ISBN       string       `json:"isbn"`
	Category   BookCategory `json:"category"`
	BorrowedAt time.Time    `json:"borrowed_at"`
	DueDate    time.Time    `json:"due_date"`
	ReturnedAt *time.Time   `json:"returned_at,omitempty"`
}

// BookBorrower 表示图书视角的一条在借记录
type BookBorrower struct {
	UserID     int64     `json:"user_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	BorrowedAt time.Time `json:"borrowed_at"`
	DueDate    time.Time `json:"due_date"`
}

// RecentBorrow 表示仪表盘的近期借阅条目
type RecentBorrow struct {
	BookID     int64     `json:"book_id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	UserID     int64     `json:"user_id"`
	UserName   string    `json:"user_name"`
	UserEmail  string    `json:"user_email"`
	BorrowedAt time.Time `json:"borrowed_at"`
	DueDate    time.Time `json:"due_date"`
}

// PopularBook 表示仪表盘的热门图书条目（按历史借阅次数）
type PopularBook struct {
	BookID      int64  `json:"book_id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	BorrowCount int64  `json:"borrow_count"`
}

// DashboardStats 表示管理员仪表盘统计
type DashboardStats struct {
	TotalUsers     int64           `json:"total_users"`     // 普通读者数
	TotalBooks     int64           `json:"total_books"`     // 图书条目数
	TotalBorrowed  int64           `json:"total_borrowed"`  // 在借副本总数
	TotalAvailable int64           `json:"total_available"` // 可借副本总数
	RecentBorrows  []*RecentBorrow `json:"recent_borrows"`
	PopularBooks   []*PopularBook  `json:"popular_books"`
}
