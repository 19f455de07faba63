// Package domain 定义图书相关的业务领域模型和核心业务规则。
package domain

import (
	"time"
)

// BookCategory 定义图书分类类型
type BookCategory string

// 图书分类取值集合
const (
	CategoryFiction    BookCategory = "Fiction"
	CategoryNonFiction BookCategory = "Non-Fiction"
	CategoryScience    BookCategory = "Science"
	CategoryTechnology BookCategory = "Technology"
	CategoryHistory    BookCategory = "History"
	CategoryBiography  BookCategory = "Biography"
	CategoryRomance    BookCategory = "Romance"
	CategoryMystery    BookCategory = "Mystery"
	CategoryFantasy    BookCategory = "Fantasy"
	CategoryHorror     BookCategory = "Horror"
	CategorySelfHelp   BookCategory = "Self-Help"
	CategoryBusiness   BookCategory = "Business"
	CategoryOther      BookCategory = "Other"
)

// Categories 列出全部合法分类
var Categories = []BookCategory{
	CategoryFiction, CategoryNonFiction, CategoryScience, CategoryTechnology,
	CategoryHistory, CategoryBiography, CategoryRomance, CategoryMystery,
	CategoryFantasy, CategoryHorror, CategorySelfHelp, CategoryBusiness,
	CategoryOther,
}

// IsValid 判断分类取值是否合法
func (c BookCategory) IsValid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Book 表示图书领域模型。
// 不变式：available_copies == total_copies - 该书在借记录数，
// 由仓储层的条件更新保证，任何操作完成后都成立。
type Book struct {
	ID              int64        `json:"id"`
	Title           string       `json:"title"`
	Author          string       `json:"author"`
	ISBN            string       `json:"isbn"`
	Description     string       `json:"description"`
	Category        BookCategory `json:"category"`
	PublishedYear   *int         `json:"published_year"`
	TotalCopies     int          `json:"total_copies"`
	AvailableCopies int          `json:"available_copies"`
	IsActive        bool         `json:"is_active"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// BorrowedCopies 返回当前在借副本数
func (b *Book) BorrowedCopies() int {
	return b.TotalCopies - b.AvailableCopies
}

// IsAvailable 判断是否还有可借副本
func (b *Book) IsAvailable() bool {
	return b.AvailableCopies > 0
}

// CreateBookRequest 表示新增图书请求
type CreateBookRequest struct {
	Title         string       `json:"title"`
	Author        string       `json:"author"`
	ISBN          string       `json:"isbn"`
	Description   string       `json:"description"`
	Category      BookCategory `json:"category"`
	PublishedYear *int         `json:"published_year"`
	TotalCopies   int          `json:"total_copies"`
}

// UpdateBookRequest 表示更新图书请求，所有字段可选。
// TotalCopies 变更时可用副本数随之调整，不足在借数量时被拒绝。
type UpdateBookRequest struct {
	Title         *string       `json:"title"`
	Author        *string       `json:"author"`
	ISBN          *string       `json:"isbn"`
	Description   *string       `json:"description"`
	Category      *BookCategory `json:"category"`
	PublishedYear *int          `json:"published_year"`
	TotalCopies   *int          `json:"total_copies"`
	IsActive      *bool         `json:"is_active"`
}

// BookStatus 表示管理员列表的库存状态过滤
type BookStatus string

const (
	BookStatusAvailable BookStatus = "available" // 尚有可借副本
	BookStatusBorrowed  BookStatus = "borrowed"  // 存在在借副本
)

// BookListRequest 表示图书列表查询请求
type BookListRequest struct {
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	Category   *BookCategory `json:"category"`    // 分类过滤
	Status     *BookStatus   `json:"status"`      // 库存状态过滤（管理员）
	Search     *string       `json:"search"`      // 全文搜索关键词
	ActiveOnly bool          `json:"active_only"` // 仅展示上架图书（读者视图）
}

// BookListResponse 表示图书列表查询响应
type BookListResponse struct {
	Books    []*Book `json:"books"`
	Total    int64   `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// BookWithBorrowers 表示携带借阅人明细的图书视图（管理员）
type BookWithBorrowers struct {
	*Book
	BorrowedBy []*BookBorrower `json:"borrowed_by"`
}
