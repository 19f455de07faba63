// Package domain 定义业务领域模型和核心业务规则。
// 领域模型是业务逻辑的核心，独立于外部依赖（数据库、HTTP等）。
package domain

import (
	"time"
)

// UserRole 定义用户角色类型
type UserRole string

const (
	UserRoleUser  UserRole = "user"  // 普通读者
	UserRoleAdmin UserRole = "admin" // 图书管理员
)

// IsValid 判断角色取值是否合法
func (r UserRole) IsValid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

// User 表示用户领域模型
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // JSON序列化时忽略密码哈希
	Role         UserRole  `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin 判断用户是否为管理员
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// RegisterRequest 表示用户注册请求
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest 表示用户登录请求
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse 表示登录成功的响应
type LoginResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshTokenRequest 表示刷新令牌请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UpdateProfileRequest 表示用户更新个人资料请求
type UpdateProfileRequest struct {
	Name string `json:"name"`
}

// UpdateUserRoleRequest 表示管理员修改用户角色请求
type UpdateUserRoleRequest struct {
	Role UserRole `json:"role"`
}

// UserListRequest 表示用户列表查询请求（管理员）
type UserListRequest struct {
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Role     *UserRole `json:"role"`   // 角色过滤
	Search   *string   `json:"search"` // 按姓名或邮箱模糊搜索
}

// UserListResponse 表示用户列表查询响应
type UserListResponse struct {
	Users    []*User `json:"users"`
	Total    int64   `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// UserWithLoans 表示携带在借图书的用户视图
type UserWithLoans struct {
	*User
	BorrowedBooks []*BorrowedBook `json:"borrowed_books"`
}
