// Package service 提供业务逻辑层实现。
// 服务层负责协调领域对象和仓储，实现具体的业务用例。
package service

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/MorseWayne/shelf_hub/internal/domain"
	"github.com/MorseWayne/shelf_hub/internal/repo"
)

// 用户相关业务错误
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user is inactive")
	ErrInvalidRole        = errors.New("invalid role")
	ErrSelfDeactivation   = errors.New("cannot deactivate own admin account")
)

// UserService 定义用户服务接口
type UserService interface {
	Register(req *domain.RegisterRequest) (*domain.User, error)
	Login(req *domain.LoginRequest) (*domain.User, error)
	GetUserByID(id int64) (*domain.User, error)
	GetUserWithLoans(id int64) (*domain.UserWithLoans, error)
	UpdateProfile(userID int64, req *domain.UpdateProfileRequest) (*domain.User, error)

	// 管理员专用方法
	ListUsers(req *domain.UserListRequest) (*domain.UserListResponse, error)
	UpdateUserRole(userID int64, role domain.UserRole) (*domain.User, error)
	// ToggleUserStatus 翻转目标用户的启用状态。
	// actorID 用于自锁保护：管理员不能停用自己仍为管理员的账号。
	ToggleUserStatus(actorID, targetID int64) (*domain.User, error)
	BorrowingHistory(userID int64) ([]*domain.BorrowedBook, error)
}

// userService 是 UserService 接口的实现
type userService struct {
	userRepo repo.UserRepository
	loanRepo repo.LoanRepository
	logger   *zap.Logger
}

// NewUserService 创建用户服务实例
func NewUserService(userRepo repo.UserRepository, loanRepo repo.LoanRepository, logger *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		loanRepo: loanRepo,
		logger:   logger,
	}
}

// Register 用户注册。
// 业务规则：邮箱唯一；密码bcrypt哈希；新用户一律为普通读者，
// 角色只能由管理员后续调整。
func (s *userService) Register(req *domain.RegisterRequest) (*domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))

	existing, err := s.userRepo.GetByEmail(email)
	if err != nil {
		s.logger.Error("failed to check email", zap.Error(err))
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(passwordHash),
		Role:         domain.UserRoleUser,
		IsActive:     true,
	}

	if err := s.userRepo.Create(user); err != nil {
		s.logger.Error("failed to create user", zap.Error(err))
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered",
		zap.Int64("user_id", user.ID),
		zap.String("email", user.Email),
	)

	return user, nil
}

// Login 用户登录。
// 业务规则：邮箱+密码认证；停用账号拒绝登录。
func (s *userService) Login(req *domain.LoginRequest) (*domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		s.logger.Error("failed to get user by email", zap.Error(err))
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// bcrypt比较具有时间恒定特性，防止时序攻击
	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("failed to compare password", zap.Error(err))
		return nil, fmt.Errorf("compare password: %w", err)
	}

	s.logger.Info("user logged in",
		zap.Int64("user_id", user.ID),
		zap.String("email", user.Email),
	)

	return user, nil
}

// GetUserByID 根据ID获取用户
func (s *userService) GetUserByID(id int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get user by id", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}

// GetUserWithLoans 获取用户及其在借图书
func (s *userService) GetUserWithLoans(id int64) (*domain.UserWithLoans, error) {
	user, err := s.GetUserByID(id)
	if err != nil {
		return nil, err
	}

	loans, err := s.loanRepo.ActiveByUser(id)
	if err != nil {
		s.logger.Error("failed to get active loans", zap.Int64("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("get active loans: %w", err)
	}
	if loans == nil {
		loans = []*domain.BorrowedBook{}
	}

	return &domain.UserWithLoans{User: user, BorrowedBooks: loans}, nil
}

// UpdateProfile 更新个人资料（当前仅姓名）
func (s *userService) UpdateProfile(userID int64, req *domain.UpdateProfileRequest) (*domain.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	user.Name = strings.TrimSpace(req.Name)
	if err := s.userRepo.Update(user); err != nil {
		s.logger.Error("failed to update profile", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("update profile: %w", err)
	}

	return user, nil
}

// ListUsers 分页获取用户列表（管理员）
func (s *userService) ListUsers(req *domain.UserListRequest) (*domain.UserListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 10
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	users, total, err := s.userRepo.List(req)
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		return nil, fmt.Errorf("list users: %w", err)
	}

	return &domain.UserListResponse{
		Users:    users,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}

// UpdateUserRole 修改用户角色（管理员）
func (s *userService) UpdateUserRole(userID int64, role domain.UserRole) (*domain.User, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}

	if err := s.userRepo.UpdateRole(userID, role); err != nil {
		s.logger.Error("failed to update role", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("update role: %w", err)
	}

	user.Role = role
	s.logger.Info("user role updated",
		zap.Int64("user_id", userID),
		zap.String("role", string(role)),
	)

	return user, nil
}

// ToggleUserStatus 翻转用户启用状态（管理员）。
// 自锁保护：管理员停用自己仍持有管理员角色的账号会被拒绝，
// 避免系统失去最后一个管理入口。
func (s *userService) ToggleUserStatus(actorID, targetID int64) (*domain.User, error) {
	user, err := s.GetUserByID(targetID)
	if err != nil {
		return nil, err
	}

	if user.ID == actorID && user.IsAdmin() && user.IsActive {
		return nil, ErrSelfDeactivation
	}

	if err := s.userRepo.UpdateStatus(targetID, !user.IsActive); err != nil {
		s.logger.Error("failed to update status", zap.Int64("user_id", targetID), zap.Error(err))
		return nil, fmt.Errorf("update status: %w", err)
	}

	user.IsActive = !user.IsActive
	s.logger.Info("user status toggled",
		zap.Int64("user_id", targetID),
		zap.Bool("is_active", user.IsActive),
	)

	return user, nil
}

// BorrowingHistory 查询用户全部借阅历史（管理员）
func (s *userService) BorrowingHistory(userID int64) ([]*domain.BorrowedBook, error) {
	if _, err := s.GetUserByID(userID); err != nil {
		return nil, err
	}

	history, err := s.loanRepo.HistoryByUser(userID)
	if err != nil {
		s.logger.Error("failed to get borrowing history", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("get borrowing history: %w", err)
	}
	if history == nil {
		history = []*domain.BorrowedBook{}
	}

	return history, nil
}
