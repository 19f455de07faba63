package repo

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/MorseWayne/shelf_hub/internal/database"
	"github.com/MorseWayne/shelf_hub/internal/domain"
)

// UserRepository 定义用户数据访问接口
// 使用接口可以方便单元测试时进行模拟（mock）
type UserRepository interface {
	Create(user *domain.User) error
	GetByID(id int64) (*domain.User, error)
	GetByEmail(email string) (*domain.User, error)
	Update(user *domain.User) error
	// 管理员专用方法
	List(req *domain.UserListRequest) ([]*domain.User, int64, error)
	UpdateRole(userID int64, role domain.UserRole) error
	UpdateStatus(userID int64, isActive bool) error
	CountByRole(role domain.UserRole) (int64, error)
}

// userRepo 是 UserRepository 接口的数据库实现
type userRepo struct {
	db *database.DB
}

// NewUserRepository 创建用户仓储实例
func NewUserRepository(db *database.DB) UserRepository {
	return &userRepo{db: db}
}

const userColumns = "id, name, email, password_hash, role, is_active, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create 创建新用户
// 注意：密码哈希在服务层完成，这里只负责持久化
func (r *userRepo) Create(user *domain.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, role, is_active)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		user.Name,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.IsActive,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	user.ID = id
	return nil
}

// GetByID 根据ID查询用户，不存在时返回 (nil, nil)
func (r *userRepo) GetByID(id int64) (*domain.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = ?", userColumns)

	user, err := scanUser(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return user, nil
}

// GetByEmail 根据邮箱查询用户，不存在时返回 (nil, nil)
func (r *userRepo) GetByEmail(email string) (*domain.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = ?", userColumns)

	user, err := scanUser(r.db.QueryRow(query, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return user, nil
}

// Update 更新用户信息
func (r *userRepo) Update(user *domain.User) error {
	query := `
		UPDATE users
		SET name = ?, email = ?, password_hash = ?, role = ?, is_active = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		user.Name,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.IsActive,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	return nil
}

// List 分页获取用户列表，支持角色过滤与姓名/邮箱模糊搜索（管理员专用）
func (r *userRepo) List(req *domain.UserListRequest) ([]*domain.User, int64, error) {
	var conditions []string
	var args []any

	if req.Role != nil {
		conditions = append(conditions, "role = ?")
		args = append(args, string(*req.Role))
	}
	if req.Search != nil && *req.Search != "" {
		conditions = append(conditions, "(name LIKE ? OR email LIKE ?)")
		pattern := "%" + *req.Search + "%"
		args = append(args, pattern, pattern)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM users %s", where)
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM users %s
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, userColumns, where)

	args = append(args, req.PageSize, (req.Page-1)*req.PageSize)
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate users: %w", err)
	}

	return users, total, nil
}

// UpdateRole 更新用户角色（管理员专用）
func (r *userRepo) UpdateRole(userID int64, role domain.UserRole) error {
	query := `UPDATE users SET role = ? WHERE id = ?`

	result, err := r.db.Exec(query, string(role), userID)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user not found or role unchanged")
	}

	return nil
}

// UpdateStatus 更新用户启用状态（管理员专用）
func (r *userRepo) UpdateStatus(userID int64, isActive bool) error {
	query := `UPDATE users SET is_active = ? WHERE id = ?`

	result, err := r.db.Exec(query, isActive, userID)
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user not found or status unchanged")
	}

	return nil
}

// CountByRole 统计指定角色的用户数
func (r *userRepo) CountByRole(role domain.UserRole) (int64, error) {
	var count int64
	err := r.db.QueryRow("SELECT COUNT(*) FROM users WHERE role = ?", string(role)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return count, nil
}
