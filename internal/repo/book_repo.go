package repo

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/MorseWayne/shelf_hub/internal/database"
	"github.com/MorseWayne/shelf_hub/internal/domain"
)

// BookRepository 定义图书数据访问接口
type BookRepository interface {
	Create(book *domain.Book) error
	GetByID(id int64) (*domain.Book, error)
	GetByISBN(isbn string) (*domain.Book, error)
	// Update 只更新描述性字段，副本数通过 AdjustTotalCopies 调整
	Update(book *domain.Book) error
	// AdjustTotalCopies 以单条条件更新修改总副本数并同步可借数，
	// 新的可借数为负时不命中任何行，返回 ErrCopiesBelowBorrowed
	AdjustTotalCopies(bookID int64, newTotal int) error
	// Delete 仅在没有在借记录时删除，否则返回 ErrHasActiveLoans
	Delete(id int64) error

	List(req *domain.BookListRequest) ([]*domain.Book, int64, error)

	// 统计操作
	Count() (int64, error)
	SumAvailableCopies() (int64, error)
}

// bookRepo 实现BookRepository接口
type bookRepo struct {
	db *database.DB
}

// NewBookRepository 创建图书仓储实例
func NewBookRepository(db *database.DB) BookRepository {
	return &bookRepo{db: db}
}

const bookColumns = "id, title, author, isbn, description, category, published_year, total_copies, available_copies, is_active, created_at, updated_at"

func scanBook(row interface{ Scan(...any) error }) (*domain.Book, error) {
	book := &domain.Book{}
	var description sql.NullString
	err := row.Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.ISBN,
		&description,
		&book.Category,
		&book.PublishedYear,
		&book.TotalCopies,
		&book.AvailableCopies,
		&book.IsActive,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	book.Description = description.String
	return book, nil
}

// Create 新增图书，初始可借数等于总副本数
func (r *bookRepo) Create(book *domain.Book) error {
	query := `
		INSERT INTO books (title, author, isbn, description, category, published_year, total_copies, available_copies, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		book.Title,
		book.Author,
		book.ISBN,
		book.Description,
		string(book.Category),
		book.PublishedYear,
		book.TotalCopies,
		book.AvailableCopies,
		book.IsActive,
	)
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	book.ID = id
	return nil
}

// GetByID 根据ID查询图书，不存在时返回 (nil, nil)
func (r *bookRepo) GetByID(id int64) (*domain.Book, error) {
	query := fmt.Sprintf("SELECT %s FROM books WHERE id = ?", bookColumns)

	book, err := scanBook(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get book by id: %w", err)
	}

	return book, nil
}

// GetByISBN 根据ISBN查询图书，不存在时返回 (nil, nil)
func (r *bookRepo) GetByISBN(isbn string) (*domain.Book, error) {
	query := fmt.Sprintf("SELECT %s FROM books WHERE isbn = ?", bookColumns)

	book, err := scanBook(r.db.QueryRow(query, isbn))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get book by isbn: %w", err)
	}

	return book, nil
}

// Update 更新图书描述性字段。
// 副本数不在此处修改，避免绕过 AdjustTotalCopies 的守卫条件。
func (r *bookRepo) Update(book *domain.Book) error {
	query := `
		UPDATE books
		SET title = ?, author = ?, isbn = ?, description = ?, category = ?, published_year = ?, is_active = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		book.Title,
		book.Author,
		book.ISBN,
		book.Description,
		string(book.Category),
		book.PublishedYear,
		book.IsActive,
		book.ID,
	)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}

	return nil
}

// AdjustTotalCopies 调整总副本数。
// available_copies 的赋值排在 total_copies 之前：MySQL按从左到右
// 求值，delta 必须基于旧的 total_copies 计算。
// WHERE 条件保证 新可借数 = 旧可借数 + (新总数 - 旧总数) >= 0，
// 不变式 available == total - 在借数 由此在单条语句内保持。
func (r *bookRepo) AdjustTotalCopies(bookID int64, newTotal int) error {
	query := `
		UPDATE books
		SET available_copies = available_copies + (? - total_copies),
		    total_copies = ?
		WHERE id = ? AND available_copies + (? - total_copies) >= 0
	`

	result, err := r.db.Exec(query, newTotal, newTotal, bookID, newTotal)
	if err != nil {
		return fmt.Errorf("adjust total copies: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrCopiesBelowBorrowed
	}

	return nil
}

// Delete 删除图书。存在在借记录时删除条件不命中，返回 ErrHasActiveLoans。
// 历史借阅记录随图书级联删除（外键 ON DELETE CASCADE）。
func (r *bookRepo) Delete(id int64) error {
	query := `
		DELETE FROM books
		WHERE id = ?
		  AND NOT EXISTS (
		      SELECT 1 FROM loans WHERE loans.book_id = ? AND loans.returned_at IS NULL
		  )
	`

	result, err := r.db.Exec(query, id, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrHasActiveLoans
	}

	return nil
}

// List 获取图书列表。
// 关键词非空时走FULLTEXT索引做全文匹配，并按相关度排序；
// 否则按上架时间倒序。
func (r *bookRepo) List(req *domain.BookListRequest) ([]*domain.Book, int64, error) {
	where, args := r.buildListWhereClause(req)

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM books %s", where)
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	orderBy := "ORDER BY created_at DESC"
	if req.Search != nil && *req.Search != "" {
		orderBy = "ORDER BY MATCH(title, author, description) AGAINST(? IN NATURAL LANGUAGE MODE) DESC"
		args = append(args, *req.Search)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM books %s %s LIMIT ? OFFSET ?
	`, bookColumns, where, orderBy)

	args = append(args, req.PageSize, (req.Page-1)*req.PageSize)
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, book)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate books: %w", err)
	}

	return books, total, nil
}

// Count 获取图书条目总数
func (r *bookRepo) Count() (int64, error) {
	var count int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM books").Scan(&count); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return count, nil
}

// SumAvailableCopies 统计全馆可借副本总数
func (r *bookRepo) SumAvailableCopies() (int64, error) {
	var sum int64
	if err := r.db.QueryRow("SELECT COALESCE(SUM(available_copies), 0) FROM books").Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum available copies: %w", err)
	}
	return sum, nil
}

// buildListWhereClause 构建查询条件子句
func (r *bookRepo) buildListWhereClause(req *domain.BookListRequest) (string, []any) {
	var conditions []string
	var args []any

	// 读者视图只看上架图书
	if req.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}

	if req.Category != nil && *req.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, string(*req.Category))
	}

	// 库存状态过滤（管理员）
	if req.Status != nil {
		switch *req.Status {
		case domain.BookStatusAvailable:
			conditions = append(conditions, "available_copies > 0")
		case domain.BookStatusBorrowed:
			conditions = append(conditions, "available_copies < total_copies")
		}
	}

	if req.Search != nil && *req.Search != "" {
		conditions = append(conditions, "MATCH(title, author, description) AGAINST(? IN NATURAL LANGUAGE MODE)")
		args = append(args, *req.Search)
	}

	if len(conditions) > 0 {
		return "WHERE " + strings.Join(conditions, " AND "), args
	}

	return "", args
}
