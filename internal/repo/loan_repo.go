package repo

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/MorseWayne/shelf_hub/internal/database"
	"github.com/MorseWayne/shelf_hub/internal/domain"
)

// LoanRepository 定义借阅关系的数据访问接口。
// 借出与归还涉及 books 与 loans 两张表，全部在单个事务内完成；
// 可借数的检查与递减合并为一条条件更新，这是全系统唯一的并发关键约定：
// 两次读-改-写会在只剩最后一本时把同一副本借给两个人。
type LoanRepository interface {
	// Borrow 在事务内登记借出：带去重条件写入借阅行、条件递减可借数。
	// 可能返回 ErrDuplicateLoan、ErrNoAvailableCopies。
	Borrow(bookID, userID int64, now time.Time) (*domain.Loan, error)
	// Return 在事务内登记归还：关闭最早一条在借记录并回增可借数。
	// 没有在借记录时返回 ErrNoActiveLoan。
	Return(bookID, userID int64, now time.Time) error

	// 用户侧视图
	ActiveByUser(userID int64) ([]*domain.BorrowedBook, error)
	HistoryByUser(userID int64) ([]*domain.BorrowedBook, error)
	// 图书侧视图
	ActiveByBook(bookID int64) ([]*domain.BookBorrower, error)

	// 统计操作
	CountActive() (int64, error)
	Recent(limit int) ([]*domain.RecentBorrow, error)
	Popular(limit int) ([]*domain.PopularBook, error)
}

// loanRepo 实现LoanRepository接口
type loanRepo struct {
	db *database.DB
}

// NewLoanRepository 创建借阅仓储实例
func NewLoanRepository(db *database.DB) LoanRepository {
	return &loanRepo{db: db}
}

// Borrow 登记借出
func (r *loanRepo) Borrow(bookID, userID int64, now time.Time) (*domain.Loan, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin borrow tx: %w", err)
	}
	defer tx.Rollback()

	// 同一用户对同一本书只允许一条在借记录。
	// 去重条件并入INSERT本身，同一用户并发发起两次借阅也只会落一行。
	due := now.Add(domain.LoanPeriod)
	insertResult, err := tx.Exec(
		`INSERT INTO loans (book_id, user_id, borrowed_at, due_date)
		 SELECT ?, ?, ?, ? FROM DUAL
		 WHERE NOT EXISTS (
		     SELECT 1 FROM loans WHERE book_id = ? AND user_id = ? AND returned_at IS NULL
		 )`,
		bookID, userID, now, due, bookID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert loan: %w", err)
	}
	inserted, err := insertResult.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get affected rows: %w", err)
	}
	if inserted == 0 {
		return nil, ErrDuplicateLoan
	}
	loanID, err := insertResult.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	// 可借数检查与递减必须是同一条语句：
	// 受影响行数为0即无可借副本（或图书已下架），整个事务回滚。
	result, err := tx.Exec(
		`UPDATE books SET available_copies = available_copies - 1
		 WHERE id = ? AND available_copies > 0 AND is_active = TRUE`,
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("decrement available copies: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get affected rows: %w", err)
	}
	if affected == 0 {
		return nil, ErrNoAvailableCopies
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit borrow tx: %w", err)
	}

	return &domain.Loan{
		ID:         loanID,
		BookID:     bookID,
		UserID:     userID,
		BorrowedAt: now,
		DueDate:    due,
	}, nil
}

// Return 登记归还。
// 按借出时间升序只关闭一条记录：不变式下至多存在一条，
// LIMIT 1 是针对异常数据的防御，不是预期路径。
func (r *loanRepo) Return(bookID, userID int64, now time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin return tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE loans SET returned_at = ?
		 WHERE book_id = ? AND user_id = ? AND returned_at IS NULL
		 ORDER BY borrowed_at ASC
		 LIMIT 1`,
		now, bookID, userID,
	)
	if err != nil {
		return fmt.Errorf("close loan: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNoActiveLoan
	}

	if _, err := tx.Exec(
		`UPDATE books SET available_copies = available_copies + 1 WHERE id = ?`,
		bookID,
	); err != nil {
		return fmt.Errorf("increment available copies: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit return tx: %w", err)
	}

	return nil
}

const borrowedBookColumns = `
	l.book_id, b.title, b.author, b.isbn, b.category, l.borrowed_at, l.due_date, l.returned_at
`

func (r *loanRepo) queryBorrowedBooks(query string, args ...any) ([]*domain.BorrowedBook, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query borrowed books: %w", err)
	}
	defer rows.Close()

	var items []*domain.BorrowedBook
	for rows.Next() {
		item := &domain.BorrowedBook{}
		var returnedAt sql.NullTime
		err := rows.Scan(
			&item.BookID,
			&item.Title,
			&item.Author,
			&item.ISBN,
			&item.Category,
			&item.BorrowedAt,
			&item.DueDate,
			&returnedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan borrowed book: %w", err)
		}
		if returnedAt.Valid {
			t := returnedAt.Time
			item.ReturnedAt = &t
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate borrowed books: %w", err)
	}

	return items, nil
}

// ActiveByUser 查询用户当前在借的图书
func (r *loanRepo) ActiveByUser(userID int64) ([]*domain.BorrowedBook, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM loans l
		JOIN books b ON b.id = l.book_id
		WHERE l.user_id = ? AND l.returned_at IS NULL
		ORDER BY l.borrowed_at DESC
	`, borrowedBookColumns)

	return r.queryBorrowedBooks(query, userID)
}

// HistoryByUser 查询用户全部借阅历史（含已归还）
func (r *loanRepo) HistoryByUser(userID int64) ([]*domain.BorrowedBook, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM loans l
		JOIN books b ON b.id = l.book_id
		WHERE l.user_id = ?
		ORDER BY l.borrowed_at DESC
	`, borrowedBookColumns)

	return r.queryBorrowedBooks(query, userID)
}

// ActiveByBook 查询图书当前的借阅人明细
func (r *loanRepo) ActiveByBook(bookID int64) ([]*domain.BookBorrower, error) {
	query := `
		SELECT l.user_id, u.name, u.email, l.borrowed_at, l.due_date
		FROM loans l
		JOIN users u ON u.id = l.user_id
		WHERE l.book_id = ? AND l.returned_at IS NULL
		ORDER BY l.borrowed_at ASC
	`

	rows, err := r.db.Query(query, bookID)
	if err != nil {
		return nil, fmt.Errorf("query book borrowers: %w", err)
	}
	defer rows.Close()

	var borrowers []*domain.BookBorrower
	for rows.Next() {
		b := &domain.BookBorrower{}
		err := rows.Scan(&b.UserID, &b.Name, &b.Email, &b.BorrowedAt, &b.DueDate)
		if err != nil {
			return nil, fmt.Errorf("scan book borrower: %w", err)
		}
		borrowers = append(borrowers, b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate book borrowers: %w", err)
	}

	return borrowers, nil
}

// CountActive 统计在借副本总数
func (r *loanRepo) CountActive() (int64, error) {
	var count int64
	err := r.db.QueryRow("SELECT COUNT(*) FROM loans WHERE returned_at IS NULL").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active loans: %w", err)
	}
	return count, nil
}

// Recent 查询最近的在借记录（仪表盘）
func (r *loanRepo) Recent(limit int) ([]*domain.RecentBorrow, error) {
	query := `
		SELECT l.book_id, b.title, b.author, l.user_id, u.name, u.email, l.borrowed_at, l.due_date
		FROM loans l
		JOIN books b ON b.id = l.book_id
		JOIN users u ON u.id = l.user_id
		WHERE l.returned_at IS NULL
		ORDER BY l.borrowed_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent borrows: %w", err)
	}
	defer rows.Close()

	var items []*domain.RecentBorrow
	for rows.Next() {
		item := &domain.RecentBorrow{}
		err := rows.Scan(
			&item.BookID,
			&item.Title,
			&item.Author,
			&item.UserID,
			&item.UserName,
			&item.UserEmail,
			&item.BorrowedAt,
			&item.DueDate,
		)
		if err != nil {
			return nil, fmt.Errorf("scan recent borrow: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent borrows: %w", err)
	}

	return items, nil
}

// Popular 按历史借阅次数查询热门图书（仪表盘）
func (r *loanRepo) Popular(limit int) ([]*domain.PopularBook, error) {
	query := `
		SELECT b.id, b.title, b.author, COUNT(l.id) AS borrow_count
		FROM books b
		LEFT JOIN loans l ON l.book_id = b.id
		GROUP BY b.id, b.title, b.author
		ORDER BY borrow_count DESC, b.id ASC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("query popular books: %w", err)
	}
	defer rows.Close()

	var items []*domain.PopularBook
	for rows.Next() {
		item := &domain.PopularBook{}
		err := rows.Scan(&item.BookID, &item.Title, &item.Author, &item.BorrowCount)
		if err != nil {
			return nil, fmt.Errorf("scan popular book: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate popular books: %w", err)
	}

	return items, nil
}
