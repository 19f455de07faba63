package service

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MorseWayne/shelf_hub/internal/domain"
	"github.com/MorseWayne/shelf_hub/internal/repo"
)

// memStore 是测试用的内存数据存储。
// 用户、图书、借阅仓储的模拟实现共享同一个 store，
// 并用同一把互斥锁模拟数据库事务的原子性，
// 使借出时"检查+递减"的条件更新语义在并发测试下成立。
type memStore struct {
	mu         sync.Mutex
	nextUserID int64
	nextBookID int64
	nextLoanID int64
	users      map[int64]*domain.User
	books      map[int64]*domain.Book
	loans      []*domain.Loan
}

func newMemStore() *memStore {
	return &memStore{
		nextUserID: 1,
		nextBookID: 1,
		nextLoanID: 1,
		users:      make(map[int64]*domain.User),
		books:      make(map[int64]*domain.Book),
	}
}

func copyBook(b *domain.Book) *domain.Book {
	c := *b
	return &c
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

// activeLoansForBook 统计某本书的在借记录数，调用方需持锁
func (s *memStore) activeLoansForBook(bookID int64) int {
	n := 0
	for _, l := range s.loans {
		if l.BookID == bookID && l.ReturnedAt == nil {
			n++
		}
	}
	return n
}

// MockUserRepository 是用户仓储的内存模拟实现
type MockUserRepository struct {
	store *memStore
}

func NewMockUserRepository(store *memStore) *MockUserRepository {
	return &MockUserRepository{store: store}
}

func (m *MockUserRepository) Create(user *domain.User) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	user.ID = m.store.nextUserID
	m.store.nextUserID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.store.users[user.ID] = copyUser(user)
	return nil
}

func (m *MockUserRepository) GetByID(id int64) (*domain.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	u, ok := m.store.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (m *MockUserRepository) GetByEmail(email string) (*domain.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	for _, u := range m.store.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (m *MockUserRepository) Update(user *domain.User) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	if _, ok := m.store.users[user.ID]; ok {
		m.store.users[user.ID] = copyUser(user)
	}
	return nil
}

func (m *MockUserRepository) List(req *domain.UserListRequest) ([]*domain.User, int64, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	var users []*domain.User
	for _, u := range m.store.users {
		if req.Role != nil && u.Role != *req.Role {
			continue
		}
		if req.Search != nil && *req.Search != "" {
			if !strings.Contains(u.Name, *req.Search) && !strings.Contains(u.Email, *req.Search) {
				continue
			}
		}
		users = append(users, copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	total := int64(len(users))
	start := (req.Page - 1) * req.PageSize
	if start > len(users) {
		return []*domain.User{}, total, nil
	}
	end := start + req.PageSize
	if end > len(users) {
		end = len(users)
	}
	return users[start:end], total, nil
}

func (m *MockUserRepository) UpdateRole(userID int64, role domain.UserRole) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	if u, ok := m.store.users[userID]; ok {
		u.Role = role
	}
	return nil
}

func (m *MockUserRepository) UpdateStatus(userID int64, isActive bool) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	if u, ok := m.store.users[userID]; ok {
		u.IsActive = isActive
	}
	return nil
}

func (m *MockUserRepository) CountByRole(role domain.UserRole) (int64, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	var n int64
	for _, u := range m.store.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// MockBookRepository 是图书仓储的内存模拟实现
type MockBookRepository struct {
	store *memStore
}

func NewMockBookRepository(store *memStore) *MockBookRepository {
	return &MockBookRepository{store: store}
}

func (m *MockBookRepository) Create(book *domain.Book) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	book.ID = m.store.nextBookID
	m.store.nextBookID++
	book.CreatedAt = time.Now()
	book.UpdatedAt = book.CreatedAt
	m.store.books[book.ID] = copyBook(book)
	return nil
}

func (m *MockBookRepository) GetByID(id int64) (*domain.Book, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	b, ok := m.store.books[id]
	if !ok {
		return nil, nil
	}
	return copyBook(b), nil
}

func (m *MockBookRepository) GetByISBN(isbn string) (*domain.Book, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	for _, b := range m.store.books {
		if b.ISBN == isbn {
			return copyBook(b), nil
		}
	}
	return nil, nil
}

func (m *MockBookRepository) Update(book *domain.Book) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	if existing, ok := m.store.books[book.ID]; ok {
		// 仅更新描述性字段，副本数由 AdjustTotalCopies 维护
		existing.Title = book.Title
		existing.Author = book.Author
		existing.ISBN = book.ISBN
		existing.Description = book.Description
		existing.Category = book.Category
		existing.PublishedYear = book.PublishedYear
		existing.IsActive = book.IsActive
	}
	return nil
}

func (m *MockBookRepository) AdjustTotalCopies(bookID int64, newTotal int) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	b, ok := m.store.books[bookID]
	if !ok {
		return repo.ErrCopiesBelowBorrowed
	}
	delta := newTotal - b.TotalCopies
	if b.AvailableCopies+delta < 0 {
		return repo.ErrCopiesBelowBorrowed
	}
	b.AvailableCopies += delta
	b.TotalCopies = newTotal
	return nil
}

func (m *MockBookRepository) Delete(id int64) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	if m.store.activeLoansForBook(id) > 0 {
		return repo.ErrHasActiveLoans
	}
	delete(m.store.books, id)

	var kept []*domain.Loan
	for _, l := range m.store.loans {
		if l.BookID != id {
			kept = append(kept, l)
		}
	}
	m.store.loans = kept
	return nil
}

func (m *MockBookRepository) List(req *domain.BookListRequest) ([]*domain.Book, int64, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	var books []*domain.Book
	for _, b := range m.store.books {
		if req.ActiveOnly && !b.IsActive {
			continue
		}
		if req.Category != nil && b.Category != *req.Category {
			continue
		}
		if req.Status != nil {
			switch *req.Status {
			case domain.BookStatusAvailable:
				if b.AvailableCopies <= 0 {
					continue
				}
			case domain.BookStatusBorrowed:
				if b.AvailableCopies >= b.TotalCopies {
					continue
				}
			}
		}
		if req.Search != nil && *req.Search != "" {
			term := strings.ToLower(*req.Search)
			haystack := strings.ToLower(b.Title + " " + b.Author + " " + b.Description)
			if !strings.Contains(haystack, term) {
				continue
			}
		}
		books = append(books, copyBook(b))
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })

	total := int64(len(books))
	start := (req.Page - 1) * req.PageSize
	if start > len(books) {
		return []*domain.Book{}, total, nil
	}
	end := start + req.PageSize
	if end > len(books) {
		end = len(books)
	}
	return books[start:end], total, nil
}

func (m *MockBookRepository) Count() (int64, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return int64(len(m.store.books)), nil
}

func (m *MockBookRepository) SumAvailableCopies() (int64, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	var sum int64
	for _, b := range m.store.books {
		sum += int64(b.AvailableCopies)
	}
	return sum, nil
}

// MockLoanRepository 是借阅仓储的内存模拟实现。
// Borrow/Return 在持锁状态下完成检查和更新，复现条件更新的原子语义。
type MockLoanRepository struct {
	store *memStore
}

func NewMockLoanRepository(store *memStore) *MockLoanRepository {
	return &MockLoanRepository{store: store}
}

func (m *MockLoanRepository) Borrow(bookID, userID int64, now time.Time) (*domain.Loan, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	for _, l := range m.store.loans {
		if l.BookID == bookID && l.UserID == userID && l.ReturnedAt == nil {
			return nil, repo.ErrDuplicateLoan
		}
	}

	b, ok := m.store.books[bookID]
	if !ok || !b.IsActive || b.AvailableCopies <= 0 {
		return nil, repo.ErrNoAvailableCopies
	}
	b.AvailableCopies--

	loan := &domain.Loan{
		ID:         m.store.nextLoanID,
		BookID:     bookID,
		UserID:     userID,
		BorrowedAt: now,
		DueDate:    now.Add(domain.LoanPeriod),
	}
	m.store.nextLoanID++
	m.store.loans = append(m.store.loans, loan)
	return loan, nil
}

func (m *MockLoanRepository) Return(bookID, userID int64, now time.Time) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	var oldest *domain.Loan
	for _, l := range m.store.loans {
		if l.BookID == bookID && l.UserID == userID && l.ReturnedAt == nil {
			if oldest == nil || l.BorrowedAt.Before(oldest.BorrowedAt) {
				oldest = l
			}
		}
	}
	if oldest == nil {
		return repo.ErrNoActiveLoan
	}

	t := now
	oldest.ReturnedAt = &t
	if b, ok := m.store.books[bookID]; ok {
		b.AvailableCopies++
	}
	return nil
}

func (m *MockLoanRepository) borrowedBooks(userID int64, activeOnly bool) []*domain.BorrowedBook {
	var items []*domain.BorrowedBook
	for _, l := range m.store.loans {
		if l.UserID != userID {
			continue
		}
		if activeOnly && l.ReturnedAt != nil {
			continue
		}
		b, ok := m.store.books[l.BookID]
		if !ok {
			continue
		}
		items = append(items, &domain.BorrowedBook{
			BookID:     b.ID,
			Title:      b.Title,
			Author:     b.Author,
			ISBN:       b.ISBN,
			Category:   b.Category,
			BorrowedAt: l.BorrowedAt,
			DueDate:    l.DueDate,
			ReturnedAt: l.ReturnedAt,
		})
	}
	return items
}

func (m *MockLoanRepository) ActiveByUser(userID int64) ([]*domain.BorrowedBook, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.borrowedBooks(userID, true), nil
}

func (m *MockLoanRepository) HistoryByUser(userID int64) ([]*domain.BorrowedBook, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.borrowedBooks(userID, false), nil
}

func (m *MockLoanRepository) ActiveByBook(bookID int64) ([]*domain.BookBorrower, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	var borrowers []*domain.BookBorrower
	for _, l := range m.store.loans {
		if l.BookID != bookID || l.ReturnedAt != nil {
			continue
		}
		u, ok := m.store.users[l.UserID]
		if !ok {
			continue
		}
		borrowers = append(borrowers, &domain.BookBorrower{
			UserID:     u.ID,
			Name:       u.Name,
			Email:      u.Email,
			BorrowedAt: l.BorrowedAt,
			DueDate:    l.DueDate,
		})
	}
	return borrowers, nil
}

func (m *MockLoanRepository) CountActive() (int64, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	var n int64
	for _, l := range m.store.loans {
		if l.ReturnedAt == nil {
			n++
		}
	}
	return n, nil
}

func (m *MockLoanRepository) Recent(limit int) ([]*domain.RecentBorrow, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	var active []*domain.Loan
	for _, l := range m.store.loans {
		if l.ReturnedAt == nil {
			active = append(active, l)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].BorrowedAt.After(active[j].BorrowedAt) })

	var items []*domain.RecentBorrow
	for _, l := range active {
		if len(items) >= limit {
			break
		}
		b := m.store.books[l.BookID]
		u := m.store.users[l.UserID]
		if b == nil || u == nil {
			continue
		}
		items = append(items, &domain.RecentBorrow{
			BookID:     b.ID,
			Title:      b.Title,
			Author:     b.Author,
			UserID:     u.ID,
			UserName:   u.Name,
			UserEmail:  u.Email,
			BorrowedAt: l.BorrowedAt,
			DueDate:    l.DueDate,
		})
	}
	return items, nil
}

func (m *MockLoanRepository) Popular(limit int) ([]*domain.PopularBook, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	counts := make(map[int64]int64)
	for _, l := range m.store.loans {
		counts[l.BookID]++
	}

	var items []*domain.PopularBook
	for _, b := range m.store.books {
		items = append(items, &domain.PopularBook{
			BookID:      b.ID,
			Title:       b.Title,
			Author:      b.Author,
			BorrowCount: counts[b.ID],
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].BorrowCount != items[j].BorrowCount {
			return items[i].BorrowCount > items[j].BorrowCount
		}
		return items[i].BookID < items[j].BookID
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
