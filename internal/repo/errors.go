// Package repo 提供数据访问层实现，负责与数据库交互。
// 仓储模式（Repository Pattern）将数据访问逻辑与业务逻辑分离，
// 使得业务逻辑不依赖于具体的数据存储实现。
package repo

import "errors"

// 条件更新类操作的哨兵错误。
// 这些错误由"受影响行数为0"推导而来，服务层用 errors.Is 区分业务语义。
var (
	// ErrNoAvailableCopies 可借副本不足，借出的条件递减未命中任何行
	ErrNoAvailableCopies = errors.New("no available copies")
	// ErrDuplicateLoan 同一用户对同一本书已有在借记录
	ErrDuplicateLoan = errors.New("duplicate active loan")
	// ErrNoActiveLoan 该用户没有这本书的在借记录
	ErrNoActiveLoan = errors.New("no active loan")
	// ErrCopiesBelowBorrowed 总副本数调整低于当前在借数量
	ErrCopiesBelowBorrowed = errors.New("total copies below borrowed copies")
	// ErrHasActiveLoans 图书仍有在借记录，禁止删除
	ErrHasActiveLoans = errors.New("book has active loans")
)
