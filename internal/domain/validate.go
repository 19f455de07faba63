// Package domain 提供请求入参的纯函数校验。
// 每个实体一个 Validate 函数，返回全部违规项而非首个错误，
// 便于前端一次性展示；不依赖HTTP层，可独立测试。
package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// ValidationError 表示单个字段的校验失败
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error 实现error接口，便于日志输出
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// emailPattern 简化的邮箱格式校验
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateRegisterRequest 校验注册请求
func ValidateRegisterRequest(req *RegisterRequest) []ValidationError {
	var errs []ValidationError

	name := strings.TrimSpace(req.Name)
	if n := utf8.RuneCountInString(name); n < 2 || n > 50 {
		errs = append(errs, ValidationError{"name", "name must be between 2 and 50 characters"})
	}

	if !IsValidEmail(req.Email) {
		errs = append(errs, ValidationError{"email", "please enter a valid email"})
	}

	if len(req.Password) < 6 {
		errs = append(errs, ValidationError{"password", "password must be at least 6 characters long"})
	} else if !hasPasswordComplexity(req.Password) {
		errs = append(errs, ValidationError{"password", "password must contain at least one uppercase letter, one lowercase letter, and one number"})
	}

	return errs
}

// ValidateLoginRequest 校验登录请求
func ValidateLoginRequest(req *LoginRequest) []ValidationError {
	var errs []ValidationError

	if !IsValidEmail(req.Email) {
		errs = append(errs, ValidationError{"email", "please enter a valid email"})
	}

	if req.Password == "" {
		errs = append(errs, ValidationError{"password", "password is required"})
	}

	return errs
}

// ValidateUpdateProfileRequest 校验资料更新请求
func ValidateUpdateProfileRequest(req *UpdateProfileRequest) []ValidationError {
	var errs []ValidationError

	name := strings.TrimSpace(req.Name)
	if n := utf8.RuneCountInString(name); n < 2 || n > 50 {
		errs = append(errs, ValidationError{"name", "name must be between 2 and 50 characters"})
	}

	return errs
}

// ValidateCreateBookRequest 校验新增图书请求
func ValidateCreateBookRequest(req *CreateBookRequest) []ValidationError {
	var errs []ValidationError

	errs = append(errs, validateTitle(req.Title)...)
	errs = append(errs, validateAuthor(req.Author)...)

	if !IsValidISBN(req.ISBN) {
		errs = append(errs, ValidationError{"isbn", "please enter a valid ISBN"})
	}

	if !req.Category.IsValid() {
		errs = append(errs, ValidationError{"category", "please select a valid category"})
	}

	if utf8.RuneCountInString(req.Description) > 1000 {
		errs = append(errs, ValidationError{"description", "description cannot be more than 1000 characters"})
	}

	if req.TotalCopies < 1 {
		errs = append(errs, ValidationError{"total_copies", "total copies must be at least 1"})
	}

	if req.PublishedYear != nil {
		errs = append(errs, validatePublishedYear(*req.PublishedYear)...)
	}

	return errs
}

// ValidateUpdateBookRequest 校验更新图书请求（所有字段可选）
func ValidateUpdateBookRequest(req *UpdateBookRequest) []ValidationError {
	var errs []ValidationError

	if req.Title != nil {
		errs = append(errs, validateTitle(*req.Title)...)
	}
	if req.Author != nil {
		errs = append(errs, validateAuthor(*req.Author)...)
	}
	if req.ISBN != nil && !IsValidISBN(*req.ISBN) {
		errs = append(errs, ValidationError{"isbn", "please enter a valid ISBN"})
	}
	if req.Category != nil && !req.Category.IsValid() {
		errs = append(errs, ValidationError{"category", "please select a valid category"})
	}
	if req.Description != nil && utf8.RuneCountInString(*req.Description) > 1000 {
		errs = append(errs, ValidationError{"description", "description cannot be more than 1000 characters"})
	}
	if req.TotalCopies != nil && *req.TotalCopies < 1 {
		errs = append(errs, ValidationError{"total_copies", "total copies must be at least 1"})
	}
	if req.PublishedYear != nil {
		errs = append(errs, validatePublishedYear(*req.PublishedYear)...)
	}

	return errs
}

func validateTitle(title string) []ValidationError {
	title = strings.TrimSpace(title)
	if n := utf8.RuneCountInString(title); n < 1 || n > 200 {
		return []ValidationError{{"title", "title is required and must be less than 200 characters"}}
	}
	return nil
}

func validateAuthor(author string) []ValidationError {
	author = strings.TrimSpace(author)
	if n := utf8.RuneCountInString(author); n < 1 || n > 100 {
		return []ValidationError{{"author", "author is required and must be less than 100 characters"}}
	}
	return nil
}

func validatePublishedYear(year int) []ValidationError {
	if year < 1000 || year > time.Now().Year() {
		return []ValidationError{{"published_year", "published year must be valid"}}
	}
	return nil
}

// IsValidEmail 判断邮箱格式是否合法
func IsValidEmail(email string) bool {
	return len(email) <= 254 && emailPattern.MatchString(email)
}

// NormalizeISBN 去掉ISBN前缀、连字符与空格，统一为紧凑形式存储。
func NormalizeISBN(isbn string) string {
	s := strings.TrimSpace(isbn)
	s = strings.TrimPrefix(s, "ISBN-13:")
	s = strings.TrimPrefix(s, "ISBN-10:")
	s = strings.TrimPrefix(s, "ISBN:")
	s = strings.TrimPrefix(s, "ISBN")
	s = strings.NewReplacer("-", "", " ", "").Replace(s)
	return strings.ToUpper(s)
}

// IsValidISBN 判断ISBN-10或ISBN-13格式是否合法。
// 接受连字符与空格分隔；ISBN-10末位允许校验字符X。
func IsValidISBN(isbn string) bool {
	s := NormalizeISBN(isbn)

	switch len(s) {
	case 10:
		for i, c := range s {
			if c >= '0' && c <= '9' {
				continue
			}
			// X 只允许出现在末位
			if (c == 'X' || c == 'x') && i == 9 {
				continue
			}
			return false
		}
		return true
	case 13:
		if !strings.HasPrefix(s, "978") && !strings.HasPrefix(s, "979") {
			return false
		}
		for _, c := range s {
			if c < '0' || c > '9' {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// hasPasswordComplexity 要求至少一个大写、一个小写和一个数字
func hasPasswordComplexity(password string) bool {
	var upper, lower, digit bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsLower(c):
			lower = true
		case unicode.IsDigit(c):
			digit = true
		}
	}
	return upper && lower && digit
}
