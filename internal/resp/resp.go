// Package resp 定义统一的HTTP响应封装。
// 所有JSON响应携带业务码、message字符串与数据载荷，便于前端统一处理。
package resp

import (
	"encoding/json"
	"net/http"
)

// 业务码定义。0 表示成功，非0为各类失败。
// 参数不合法与业务规则不满足都走HTTP 400，靠业务码区分。
const (
	CodeOK            = 0
	CodeInvalidParam  = 40001
	CodeRuleViolation = 40002
	CodeInternalError = 50001
	CodeTimeout       = 50401
)

// Body 统一响应结构
type Body struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// HTTPStatusFromCode 将业务码映射为HTTP状态码
func HTTPStatusFromCode(code int) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case CodeInvalidParam, CodeRuleViolation:
		return http.StatusBadRequest
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// OK 写入成功响应（HTTP 200）。
// message 为空时使用默认文案。
func OK(w http.ResponseWriter, data any, requestID, message string) {
	if message == "" {
		message = "success"
	}
	write(w, http.StatusOK, &Body{
		Code:      CodeOK,
		Message:   message,
		Data:      data,
		RequestID: requestID,
	})
}

// Created 写入创建成功响应（HTTP 201）。
func Created(w http.ResponseWriter, data any, requestID, message string) {
	if message == "" {
		message = "created"
	}
	write(w, http.StatusCreated, &Body{
		Code:      CodeOK,
		Message:   message,
		Data:      data,
		RequestID: requestID,
	})
}

// Error 写入失败响应。
// detail 可附加调试信息，生产环境调用方通常传空串。
func Error(w http.ResponseWriter, status, code int, message, requestID, detail string) {
	body := &Body{
		Code:      code,
		Message:   message,
		RequestID: requestID,
	}
	if detail != "" {
		body.Data = map[string]string{"detail": detail}
	}
	write(w, status, body)
}

func write(w http.ResponseWriter, status int, body *Body) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// 编码失败时响应头已发出，只能放弃
	_ = json.NewEncoder(w).Encode(body)
}
