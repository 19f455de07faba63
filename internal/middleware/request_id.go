package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// HeaderRequestID 是请求ID的标准头名，调用方可自带，便于跨服务追踪借阅链路。
const HeaderRequestID = "X-Request-ID"

// RequestID 为每个请求补齐请求ID：沿用调用方传入的 X-Request-ID，
// 缺失时生成UUID，并同时写回响应头与请求上下文供日志和错误响应使用。
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if rid == "" {
			rid = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, rid)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), rid)))
	})
}
