package metrics

import (
	"net/http"
	"strings"
	"time"
)

// unmatchedRoute 未命中任何路由的请求统一使用的标签值.
const unmatchedRoute = "unmatched"

// HTTPMiddleware 返回 HTTP 指标采集中间件.
//
// 需要包在 http.ServeMux 外层：路由匹配后 ServeMux 会写入 r.Pattern，
// 指标按路由模式（如 "GET /jobs/{id}"）记录，任务 ID 不会进入标签.
//
//	handler := metrics.HTTPMiddleware(collector)(mux)
func HTTPMiddleware(collector Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			collector.RecordHTTPRequest(r.Method, route(r), rec.status, time.Since(start))
		})
	}
}

// route 去掉路由模式中的方法前缀，方法已经单独作为标签.
func route(r *http.Request) string {
	if r.Pattern == "" {
		return unmatchedRoute
	}
	if _, path, ok := strings.Cut(r.Pattern, " "); ok {
		return path
	}
	return r.Pattern
}

// statusRecorder 记录写出的状态码.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wrote {
		r.status = code
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wrote = true
	return r.ResponseWriter.Write(b)
}

// Unwrap 供 http.ResponseController 访问底层 ResponseWriter.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
