package response

import "net/http"

// Code 业务错误码，同时决定 HTTP 状态码.
type Code struct {
	Num     int
	Message string
	Status  int
}

// Error 实现 error 接口，Code 可以直接作为错误返回.
func (c Code) Error() string {
	return c.Message
}

// Is 按错误码数值比较，忽略消息.
func (c Code) Is(target error) bool {
	t, ok := target.(Code)
	return ok && t.Num == c.Num
}

// Wrap 以该错误码包装底层错误.
func (c Code) Wrap(cause error) *Error {
	return &Error{Code: c, Cause: cause}
}

// WithDetail 返回带自定义说明的错误.
func (c Code) WithDetail(detail string) *Error {
	return &Error{Code: c, Detail: detail}
}

// 错误码分段：
//   - 0 成功
//   - 1xxxx 请求本身的问题（参数、取消、超时）
//   - 4xxxx 任务相关
//   - 5xxxx 服务端错误，消息不会透出原始错误
var (
	CodeOK = Code{0, "成功", http.StatusOK}

	CodeBadRequest = Code{10001, "参数无效", http.StatusBadRequest}
	CodeCanceled   = Code{10002, "请求已取消", http.StatusRequestTimeout}
	CodeTimeout    = Code{10003, "请求超时", http.StatusGatewayTimeout}

	CodeJobNotFound     = Code{40001, "任务不存在", http.StatusNotFound}
	CodeJobRunning      = Code{40002, "任务正在执行", http.StatusConflict}
	CodeJobCancelled    = Code{40003, "任务已取消", http.StatusConflict}
	CodeJobStateInvalid = Code{40004, "任务状态不允许该操作", http.StatusConflict}
	CodeJobFailed       = Code{40005, "任务执行失败", http.StatusUnprocessableEntity}
	CodeJobSkipped      = Code{40006, "任务被跳过", http.StatusConflict}

	CodeInternal    = Code{50001, "服务器内部错误", http.StatusInternalServerError}
	CodeUnavailable = Code{50002, "服务不可用", http.StatusServiceUnavailable}
)
