package response

import (
	"errors"
	"fmt"
)

// Error 带错误码的错误.
type Error struct {
	Code   Code
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.message(), e.Cause)
	}
	return e.message()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 让 errors.Is(err, CodeXxx) 按错误码匹配.
func (e *Error) Is(target error) bool {
	return e.Code.Is(target)
}

func (e *Error) message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Code.Message
}

// Describe 提取错误码和可以返回给调用方的消息.
//
// 未携带错误码的错误按 CodeInternal 处理；5xxxx 只返回错误码的默认消息.
func Describe(err error) (Code, string) {
	if err == nil {
		return CodeOK, CodeOK.Message
	}

	var e *Error
	if errors.As(err, &e) {
		if e.Code.Num >= 50000 {
			return e.Code, e.Code.Message
		}
		return e.Code, e.Error()
	}

	var code Code
	if errors.As(err, &code) {
		return code, code.Message
	}
	return CodeInternal, CodeInternal.Message
}
