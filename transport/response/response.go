// Package response 提供管理接口的统一 JSON 响应.
//
// 响应体:
//
//	{"code": 0, "message": "成功", "data": {...}}
//
// code 为业务错误码，HTTP 状态码由错误码决定.
package response

import (
	"encoding/json"
	"net/http"
)

// Body 统一响应体.
type Body[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// List 列表数据，Items 永远序列化为数组.
type List[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// NewList 创建列表数据.
func NewList[T any](items []T) List[T] {
	if items == nil {
		items = []T{}
	}
	return List[T]{Items: items, Total: len(items)}
}

// JSON 以指定状态码写入任意 JSON.
func JSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// Success 写入 200 成功响应.
func Success[T any](w http.ResponseWriter, data T) error {
	return Respond(w, CodeOK, data)
}

// Respond 按错误码写入带数据的响应.
func Respond[T any](w http.ResponseWriter, code Code, data T) error {
	return JSON(w, code.Status, Body[T]{Code: code.Num, Message: code.Message, Data: data})
}

// Fail 写入错误响应，错误码和消息由 Describe 决定.
func Fail(w http.ResponseWriter, err error) error {
	code, msg := Describe(err)
	return JSON(w, code.Status, Body[any]{Code: code.Num, Message: msg})
}
