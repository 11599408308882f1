package apperr

import (
	"errors"
	"fmt"
)

// ErrorCode 定义错误码类型
type ErrorCode int

// System errors (1000-1999)
const (
	ErrInternal ErrorCode = 1000 + iota
	ErrDatabase
	ErrStorage
)

// Auth errors (2000-2999)
const (
	ErrUnauthorized ErrorCode = 2000 + iota
	ErrForbidden
	ErrInvalidToken
	ErrInvalidCredentials
)

// Request errors (3000-3999)
const (
	ErrValidation ErrorCode = 3000 + iota
	ErrNotFound
	ErrConflict
)

// FieldError is one entry of the validation error list. The shape is what the
// web client renders next to form fields, so keep the json names stable.
type FieldError struct {
	Type     string `json:"type"`
	Msg      string `json:"msg"`
	Path     string `json:"path"`
	Location string `json:"location"`
	Value    any    `json:"value,omitempty"`
}

// AppError 定义应用错误结构
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
	Fields  []FieldError
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装已有错误
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Field builds a body field error.
func Field(path, msg string, value any) FieldError {
	return FieldError{Type: "field", Msg: msg, Path: path, Location: "body", Value: value}
}

// Validation builds a 400 carrying field-level details.
func Validation(fields ...FieldError) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: "Validation failed",
		Fields:  fields,
	}
}

func NotFound(what string) *AppError {
	return New(ErrNotFound, what+" not found")
}

func Forbidden(message string) *AppError {
	return New(ErrForbidden, message)
}

func Conflict(message string) *AppError {
	return New(ErrConflict, message)
}

func Unauthorized(message string) *AppError {
	return New(ErrUnauthorized, message)
}

func Internal(err error) *AppError {
	return Wrap(ErrInternal, "Internal Server Error", err)
}

// CodeOf returns the code carried by err, or ErrInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// Is reports whether err is an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
