// Package apperr 把各处的失败统一成一个错误通道。
//
// 每个错误都带一个 Kind：
//   - validation / not_found：调用方输入有问题，需要提示用户
//   - recoverable：远端失败但已经有 fallback，可以静默处理
//   - actionable：远端失败且没有 fallback，必须通知用户
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/jackc/pgx/v5"
)

type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindRecoverable Kind = "recoverable"
	KindActionable  Kind = "actionable"
)

// Error 统一错误类型
type Error struct {
	Kind      Kind
	Code      string
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Notify 是否需要让用户看到这个错误
func (e *Error) Notify() bool {
	return e.Kind != KindRecoverable
}

// HTTPStatus 映射到 HTTP 状态码
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindRecoverable:
		return http.StatusOK
	}
	if e.Retryable {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func Recoverable(code, message string, err error) *Error {
	return &Error{Kind: KindRecoverable, Code: code, Message: message, Err: err}
}

func Actionable(code, message string, err error) *Error {
	retryable, _ := IsRetryableError(err)
	return &Error{Kind: KindActionable, Code: code, Message: message, Retryable: retryable, Err: err}
}

// Classify 把任意错误归类；已经是 *Error 的原样返回
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return &Error{Kind: KindNotFound, Code: "not_found", Message: "record not found", Err: err}
	}

	retryable, errType := IsRetryableError(err)
	return &Error{
		Kind:      KindActionable,
		Code:      errType,
		Message:   "operation failed",
		Retryable: retryable,
		Err:       err,
	}
}

// IsRetryableError 判断错误是否值得用户重试
// Returns: (isRetryable, errorType)
func IsRetryableError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true, "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return false, "context_canceled"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	return false, "internal_error"
}
