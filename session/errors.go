package session

import "fmt"

// ErrorCode 会话错误码类型
type ErrorCode string

const (
	// 执行相关错误
	ErrCodeTimeout              ErrorCode = "TIMEOUT"
	ErrCodeModeTransitionFailed ErrorCode = "MODE_TRANSITION_FAILED"
	ErrCodeCancelled            ErrorCode = "CANCELLED"
	ErrCodeCommandFailed        ErrorCode = "COMMAND_FAILED"

	// 连接/会话相关错误
	ErrCodeTransportClosed  ErrorCode = "TRANSPORT_CLOSED"
	ErrCodeNotAuthenticated ErrorCode = "NOT_AUTHENTICATED"
	ErrCodeSessionClosed    ErrorCode = "SESSION_CLOSED"

	// 参数相关错误
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
)

// SessionError 会话执行错误。Partial 保留超时/断流时已捕获的
// 原始输出，便于调用方生成精确的诊断信息。
type SessionError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Partial string    `json:"partial,omitempty"`
	Cause   error     `json:"-"`
}

// Error 实现error接口
func (e *SessionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Unwrap
func (e *SessionError) Unwrap() error {
	return e.Cause
}

// IsCode 检查错误码是否匹配
func (e *SessionError) IsCode(code ErrorCode) bool {
	return e.Code == code
}

// WithPartial 附加已捕获的部分输出
func (e *SessionError) WithPartial(out string) *SessionError {
	e.Partial = out
	return e
}

// NewSessionError 创建新的会话错误
func NewSessionError(code ErrorCode, message string) *SessionError {
	return &SessionError{Code: code, Message: message}
}

// NewSessionErrorWithCause 创建带原因的会话错误
func NewSessionErrorWithCause(code ErrorCode, message string, cause error) *SessionError {
	return &SessionError{Code: code, Message: message, Cause: cause}
}

// GetSessionError 获取SessionError，如果不是则返回nil
func GetSessionError(err error) *SessionError {
	if serr, ok := err.(*SessionError); ok {
		return serr
	}
	return nil
}

// IsErrorCode 检查错误是否为指定错误码
func IsErrorCode(err error, code ErrorCode) bool {
	if serr := GetSessionError(err); serr != nil {
		return serr.IsCode(code)
	}
	return false
}

// IsRecoverableError 可恢复错误：请求失败但会话仍可继续使用
func IsRecoverableError(err error) bool {
	if serr := GetSessionError(err); serr != nil {
		switch serr.Code {
		case ErrCodeTimeout, ErrCodeCommandFailed, ErrCodeModeTransitionFailed:
			return true
		}
	}
	return false
}

// IsFatalError 致命错误：会话必须被丢弃
func IsFatalError(err error) bool {
	if serr := GetSessionError(err); serr != nil {
		switch serr.Code {
		case ErrCodeTransportClosed, ErrCodeSessionClosed:
			return true
		}
	}
	return false
}

// 预定义的常用错误
var (
	ErrNotAuthenticated = NewSessionError(ErrCodeNotAuthenticated, "session is not authenticated")
	ErrSessionClosed    = NewSessionError(ErrCodeSessionClosed, "session is closed")
)
