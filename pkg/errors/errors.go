package errors

import (
	"errors"
	"fmt"
)

// 预定义错误，覆盖访问控制核心的错误分类
var (
	ErrNotFound           = New(404, "记录不存在")
	ErrAlreadyExists      = New(409, "记录已存在")
	ErrPermissionDenied   = New(403, "权限不足")
	ErrInvalidCredentials = New(401, "用户名或密码错误")
	ErrPolicyViolation    = New(422, "密码不符合安全策略")
	ErrPersistence        = New(500, "存储层操作失败")
	ErrAuditImmutable     = New(403, "审计日志不可修改")
	ErrSessionRequired    = New(401, "未登录或会话已失效")
	ErrBadRequest         = New(400, "请求错误")
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 解包错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 支持 errors.Is 按预定义值匹配
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New 创建新错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WrapPersistence 包装存储层错误
func WrapPersistence(err error) *AppError {
	return &AppError{
		Code:    ErrPersistence.Code,
		Message: ErrPersistence.Message,
		Err:     err,
	}
}

// NotFound 创建未找到错误
func NotFound(resource string) *AppError {
	return &AppError{
		Code:    404,
		Message: fmt.Sprintf("%s不存在", resource),
		Err:     ErrNotFound,
	}
}

// Duplicate 创建重复错误
func Duplicate(field string) *AppError {
	return &AppError{
		Code:    409,
		Message: fmt.Sprintf("%s已存在", field),
		Err:     ErrAlreadyExists,
	}
}

// Is 检查是否为指定错误
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As 类型转换错误
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// GetCode 获取错误码
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return 500
}

// GetMessage 获取错误消息
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
