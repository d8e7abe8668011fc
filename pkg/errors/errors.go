package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrTransient 外部依赖（数据库、缓存、消息队列等）暂时不可用
var ErrTransient = New(KindTransient, "服务暂时不可用，请稍后重试")

// Kind 业务错误分类
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindPermission   Kind = "permission"
	KindInvalidState Kind = "invalid_state"
	KindCapacity     Kind = "capacity"
	KindDuplicate    Kind = "duplicate"
	KindTransient    Kind = "transient"
)

// Error 带分类的业务错误，Message 直接面向用户
type Error struct {
	Kind    Kind
	Message string
}

// New 创建业务错误
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string { return e.Message }

// Is 同一 Kind 的哨兵（Message 为空）可匹配任意该类错误
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" {
		return e.Kind == t.Kind
	}
	return e == t
}

// 按分类匹配的哨兵：errors.Is(err, pkgerrors.Capacity)
var (
	Validation   = &Error{Kind: KindValidation}
	NotFound     = &Error{Kind: KindNotFound}
	Permission   = &Error{Kind: KindPermission}
	InvalidState = &Error{Kind: KindInvalidState}
	Capacity     = &Error{Kind: KindCapacity}
	Duplicate    = &Error{Kind: KindDuplicate}
)

// KindOf 提取错误分类，非业务错误返回空串
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
