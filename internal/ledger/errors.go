package ledger

import (
	"fmt"
)

// ErrorKind 账本操作错误类别
type ErrorKind int

const (
	KindNotFound        ErrorKind = iota + 1 // 悬赏不存在
	KindInvalidState                         // 状态机守卫失败
	KindUnauthorized                         // 调用者缺少所需角色
	KindInvalidArgument                      // 参数非法
	KindAlreadySettled                       // 悬赏已结算
	KindTransferFailed                       // 外部转账未确认
)

// Error 账本操作的类型化错误。所有守卫失败都通过它返回，
// 调用方用 errors.Is 与下面的哨兵值比对来区分类别。
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// Is 按类别匹配，忽略具体消息
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// 哨兵值，仅用于 errors.Is 比对
var (
	ErrNotFound        = &Error{Kind: KindNotFound, Msg: "悬赏不存在"}
	ErrInvalidState    = &Error{Kind: KindInvalidState, Msg: "当前状态不允许该操作"}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized, Msg: "调用者没有权限"}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument, Msg: "参数非法"}
	ErrAlreadySettled  = &Error{Kind: KindAlreadySettled, Msg: "悬赏已结算"}
	ErrTransferFailed  = &Error{Kind: KindTransferFailed, Msg: "转账未确认"}
)

func errNotFound(id uint64) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf("悬赏 %d 不存在", id)}
}

func errInvalidState(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidState, Msg: fmt.Sprintf(format, args...)}
}

func errUnauthorized(format string, args ...interface{}) error {
	return &Error{Kind: KindUnauthorized, Msg: fmt.Sprintf(format, args...)}
}

func errInvalidArgument(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidArgument, Msg: fmt.Sprintf(format, args...)}
}

func errAlreadySettled(id uint64) error {
	return &Error{Kind: KindAlreadySettled, Msg: fmt.Sprintf("悬赏 %d 已结算", id)}
}

func errTransferFailed(err error) error {
	return &Error{Kind: KindTransferFailed, Msg: fmt.Sprintf("转账未确认: %v", err)}
}
