package store

import "github.com/ceyewan/fuse/xerrors"

var (
	// ErrNotFound key 不存在
	ErrNotFound = xerrors.New("store: key not found")

	// ErrConnectorNil 连接器为空
	ErrConnectorNil = xerrors.New("store: connector is nil")

	// ErrNotInteger 当前值不是整数，无法自增
	ErrNotInteger = xerrors.New("store: value is not an integer")

	// ErrTooManyRetries 自增的 CAS 重试次数超过上限（仅 Etcd 实现）
	ErrTooManyRetries = xerrors.New("store: too many cas retries")
)
