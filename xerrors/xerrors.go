// Package xerrors 提供标准化错误处理工具。
package xerrors

import (
	"errors"
	"fmt"
)

// New 创建一个新的错误。
func New(msg string) error {
	return errors.New(msg)
}

// Errorf 创建一个格式化的错误，支持 %w 包装。
func Errorf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// Wrap 用上下文信息包装错误，保留错误链。
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 用格式化的上下文信息包装错误。
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is 判断错误链中是否包含目标错误。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As 在错误链中查找目标类型的错误。
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Combine 将多个错误合并为一个，忽略 nil。
func Combine(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return errors.Join(nonNil...)
	}
}
