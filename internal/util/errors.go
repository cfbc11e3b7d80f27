package util

import "errors"

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrWalletBound        = errors.New("该钱包地址已被绑定")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrAlreadyEnrolled    = errors.New("student already enrolled")
	ErrNotEnrolled        = errors.New("student not enrolled")
	ErrUnknownModule      = errors.New("unknown module id")
	ErrUnknownLesson      = errors.New("unknown lesson id")
	ErrModuleInactive     = errors.New("module is not active")
	ErrCatalogFull        = errors.New("module catalog capacity exceeded")
	ErrInvalidLessonCount = errors.New("invalid lesson count")
)
