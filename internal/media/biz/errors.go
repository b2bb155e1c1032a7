package biz

import "errors"

// 入库相关错误
var (
	ErrUnsupportedContentKind = errors.New("unsupported content kind, only image and video are accepted")
	ErrSizeLimitExceeded      = errors.New("payload exceeds configured size limit")
	ErrEmptyPayload           = errors.New("payload is empty")
	ErrReadFailure            = errors.New("failed to read payload")
)

// 存储相关错误
var (
	ErrStorageWriteFailure = errors.New("physical storage write failed")
	ErrStorageReadFailure  = errors.New("physical storage read failed")
)

// 查询与删除相关错误
var (
	ErrEntryNotFound = errors.New("media entry not found")
)
