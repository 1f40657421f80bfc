// Package service 提供了检索、分析与文件处理的业务逻辑。
package service

import "errors"

// 服务层的错误分类。校验错误在产生任何副作用之前返回；
// not-found 与校验错误区分开，便于处理器映射不同的 HTTP 状态码。
var (
	// ErrEmptyQuery 表示检索词为空或只有空白。
	ErrEmptyQuery = errors.New("查询内容不能为空")
	// ErrInvalidArgument 表示请求参数未通过校验。
	ErrInvalidArgument = errors.New("无效的请求参数")
	// ErrNotFound 表示目标记录不存在。
	ErrNotFound = errors.New("记录不存在")
)
