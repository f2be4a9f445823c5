// Package errs 定义了文档入库与检索核心的错误分类。
//
// 核心从不吞掉错误：每个错误都以其 Kind 返回给调用方（HTTP 外壳、CLI、Kafka 消费者），
// 由调用方负责映射为状态码或任务状态。
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrIO 表示无法读取输入或无法与文档存储通信。
	ErrIO = errors.New("io error")
	// ErrProcessing 表示抽取管道无法解析上传的二进制内容。
	ErrProcessing = errors.New("processing error")
	// ErrIndexNotFound 表示操作的目标索引从未创建过 schema。
	ErrIndexNotFound = errors.New("index not found")
	// ErrAlreadyExists 表示重复创建索引 schema。
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidQuery 表示查询为空或只包含空白字符。
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidUpload 表示上传内容为空或缺少文件名。
	ErrInvalidUpload = errors.New("invalid upload")
	// ErrInvalidArgument 表示其他调用方参数错误，例如空的索引名。
	ErrInvalidArgument = errors.New("invalid argument")
)

// Op 常量对应文档存储上被消费的操作，用于错误上下文。
const (
	OpPutPipeline   = "put-pipeline"
	OpGetPipeline   = "get-pipeline"
	OpCreateIndex   = "create-index"
	OpIndexExists   = "index-exists"
	OpIndexDocument = "index-document"
	OpSearch        = "search"
	OpReadUpload    = "read-upload"
)

// Error 为底层错误附加操作名与错误类别。
type Error struct {
	Op   string
	Kind error
	Err  error
}

// New 构造一个带类别的错误。
func New(op string, kind error, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Newf 使用格式化描述构造一个带类别的错误。
func Newf(op string, kind error, format string, args ...interface{}) *Error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is 让 errors.Is(err, errs.ErrIO) 等判断按类别匹配。
func (e *Error) Is(target error) bool { return e.Kind == target }

var kinds = []struct {
	err  error
	name string
}{
	{ErrInvalidQuery, "invalid_query"},
	{ErrInvalidUpload, "invalid_upload"},
	{ErrInvalidArgument, "invalid_argument"},
	{ErrIndexNotFound, "index_not_found"},
	{ErrAlreadyExists, "already_exists"},
	{ErrProcessing, "processing"},
	{ErrIO, "io"},
}

// KindOf 返回错误类别的短名称，用于日志、指标标签和异步任务状态。
// 未分类的错误返回 "internal"，nil 返回 ""。
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}

// FromKind 是 KindOf 的逆映射，用于从持久化的任务状态还原错误类别。
func FromKind(name string) error {
	for _, k := range kinds {
		if k.name == name {
			return k.err
		}
	}
	return nil
}
