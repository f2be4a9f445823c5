// Package model 定义了入库与检索流程中流转的数据结构。
package model

// NoResultsMessage 是查询零命中时返回给调用方的哨兵消息。
const NoResultsMessage = "no results"

// UploadRequest 代表一次上传，仅在单次请求内存在，编码后即丢弃。
type UploadRequest struct {
	Filename string
	Raw      []byte
}

// EncodedPayload 由 UploadRequest 确定性地派生，不可变。
type EncodedPayload struct {
	MIMEHint   string
	Base64Body string
}

// IngestDocument 是提交给抽取管道的文档体。
// Data 字段在管道中被 attachment 处理器消费后移除。
type IngestDocument struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
}

// SearchHit 是索引中文档的纯投影，只包含结果列表需要的字段。
// 抽取出的正文由存储独占，从不读回。
type SearchHit struct {
	DocumentID string `json:"documentId"`
	Filename   string `json:"filename"`
}
