// Package encoder 把上传的原始字节转换为可嵌入 JSON 文档的 base64 文本，
// 并嗅探其 MIME 类型。除 ReadUpload 外均为纯函数。
package encoder

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"diof-search/internal/errs"
	"diof-search/internal/model"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMIME 是既无法嗅探也无法由扩展名推断时的 MIME 类型。
const DefaultMIME = "application/octet-stream"

// Encode 对任意字节序列做标准 base64 编码，空输入返回空串。
func Encode(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// Decode 是 Encode 的逆操作。
func Decode(body string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(body)
}

// DetectMIME 先根据内容嗅探，再回退到文件扩展名，最后回退到 DefaultMIME。
func DetectMIME(raw []byte, filename string) string {
	if len(raw) > 0 {
		if mt := mimetype.Detect(raw); mt != nil && !mt.Is(DefaultMIME) {
			return stripParams(mt.String())
		}
	}
	if ext := filepath.Ext(filename); ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return stripParams(byExt)
		}
	}
	return DefaultMIME
}

func stripParams(mt string) string {
	mediaType, _, err := mime.ParseMediaType(mt)
	if err != nil {
		return mt
	}
	return mediaType
}

// EncodePayload 从一次上传确定性地派生 EncodedPayload。
func EncodePayload(req model.UploadRequest) model.EncodedPayload {
	return model.EncodedPayload{
		MIMEHint:   DetectMIME(req.Raw, req.Filename),
		Base64Body: Encode(req.Raw),
	}
}

// DataURI 渲染 data:<mime>;base64,<body> 形式，仅用于诊断输出。
func DataURI(p model.EncodedPayload) string {
	return fmt.Sprintf("data:%s;base64,%s", p.MIMEHint, p.Base64Body)
}

// ReadUpload 读取完整的上传内容。读取失败以 errs.ErrIO 返回，不会被吞掉。
func ReadUpload(r io.Reader, filename string) (model.UploadRequest, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return model.UploadRequest{}, errs.New(errs.OpReadUpload, errs.ErrIO, fmt.Errorf("read %s: %w", filename, err))
	}
	return model.UploadRequest{Filename: filename, Raw: raw}, nil
}
