package handler

import (
	"net/http"

	"diof-search/internal/encoder"
	"diof-search/internal/errs"
	"diof-search/internal/model"
	"diof-search/internal/service"
	"diof-search/pkg/log"

	"github.com/gin-gonic/gin"
)

// UploadHandler 负责处理文件上传：同步入库与异步入库两种方式。
type UploadHandler struct {
	ingestService service.IngestService
	uploadService service.UploadService
	maxUploadSize int64
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。uploadService 为 nil 时异步接口不可用。
func NewUploadHandler(ingestService service.IngestService, uploadService service.UploadService, maxUploadSize int64) *UploadHandler {
	return &UploadHandler{
		ingestService: ingestService,
		uploadService: uploadService,
		maxUploadSize: maxUploadSize,
	}
}

// readUpload 读取 multipart 表单中的 file 字段。
func (h *UploadHandler) readUpload(c *gin.Context) (model.UploadRequest, error) {
	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return model.UploadRequest{}, errs.New(errs.OpReadUpload, errs.ErrInvalidUpload, err)
	}
	f, err := fileHeader.Open()
	if err != nil {
		return model.UploadRequest{}, errs.New(errs.OpReadUpload, errs.ErrIO, err)
	}
	defer f.Close()
	return encoder.ReadUpload(f, fileHeader.Filename)
}

// Upload 同步入库：请求在文档写入索引后才返回文档 ID。
func (h *UploadHandler) Upload(c *gin.Context) {
	req, err := h.readUpload(c)
	if err != nil {
		log.Warnf("[UploadHandler] 读取上传文件失败: %v", err)
		respondError(c, err)
		return
	}
	index := c.PostForm("index")
	log.Infof("[UploadHandler] 收到上传请求, FileName: %s, 大小: %d 字节, Index: %s", req.Filename, len(req.Raw), index)

	id, err := h.ingestService.IngestUpload(c.Request.Context(), req, index)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"documentId": id, "filename": req.Filename})
}

// UploadAsync 暂存文件并投递任务，立即返回任务 ID。
func (h *UploadHandler) UploadAsync(c *gin.Context) {
	req, err := h.readUpload(c)
	if err != nil {
		respondError(c, err)
		return
	}
	taskID, err := h.uploadService.Submit(c.Request.Context(), req, c.PostForm("index"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusAccepted, gin.H{"taskId": taskID, "state": model.TaskPending})
}

// GetTask 查询异步入库任务的状态。
func (h *UploadHandler) GetTask(c *gin.Context) {
	status, err := h.uploadService.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if status == nil {
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "任务不存在"})
		return
	}
	// 失败的任务按其错误类别返回状态码，与同步上传失败时一致。
	if status.State == model.TaskFailed {
		code := statusFor(errs.FromKind(status.ErrorKind))
		c.JSON(code, gin.H{"code": code, "message": status.Error, "kind": status.ErrorKind, "data": status})
		return
	}
	respondOK(c, http.StatusOK, status)
}
