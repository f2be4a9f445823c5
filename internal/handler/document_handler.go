package handler

import (
	"net/http"
	"strconv"

	"diof-search/internal/service"

	"github.com/gin-gonic/gin"
)

// DocumentHandler 提供入库台账的分页查询。
type DocumentHandler struct {
	ingestService service.IngestService
}

func NewDocumentHandler(ingestService service.IngestService) *DocumentHandler {
	return &DocumentHandler{ingestService: ingestService}
}

// ListDocuments 处理 GET /documents?index=&page=&size=。
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	records, total, err := h.ingestService.ListDocuments(c.Query("index"), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"content":       records,
		"totalElements": total,
		"page":          page,
	})
}
