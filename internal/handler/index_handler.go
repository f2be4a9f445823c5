package handler

import (
	"net/http"

	"diof-search/internal/service"

	"github.com/gin-gonic/gin"
)

// IndexHandler 暴露索引 schema 的创建与查询。
type IndexHandler struct {
	indexService service.IndexService
}

func NewIndexHandler(indexService service.IndexService) *IndexHandler {
	return &IndexHandler{indexService: indexService}
}

// CreateIndex 处理 POST /indices/:name。同名索引已存在时返回 409。
func (h *IndexHandler) CreateIndex(c *gin.Context) {
	name := c.Param("name")
	if err := h.indexService.CreateIndex(c.Request.Context(), name); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"index": name})
}

func (h *IndexHandler) ListIndices(c *gin.Context) {
	indices, err := h.indexService.ListIndices()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, indices)
}
