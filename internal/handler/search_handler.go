package handler

import (
	"net/http"

	"diof-search/internal/model"
	"diof-search/internal/service"
	"diof-search/pkg/log"

	"github.com/gin-gonic/gin"
)

// SearchHandler 结构体定义了搜索相关的处理器。
type SearchHandler struct {
	searchService service.SearchService
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
	}
}

// Search 处理 GET /search?q=...&index=...。
// 零命中时返回 {"message": "no results"}，而不是空数组。
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		query = c.Query("query")
	}
	log.Infof("[SearchHandler] 收到搜索请求, query: %s", query)

	hits, err := h.searchService.Search(c.Request.Context(), query, c.Query("index"))
	if err != nil {
		respondError(c, err)
		return
	}
	if len(hits) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": model.NoResultsMessage})
		return
	}
	respondOK(c, http.StatusOK, hits)
}
