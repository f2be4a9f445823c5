package handler

import "github.com/gin-gonic/gin"

// Handlers 汇总了 /api/v1 下的全部处理器。Upload 的异步接口仅在配置了 UploadService 时注册。
type Handlers struct {
	Upload   *UploadHandler
	Search   *SearchHandler
	Index    *IndexHandler
	Document *DocumentHandler
}

// Register 在给定的路由组上注册 API 路由。
func Register(api *gin.RouterGroup, h Handlers) {
	upload := api.Group("/upload")
	{
		upload.POST("", h.Upload.Upload)
		if h.Upload.uploadService != nil {
			upload.POST("/async", h.Upload.UploadAsync)
			api.GET("/tasks/:id", h.Upload.GetTask)
		}
	}

	api.GET("/search", h.Search.Search)

	indices := api.Group("/indices")
	{
		indices.GET("", h.Index.ListIndices)
		indices.POST("/:name", h.Index.CreateIndex)
	}

	api.GET("/documents", h.Document.ListDocuments)
}
