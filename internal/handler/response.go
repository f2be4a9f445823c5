// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"diof-search/internal/errs"
	"diof-search/pkg/log"

	"github.com/gin-gonic/gin"
)

// statusFor 把错误类别映射为 HTTP 状态码。
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrInvalidQuery),
		errors.Is(err, errs.ErrInvalidUpload),
		errors.Is(err, errs.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrIndexNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errs.ErrProcessing):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrIO):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError 以统一的 {code, message, kind} 结构返回错误。
// 5xx 不向调用方暴露底层错误信息。
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Errorf("[Handler] %s %s 内部错误: %v", c.Request.Method, c.FullPath(), err)
		message = "服务器内部错误"
	}
	c.JSON(status, gin.H{"code": status, "message": message, "kind": errs.KindOf(err)})
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"code": status, "message": "success", "data": data})
}
