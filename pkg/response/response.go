// Package response 统一 HTTP JSON 响应格式 {code, message, data}
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 响应体。code 为 0 表示成功，否则为 HTTP 状态码。
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Success 返回 200 与业务数据
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "ok", Data: data})
}

// ErrorWithStatus 返回指定状态码的错误，detail 非空时放入 data
func ErrorWithStatus(c *gin.Context, status int, message, detail string) {
	resp := Response{Code: status, Message: message}
	if detail != "" {
		resp.Data = gin.H{"detail": detail}
	}
	c.AbortWithStatusJSON(status, resp)
}
