package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mohitagarwal24/ResQ/internal/ledger"
)

// Response 统一响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// LedgerErrorResponse 把账本的类型化错误映射为 HTTP 状态码
func LedgerErrorResponse(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidState), errors.Is(err, ledger.ErrAlreadySettled):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrTransferFailed):
		status = http.StatusBadGateway
	}
	ErrorResponse(c, status, err.Error())
}
