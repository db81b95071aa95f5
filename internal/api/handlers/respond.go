package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-catalog/internal/core/ai"
	"recipe-catalog/internal/core/catalog"
	"recipe-catalog/internal/pkg/common"
)

// ToAPIError 將服務層錯誤對應到 API 錯誤
func ToAPIError(err error) *common.CustomError {
	var custom *common.CustomError
	switch {
	case errors.As(err, &custom):
		return custom
	case common.IsValidationError(err):
		return common.ErrValidation.Wrap(err)
	case errors.Is(err, catalog.ErrNotFound):
		return common.ErrNotFound.Wrap(err)
	case errors.Is(err, catalog.ErrWriteFailed):
		return common.ErrWriteFailed.Wrap(err)
	case errors.Is(err, ai.ErrDisabled):
		return common.ErrAIDisabled.Wrap(err)
	case errors.Is(err, ai.ErrQueueFull):
		return common.ErrTooManyRequests.Wrap(err)
	case errors.Is(err, context.DeadlineExceeded):
		return common.ErrGatewayTimeout.Wrap(err)
	default:
		return common.ErrInternalError.Wrap(err)
	}
}

// RespondError 寫入錯誤回應，debug 模式附上原始錯誤
func RespondError(c *gin.Context, err error, debug bool) {
	apiErr := ToAPIError(err)
	fields := []zap.Field{
		zap.String("code", apiErr.Code),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", c.Writer.Header().Get("X-Request-ID")),
		zap.Error(err),
	}
	if apiErr.Status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗", fields...)
	} else {
		common.LogWarn("請求處理失敗", fields...)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(apiErr.Status, apiErr.Response(debug))
}

// QueryInt 讀取整數查詢參數，格式錯誤時使用預設值
func QueryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
