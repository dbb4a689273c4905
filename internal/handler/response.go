package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tradedesk/internal/client/trades"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// upstreamError maps the trades client taxonomy onto HTTP statuses:
// timeouts are 504, transport failures 502, and upstream rejections keep
// their original status. A cancelled request gets no response at all.
func upstreamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		c.Abort()
	case errors.Is(err, trades.ErrTimeout):
		Error(c, http.StatusGatewayTimeout, err.Error(), nil)
	case errors.Is(err, trades.ErrUnreachable):
		Error(c, http.StatusBadGateway, err.Error(), nil)
	default:
		var apiErr *trades.APIError
		if errors.As(err, &apiErr) {
			Error(c, apiErr.Status, apiErr.Body, nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
	}
}

func intQuery(c *gin.Context, name string, def int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
