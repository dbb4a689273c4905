package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"tradedesk/internal/client/channel"
	"tradedesk/internal/models"
	"tradedesk/internal/repository"
)

// PublishHandler pushes a trade announcement to the external channel and
// journals the result.
type PublishHandler struct {
	Channel *channel.Client
	Repo    repository.Repository
	Logger  *zap.Logger
}

func (h *PublishHandler) Register(r gin.IRoutes) {
	r.POST("/publications", h.publish)
	r.GET("/publications", h.list)
}

type publishTradeRequest struct {
	TradeID string `json:"tradeId" binding:"required"`
	Title   string `json:"title"`
}

func (h *PublishHandler) publish(c *gin.Context) {
	if h.Channel == nil {
		Error(c, http.StatusServiceUnavailable, "channel integration disabled", nil)
		return
	}
	var req publishTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	ref, err := h.Channel.PublishTrade(c.Request.Context(), channel.PublishRequest{
		TradeID: strings.TrimSpace(req.TradeID),
		Title:   strings.TrimSpace(req.Title),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}

	item := &models.Publication{
		TradeID:    strings.TrimSpace(req.TradeID),
		Title:      strings.TrimSpace(req.Title),
		ChannelRef: ref,
	}
	if payload, err := json.Marshal(req); err == nil {
		item.Payload = datatypes.JSON(payload)
	}
	if h.Repo != nil {
		if err := h.Repo.InsertPublication(c.Request.Context(), item); err != nil && h.Logger != nil {
			h.Logger.Error("journal publication failed", zap.Error(err))
		}
	}
	Ok(c, item, nil)
}

func (h *PublishHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	items, err := h.Repo.ListPublications(c.Request.Context(), limit)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}
