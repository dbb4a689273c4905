package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradedesk/internal/client/trades"
	"tradedesk/internal/reconcile"
	"tradedesk/internal/trade"
)

type PositionHandler struct {
	Recon  *reconcile.Reconciler
	Trades *trades.Client
	Logger *zap.Logger
}

func (h *PositionHandler) Register(r gin.IRoutes) {
	r.GET("/positions", h.list)
	r.GET("/winners", h.winners)
	r.POST("/positions", h.create)
	r.POST("/positions/refresh", h.refresh)
	r.PATCH("/positions/:id/stoploss", h.setStopLoss)
	r.PATCH("/positions/:id/close", h.closePosition)
	r.DELETE("/positions/:id", h.hide)
}

func (h *PositionHandler) list(c *gin.Context) {
	if h.Recon == nil {
		Error(c, http.StatusInternalServerError, "reconciler unavailable", nil)
		return
	}
	items := h.Recon.Visible()
	Ok(c, items, map[string]any{
		"count":  len(items),
		"loaded": h.Recon.Loaded(),
	})
}

func (h *PositionHandler) winners(c *gin.Context) {
	if h.Trades == nil {
		Error(c, http.StatusInternalServerError, "backend unavailable", nil)
		return
	}
	items, err := h.Trades.ListWinners(c.Request.Context())
	if err != nil {
		upstreamError(c, err)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

func (h *PositionHandler) refresh(c *gin.Context) {
	if h.Recon == nil {
		Error(c, http.StatusInternalServerError, "reconciler unavailable", nil)
		return
	}
	if err := h.Recon.RefreshOnce(c.Request.Context()); err != nil {
		upstreamError(c, err)
		return
	}
	items := h.Recon.Visible()
	Ok(c, items, map[string]any{"count": len(items)})
}

type createPositionRequest struct {
	Symbol     string   `json:"symbol" binding:"required"`
	Right      string   `json:"right" binding:"required"`
	Strike     float64  `json:"strike" binding:"required"`
	Expiration string   `json:"expiration" binding:"required"`
	Contracts  int      `json:"contracts"`
	EntryPrice float64  `json:"entryPrice"`
	StopLoss   *float64 `json:"stopLoss"`
}

// create shows the position immediately and confirms it against the
// backend within the same request. A failed confirm keeps the local row
// on screen; there is no rollback.
func (h *PositionHandler) create(c *gin.Context) {
	if h.Recon == nil || h.Trades == nil {
		Error(c, http.StatusInternalServerError, "backend unavailable", nil)
		return
	}
	var req createPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	right := trade.RightCall
	if strings.EqualFold(req.Right, string(trade.RightPut)) {
		right = trade.RightPut
	}

	local := trade.NewOptimistic(req.Symbol, right, req.Strike, req.Expiration, req.EntryPrice, req.Contracts, req.StopLoss)
	h.Recon.OptimisticInsert(local)

	var entry *float64
	if req.EntryPrice > 0 {
		entry = &req.EntryPrice
	}
	confirmed, err := h.Trades.CreateTrade(c.Request.Context(), trades.CreateTradeRequest{
		Symbol:     local.Symbol,
		Right:      string(right),
		Strike:     req.Strike,
		Expiration: req.Expiration,
		Contracts:  req.Contracts,
		EntryPrice: entry,
		StopLoss:   req.StopLoss,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("create not confirmed, keeping local row",
				zap.String("localId", local.ID), zap.Error(err))
		}
		upstreamError(c, err)
		return
	}
	h.Recon.ConfirmCreate(local.ID, confirmed)
	Ok(c, confirmed, nil)
}

type stopLossRequest struct {
	StopLoss float64 `json:"stopLoss" binding:"required"`
}

func (h *PositionHandler) setStopLoss(c *gin.Context) {
	if h.Recon == nil || h.Trades == nil {
		Error(c, http.StatusInternalServerError, "backend unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req stopLossRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	updated, err := h.Trades.SetStopLoss(c.Request.Context(), id, req.StopLoss)
	if err != nil {
		upstreamError(c, err)
		return
	}
	h.Recon.ConfirmCreate(id, updated)
	Ok(c, updated, nil)
}

func (h *PositionHandler) closePosition(c *gin.Context) {
	if h.Recon == nil || h.Trades == nil {
		Error(c, http.StatusInternalServerError, "backend unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	closed, err := h.Trades.CloseTrade(c.Request.Context(), id)
	if err != nil {
		upstreamError(c, err)
		return
	}
	h.Recon.ConfirmCreate(id, closed)
	Ok(c, closed, nil)
}

// hide deletes the row upstream and tombstones its id locally so it never
// comes back through a later snapshot.
func (h *PositionHandler) hide(c *gin.Context) {
	if h.Recon == nil {
		Error(c, http.StatusInternalServerError, "reconciler unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	if err := h.Recon.Hide(c.Request.Context(), id); err != nil {
		upstreamError(c, err)
		return
	}
	Ok(c, gin.H{"id": id, "hidden": true}, nil)
}
