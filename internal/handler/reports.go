package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"

	"tradedesk/internal/client/trades"
	"tradedesk/internal/report"
)

type ReportHandler struct {
	Trades *trades.Client
	Cache  *gocache.Cache
}

func NewReportHandler(client *trades.Client, ttl, cleanup time.Duration) *ReportHandler {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if cleanup <= 0 {
		cleanup = 5 * time.Minute
	}
	return &ReportHandler{
		Trades: client,
		Cache:  gocache.New(ttl, cleanup),
	}
}

func (h *ReportHandler) Register(r gin.IRoutes) {
	r.GET("/reports/:period", h.periodReport)
}

type periodReportResponse struct {
	Summary report.Summary `json:"summary"`
	Reports any            `json:"reports"`
	Page    int            `json:"page"`
	Pages   int            `json:"pages"`
}

func (h *ReportHandler) periodReport(c *gin.Context) {
	if h.Trades == nil {
		Error(c, http.StatusInternalServerError, "backend unavailable", nil)
		return
	}
	period := report.Period(strings.ToLower(strings.TrimSpace(c.Param("period"))))
	switch period {
	case report.PeriodDay, report.PeriodWeek, report.PeriodMonth:
	default:
		Error(c, http.StatusBadRequest, "period must be day, week or month", nil)
		return
	}

	date := strings.TrimSpace(c.Query("date"))
	ref := time.Now().UTC()
	if date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			Error(c, http.StatusBadRequest, "date must be YYYY-MM-DD", nil)
			return
		}
		ref = parsed.UTC()
	}

	policy := report.WinRateBackend
	switch strings.TrimSpace(c.Query("win_rate")) {
	case "winner_ratio":
		policy = report.WinRateWinnerRatio
	case "percent_sum":
		policy = report.WinRatePercentSum
	case "", "backend":
	default:
		Error(c, http.StatusBadRequest, "unknown win_rate policy", nil)
		return
	}

	cacheKey := string(period) + "|" + date
	var resp trades.PeriodReport
	if cached, ok := h.Cache.Get(cacheKey); ok {
		resp = cached.(trades.PeriodReport)
	} else {
		fetched, err := h.Trades.FetchPeriodReport(c.Request.Context(), string(period), date)
		if err != nil {
			upstreamError(c, err)
			return
		}
		resp = fetched
		h.Cache.SetDefault(cacheKey, resp)
	}

	records := report.FilterPeriod(resp.Reports, period, ref)
	summary := report.Aggregate(records, period, ref, resp.WinRate, policy)
	sorted := report.SortRecent(records)
	page := intQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	items, pages := report.Page(sorted, page)
	if page > pages {
		// Out-of-range requests land on the last page instead of echoing
		// a page number that does not exist.
		page = pages
		items, _ = report.Page(sorted, page)
	}

	Ok(c, periodReportResponse{
		Summary: summary,
		Reports: items,
		Page:    page,
		Pages:   pages,
	}, map[string]any{"totalPnlUpstream": resp.TotalPnl})
}
