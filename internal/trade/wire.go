package trade

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Wire is the upstream shape of a trade row. The backend has grown aliases
// over time (pnl vs pnlAmount, type vs right, highPrice vs peakPriceReached)
// and mixes numbers with numeric strings, so every numeric field decodes
// through Numeric and the aliases are collapsed in FromWire.
type Wire struct {
	ID      string `json:"id"`
	TradeID string `json:"tradeId"`
	Symbol  string `json:"symbol"`
	Right   string `json:"right"`
	Type    string `json:"type"`

	Strike     Numeric `json:"strike"`
	Expiration string  `json:"expiration"`
	Expiry     string  `json:"expiry"`
	Status     string  `json:"status"`

	EntryPrice   Numeric `json:"entryPrice"`
	Price        Numeric `json:"price"`
	CurrentPrice Numeric `json:"currentPrice"`
	Mark         Numeric `json:"mark"`

	HighPrice        Numeric `json:"highPrice"`
	PeakPriceReached Numeric `json:"peakPriceReached"`
	ClosePrice       Numeric `json:"closePrice"`
	ClosePriceActual Numeric `json:"closePriceActual"`

	Pnl              Numeric `json:"pnl"`
	PnlAmount        Numeric `json:"pnlAmount"`
	PnlPercent       Numeric `json:"pnlPercent"`
	PnlActual        Numeric `json:"pnlActual"`
	PnlAmountActual  Numeric `json:"pnlAmountActual"`
	PnlPercentActual Numeric `json:"pnlPercentActual"`

	IsSuccessful           *bool   `json:"isSuccessful"`
	SuccessRule            *string `json:"successRule"`
	UsedHighPriceForReport *bool   `json:"usedHighPriceForReport"`

	Contracts Numeric `json:"contracts"`
	Quantity  Numeric `json:"quantity"`
	StopLoss  Numeric `json:"stopLoss"`

	ClosedAt string `json:"closedAt"`
}

var eightDigits = regexp.MustCompile(`^[0-9]{8}$`)

// NormalizeExpiry turns an 8-digit YYYYMMDD expiration into YYYY-MM-DD.
// Already-dashed values pass through unchanged.
func NormalizeExpiry(raw string) string {
	digits := strings.ReplaceAll(raw, "-", "")
	if eightDigits.MatchString(digits) {
		return digits[0:4] + "-" + digits[4:6] + "-" + digits[6:8]
	}
	return raw
}

// FromWire applies the boundary coercion once and produces the normalized
// Record. Open rows never carry close prices, whatever the upstream sent.
func FromWire(w Wire) Record {
	id := w.ID
	if id == "" {
		id = w.TradeID
	}

	right := strings.ToLower(w.Right)
	if right == "" {
		right = strings.ToLower(w.Type)
	}
	r := RightCall
	if right == string(RightPut) {
		r = RightPut
	}

	status := StatusOpen
	switch strings.ToLower(w.Status) {
	case "closed":
		status = StatusClosed
	case "invalid":
		status = StatusInvalid
	}

	expiry := w.Expiration
	if expiry == "" {
		expiry = w.Expiry
	}

	entry := w.EntryPrice.Or(w.Price.Or(0))
	current := w.CurrentPrice.Or(w.Mark.Or(entry))

	contracts := int(w.Contracts.Or(w.Quantity.Or(1)))
	if contracts < 1 {
		contracts = 1
	}

	rec := Record{
		ID:           id,
		Symbol:       w.Symbol,
		Right:        r,
		Strike:       w.Strike.Or(0),
		Expiry:       NormalizeExpiry(expiry),
		EntryPrice:   entry,
		CurrentPrice: current,

		PeakPrice:        firstPresent(w.PeakPriceReached, w.HighPrice),
		ClosePrice:       w.ClosePrice.Ptr(),
		ClosePriceActual: w.ClosePriceActual.Ptr(),

		ReportedPnlAmount:  firstPresent(w.PnlAmount, w.Pnl),
		ReportedPnlPercent: w.PnlPercent.Ptr(),
		ActualPnlAmount:    firstPresent(w.PnlAmountActual, w.PnlActual),
		ActualPnlPercent:   w.PnlPercentActual.Ptr(),

		Successful:  w.IsSuccessful,
		SuccessRule: w.SuccessRule,

		Status:    status,
		Contracts: contracts,
		StopLoss:  w.StopLoss.Ptr(),
	}
	if w.UsedHighPriceForReport != nil {
		rec.UsedPeakForReport = *w.UsedHighPriceForReport
	}
	if ts := parseClosedAt(w.ClosedAt); ts != nil {
		rec.ClosedAt = ts
	}
	if rec.Status == StatusOpen {
		rec.ClosePrice = nil
		rec.ClosePriceActual = nil
	}
	return rec
}

// NewOptimistic synthesizes the local record shown before the create call
// confirms. The id is local; reconciliation treats the row as unconfirmed.
func NewOptimistic(symbol string, right Right, strike float64, expiry string, entryPrice float64, contracts int, stopLoss *float64) Record {
	if contracts < 1 {
		contracts = 1
	}
	return Record{
		ID:           uuid.NewString(),
		Symbol:       strings.ToUpper(strings.TrimSpace(symbol)),
		Right:        right,
		Strike:       strike,
		Expiry:       NormalizeExpiry(expiry),
		EntryPrice:   entryPrice,
		CurrentPrice: entryPrice,
		Status:       StatusOpen,
		Contracts:    contracts,
		StopLoss:     stopLoss,
		Optimistic:   true,
	}
}

func firstPresent(candidates ...Numeric) *float64 {
	for _, c := range candidates {
		if p := c.Ptr(); p != nil {
			return p
		}
	}
	return nil
}

func parseClosedAt(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return &ts
		}
	}
	return nil
}
