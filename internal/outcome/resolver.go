// Package outcome decides whether a trade counts as successful and which
// numbers are reported for it. Everything here is a pure function of a
// normalized trade.Record; nothing returns an error — missing inputs
// resolve to absent or false.
package outcome

import "tradedesk/internal/trade"

const (
	LabelSuccessful = "successful"
	LabelFailed     = "failed"
)

// Resolution is the canonical success determination for one trade.
type Resolution struct {
	Successful bool `json:"isSuccessful"`
	Explicit   bool `json:"isExplicit"`
}

// ResolveSuccess applies the precedence order: an explicit upstream flag
// wins verbatim; otherwise the first present of reported P&L amount, then
// reported P&L percent, decides with zero as the fallback baseline. The
// "actual" (realized) fields never participate — a trade reported as a win
// at its peak stays a win even when the literal exit lost money.
func ResolveSuccess(r trade.Record) Resolution {
	if r.Successful != nil {
		return Resolution{Successful: *r.Successful, Explicit: true}
	}
	candidate := 0.0
	switch {
	case r.ReportedPnlAmount != nil:
		candidate = *r.ReportedPnlAmount
	case r.ReportedPnlPercent != nil:
		candidate = *r.ReportedPnlPercent
	}
	return Resolution{Successful: candidate > 0}
}

func SuccessLabel(r trade.Record) string {
	if ResolveSuccess(r).Successful {
		return LabelSuccessful
	}
	return LabelFailed
}

// ReportedPnlAmount is the headline P&L. Legacy aliases are already
// collapsed by trade.FromWire, so this is the single source of truth.
func ReportedPnlAmount(r trade.Record) *float64 {
	return r.ReportedPnlAmount
}

// ReportedPnlPercent has no further fallback: percent is never derived
// from an amount.
func ReportedPnlPercent(r trade.Record) *float64 {
	return r.ReportedPnlPercent
}

// ReportedReferencePrice is the reported exit reference, absent when the
// trade has no close price. Callers wanting "best price reached" use
// ReportedElevationPrice instead.
func ReportedReferencePrice(r trade.Record) *float64 {
	return r.ClosePrice
}

// ReportedElevationPrice intentionally prefers the peak over the literal
// close, for display contexts that surface the best price reached.
func ReportedElevationPrice(r trade.Record) *float64 {
	if r.PeakPrice != nil {
		return r.PeakPrice
	}
	return r.ClosePrice
}

// ActualPnlAmount is the literal realized P&L, informational only.
func ActualPnlAmount(r trade.Record) *float64 {
	return r.ActualPnlAmount
}

// HasActualOutcome reports whether any realized-exit field is present.
func HasActualOutcome(r trade.Record) bool {
	return r.ClosePriceActual != nil || r.ActualPnlAmount != nil || r.ActualPnlPercent != nil
}
