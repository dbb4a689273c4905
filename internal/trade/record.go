package trade

import "time"

type Right string

const (
	RightCall Right = "call"
	RightPut  Right = "put"
)

type Status string

const (
	StatusOpen    Status = "open"
	StatusClosed  Status = "closed"
	StatusInvalid Status = "invalid"
)

// Record is the single normalized shape every component works with. Optional
// numerics are pointers set only when the upstream supplied a finite value;
// the aliased wire fields (pnl vs pnlAmount, highPrice vs peakPriceReached)
// are collapsed once in FromWire so nothing downstream re-implements the
// fallback chains.
type Record struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Right  Right  `json:"right"`
	Strike float64 `json:"strike"`
	Expiry string `json:"expiry"` // YYYY-MM-DD

	EntryPrice   float64 `json:"entryPrice"`
	CurrentPrice float64 `json:"currentPrice"`

	PeakPrice        *float64 `json:"peakPriceReached,omitempty"`
	ClosePrice       *float64 `json:"closePrice,omitempty"`
	ClosePriceActual *float64 `json:"closePriceActual,omitempty"`

	ReportedPnlAmount  *float64 `json:"reportedPnlAmount,omitempty"`
	ReportedPnlPercent *float64 `json:"reportedPnlPercent,omitempty"`
	ActualPnlAmount    *float64 `json:"actualPnlAmount,omitempty"`
	ActualPnlPercent   *float64 `json:"actualPnlPercent,omitempty"`

	Successful        *bool   `json:"isSuccessful,omitempty"`
	SuccessRule       *string `json:"successRule,omitempty"`
	UsedPeakForReport bool    `json:"usedPeakPriceForReport,omitempty"`

	Status    Status   `json:"status"`
	Contracts int      `json:"contracts"`
	StopLoss  *float64 `json:"stopLoss,omitempty"`

	ClosedAt *time.Time `json:"closedAt,omitempty"`

	// Optimistic marks a locally synthesized record whose server id is not
	// confirmed yet. It survives reconciliation until a snapshot confirms
	// or the user hides it.
	Optimistic bool `json:"optimistic,omitempty"`
}

// Clone returns a deep copy so committed snapshots never share pointers
// with caller-held records.
func (r Record) Clone() Record {
	out := r
	out.PeakPrice = copyFloat(r.PeakPrice)
	out.ClosePrice = copyFloat(r.ClosePrice)
	out.ClosePriceActual = copyFloat(r.ClosePriceActual)
	out.ReportedPnlAmount = copyFloat(r.ReportedPnlAmount)
	out.ReportedPnlPercent = copyFloat(r.ReportedPnlPercent)
	out.ActualPnlAmount = copyFloat(r.ActualPnlAmount)
	out.ActualPnlPercent = copyFloat(r.ActualPnlPercent)
	out.StopLoss = copyFloat(r.StopLoss)
	if r.Successful != nil {
		v := *r.Successful
		out.Successful = &v
	}
	if r.SuccessRule != nil {
		v := *r.SuccessRule
		out.SuccessRule = &v
	}
	if r.ClosedAt != nil {
		v := *r.ClosedAt
		out.ClosedAt = &v
	}
	return out
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
