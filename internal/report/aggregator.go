// Package report groups resolved trade outcomes into day/week/month
// summaries and paginates the underlying rows.
package report

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tradedesk/internal/outcome"
	"tradedesk/internal/trade"
)

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// PageSize is fixed; the dashboard renders ten report cards per page.
const PageSize = 10

// WinRatePolicy names how Summary.WinRate was produced. The three are not
// numerically equivalent and must never be mixed within one view.
type WinRatePolicy string

const (
	// WinRateBackend passes an upstream-computed aggregate through
	// unchanged when present, computing the winner ratio only as a
	// fallback.
	WinRateBackend WinRatePolicy = "backend"
	// WinRateWinnerRatio is (winners / count) * 100.
	WinRateWinnerRatio WinRatePolicy = "winner_ratio"
	// WinRatePercentSum sums each record's reported P&L percent. It is
	// additive and can legitimately exceed 100.
	WinRatePercentSum WinRatePolicy = "percent_sum"
)

type Summary struct {
	Period    Period          `json:"period"`
	Reference time.Time       `json:"reference"`
	Count     int             `json:"count"`
	NetPnl    decimal.Decimal `json:"netPnl"`
	WinRate   decimal.Decimal `json:"winRate"`
	Policy    WinRatePolicy   `json:"winRatePolicy"`
}

// Window returns the half-open interval [start, end) of closes that belong
// to the period anchored at ref. Day is the same UTC calendar day; week and
// month are trailing windows (7 and 30 days) ending at the end of ref's day.
func Window(period Period, ref time.Time) (time.Time, time.Time) {
	ref = ref.UTC()
	dayStart := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)
	switch period {
	case PeriodWeek:
		return dayEnd.AddDate(0, 0, -7), dayEnd
	case PeriodMonth:
		return dayEnd.AddDate(0, 0, -30), dayEnd
	default:
		return dayStart, dayEnd
	}
}

// FilterPeriod keeps records whose close date falls inside the period
// window. Records without a close date never match a window.
func FilterPeriod(records []trade.Record, period Period, ref time.Time) []trade.Record {
	start, end := Window(period, ref)
	out := make([]trade.Record, 0, len(records))
	for _, r := range records {
		if r.ClosedAt == nil {
			continue
		}
		ts := r.ClosedAt.UTC()
		if !ts.Before(start) && ts.Before(end) {
			out = append(out, r)
		}
	}
	return out
}

// Aggregate computes the summary for records already filtered to a period.
// backendWinRate is the upstream aggregate, when the report endpoint
// supplied one; it is only consulted under WinRateBackend. Absent P&L
// amounts count as zero at summation time only — never upstream.
func Aggregate(records []trade.Record, period Period, ref time.Time, backendWinRate *float64, policy WinRatePolicy) Summary {
	sum := Summary{Period: period, Reference: ref.UTC(), Count: len(records), Policy: policy}

	for _, r := range records {
		if amt := outcome.ReportedPnlAmount(r); amt != nil {
			sum.NetPnl = sum.NetPnl.Add(decimal.NewFromFloat(*amt))
		}
	}

	switch policy {
	case WinRatePercentSum:
		for _, r := range records {
			if pct := outcome.ReportedPnlPercent(r); pct != nil {
				sum.WinRate = sum.WinRate.Add(decimal.NewFromFloat(*pct))
			}
		}
	case WinRateBackend:
		if backendWinRate != nil {
			sum.WinRate = decimal.NewFromFloat(*backendWinRate)
			return sum
		}
		sum.WinRate = winnerRatio(records)
	default:
		sum.WinRate = winnerRatio(records)
	}
	return sum
}

func winnerRatio(records []trade.Record) decimal.Decimal {
	if len(records) == 0 {
		return decimal.Zero
	}
	winners := 0
	for _, r := range records {
		if outcome.ResolveSuccess(r).Successful {
			winners++
		}
	}
	return decimal.NewFromInt(int64(winners)).
		Div(decimal.NewFromInt(int64(len(records)))).
		Mul(decimal.NewFromInt(100))
}

// SortRecent orders records most-recent-first by close date; rows without
// one sink to the end, keeping their relative order.
func SortRecent(records []trade.Record) []trade.Record {
	out := make([]trade.Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ClosedAt, out[j].ClosedAt
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.After(*b)
	})
	return out
}

// Page returns the 1-based page of an ordered list and the page count,
// which is at least 1 even for an empty list.
func Page(records []trade.Record, page int) ([]trade.Record, int) {
	pages := int(math.Ceil(float64(len(records)) / float64(PageSize)))
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		return nil, pages
	}
	lo := (page - 1) * PageSize
	hi := lo + PageSize
	if hi > len(records) {
		hi = len(records)
	}
	return records[lo:hi], pages
}
