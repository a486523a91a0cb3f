package chart

import "fmt"

// Point is one plotted sample. Timestamp is in milliseconds.
type Point struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
	Label     string  `json:"label,omitempty"`
}

// TimeRange selects which dataset backs the chart.
type TimeRange string

const (
	Range1H  TimeRange = "1H"
	Range1D  TimeRange = "1D"
	Range7D  TimeRange = "7D"
	Range30D TimeRange = "30D"
	RangeAll TimeRange = "ALL"
)

// TimeRanges lists the ranges offered to clients.
var TimeRanges = []TimeRange{Range1H, Range1D, Range7D, Range30D, RangeAll}

// ParseTimeRange validates s. Empty input means 1D.
func ParseTimeRange(s string) (TimeRange, error) {
	if s == "" {
		return Range1D, nil
	}
	for _, r := range TimeRanges {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown time range %q", s)
}

// Metric selects which bucket field is plotted.
type Metric string

const (
	CumulativeAmount   Metric = "cumulativeAmount"
	CumulativeDeposits Metric = "cumulativeDeposits"
	DepositAmount      Metric = "depositAmount"
	DepositCount       Metric = "depositCount"
)

// Metrics lists every metric.
var Metrics = []Metric{CumulativeAmount, CumulativeDeposits, DepositAmount, DepositCount}

// ParseMetric validates s. Empty input means cumulativeAmount.
func ParseMetric(s string) (Metric, error) {
	if s == "" {
		return CumulativeAmount, nil
	}
	for _, m := range Metrics {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// IsAmount reports whether the metric is a token amount rather than a count.
func (m Metric) IsAmount() bool {
	return m == CumulativeAmount || m == DepositAmount
}

// Color is the stroke color used for the metric.
func (m Metric) Color() string {
	switch m {
	case CumulativeDeposits:
		return "#3B82F6"
	case DepositAmount:
		return "#8B5CF6"
	case DepositCount:
		return "#F59E0B"
	default:
		return "#10B981"
	}
}

// Title is the human-readable metric name.
func (m Metric) Title() string {
	switch m {
	case CumulativeDeposits:
		return "Cumulative deposits"
	case DepositAmount:
		return "Deposit amount"
	case DepositCount:
		return "Deposit count"
	default:
		return "Cumulative amount"
	}
}
