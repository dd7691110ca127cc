// Package stats implements advisory type inference and per-column
// statistics over tabular sources. Results inform filtering and display
// only; execution never depends on an inferred type.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zaidkom/net-zero/internal/table"
)

// Advisory column data types, in inference precedence order.
const (
	TypeBoolean = "boolean"
	TypeDate    = "date"
	TypeNumber  = "number"
	TypeString  = "string"
)

// sampleSize caps how many non-null, non-empty values type inference
// examines per column.
const sampleSize = 50

// ColumnStats holds the computed statistics for one column. Numeric
// aggregates are present only for number columns, date bounds only for
// date columns. Mode is nil when no single value wins the frequency count.
type ColumnStats struct {
	DataType    string     `json:"dataType"`
	TotalCount  int        `json:"totalCount"`
	NullCount   int        `json:"nullCount"`
	UniqueCount int        `json:"uniqueCount"`
	Min         *float64   `json:"min,omitempty"`
	Max         *float64   `json:"max,omitempty"`
	Mean        *float64   `json:"mean,omitempty"`
	Median      *float64   `json:"median,omitempty"`
	Mode        *float64   `json:"mode,omitempty"`
	MinDate     *time.Time `json:"minDate,omitempty"`
	MaxDate     *time.Time `json:"maxDate,omitempty"`
}

// Table maps a column data index to its statistics.
type Table map[string]ColumnStats

// dateLayouts are tried in order when deciding whether a value is a date.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// InferType classifies a column from a sample of its values. At most
// sampleSize non-null, non-empty values are examined. Precedence:
// boolean, then date, then number; anything else is string. An empty
// sample infers string.
func InferType(values []any) string {
	sample := make([]any, 0, sampleSize)
	for _, v := range values {
		if v == nil || render(v) == "" {
			continue
		}
		sample = append(sample, v)
		if len(sample) == sampleSize {
			break
		}
	}
	if len(sample) == 0 {
		return TypeString
	}

	allBool, allDate, allNumber := true, true, true
	for _, v := range sample {
		if _, ok := parseBool(v); !ok {
			allBool = false
		}
		if _, ok := parseDate(v); !ok {
			allDate = false
		}
		if _, ok := parseNumber(v); !ok {
			allNumber = false
		}
	}

	switch {
	case allBool:
		return TypeBoolean
	case allDate:
		return TypeDate
	case allNumber:
		return TypeNumber
	default:
		return TypeString
	}
}

// Compute derives statistics for every column of the given rows. Each
// column is computed atomically: all of its fields reflect the same row
// set. Compute is pure and idempotent on unchanged rows.
func Compute(columns []table.Column, rows []table.Row) Table {
	out := make(Table, len(columns))
	for _, col := range columns {
		out[col.DataIndex] = computeColumn(col.DataIndex, rows)
	}
	return out
}

func computeColumn(dataIndex string, rows []table.Row) ColumnStats {
	nonNull := make([]any, 0, len(rows))
	for _, row := range rows {
		if v, ok := row[dataIndex]; ok && v != nil {
			nonNull = append(nonNull, v)
		}
	}

	nonEmpty := make([]any, 0, len(nonNull))
	distinct := make(map[string]struct{}, len(nonNull))
	for _, v := range nonNull {
		s := render(v)
		if s == "" {
			continue
		}
		nonEmpty = append(nonEmpty, v)
		distinct[s] = struct{}{}
	}

	cs := ColumnStats{
		DataType:    InferType(nonEmpty),
		TotalCount:  len(nonNull),
		NullCount:   len(rows) - len(nonNull),
		UniqueCount: len(distinct),
	}

	switch cs.DataType {
	case TypeNumber:
		nums := make([]float64, 0, len(nonEmpty))
		for _, v := range nonEmpty {
			if n, ok := parseNumber(v); ok {
				nums = append(nums, n)
			}
		}
		if len(nums) > 0 {
			cs.Min = ptr(minOf(nums))
			cs.Max = ptr(maxOf(nums))
			cs.Mean = ptr(round2(meanOf(nums)))
			cs.Median = ptr(medianOf(nums))
			cs.Mode = modeOf(nums)
		}
	case TypeDate:
		var lo, hi time.Time
		seen := false
		for _, v := range nonEmpty {
			d, ok := parseDate(v)
			if !ok {
				continue
			}
			if !seen || d.Before(lo) {
				lo = d
			}
			if !seen || d.After(hi) {
				hi = d
			}
			seen = true
		}
		if seen {
			cs.MinDate = &lo
			cs.MaxDate = &hi
		}
	}
	return cs
}

// render gives the canonical string form of a cell value, used for
// emptiness and uniqueness checks.
func render(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func parseBool(v any) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	switch strings.ToLower(strings.TrimSpace(render(v))) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}

func parseNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(render(v)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseDate(v any) (time.Time, bool) {
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	s := strings.TrimSpace(render(v))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func minOf(nums []float64) float64 {
	m := nums[0]
	for _, n := range nums[1:] {
		if n < m {
			m = n
		}
	}
	return m
}

func maxOf(nums []float64) float64 {
	m := nums[0]
	for _, n := range nums[1:] {
		if n > m {
			m = n
		}
	}
	return m
}

func meanOf(nums []float64) float64 {
	var sum float64
	for _, n := range nums {
		sum += n
	}
	return sum / float64(len(nums))
}

func medianOf(nums []float64) float64 {
	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// modeOf returns the most frequent value, or nil when the top frequency
// is shared by more than one value.
func modeOf(nums []float64) *float64 {
	counts := make(map[float64]int, len(nums))
	for _, n := range nums {
		counts[n]++
	}
	best, winners := 0, 0
	var mode float64
	for n, c := range counts {
		switch {
		case c > best:
			best, winners, mode = c, 1, n
		case c == best:
			winners++
		}
	}
	if winners != 1 {
		return nil
	}
	return &mode
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func ptr(f float64) *float64 { return &f }
