package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rickgao/barsync/internal/model"
)

// Canonical column names.
const (
	ColTime   = "time"
	ColOpen   = "open"
	ColHigh   = "high"
	ColLow    = "low"
	ColClose  = "close"
	ColVolume = "volume"
)

// Output time layouts.
const (
	DailyLayout  = "2006-01-02"
	MinuteLayout = "2006-01-02 15:04:05"
)

// requiredColumns is checked in this order so error messages are stable.
var requiredColumns = []string{ColTime, ColOpen, ColClose, ColHigh, ColLow, ColVolume}

var priceColumns = map[string]string{
	"开盘":  ColOpen,
	"收盘":  ColClose,
	"最高":  ColHigh,
	"最低":  ColLow,
	"成交量": ColVolume,
}

// timeHeader is the provider header of the time column per family.
var timeHeader = map[model.Family]string{
	model.FamilyDaily:  "日期",
	model.FamilyMinute: "时间",
}

// inputLayouts are tried in order when parsing time strings.
var inputLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	time.RFC3339Nano,
	"20060102",
	"2006/01/02",
	"2006/01/02 15:04:05",
}

// Rename returns the canonical name for a provider header in family, and
// whether the header is one of the canonical columns.
func Rename(family model.Family, header string) (string, bool) {
	if header == timeHeader[family] {
		return ColTime, true
	}
	if c, ok := priceColumns[header]; ok {
		return c, true
	}
	for _, c := range requiredColumns {
		if header == c {
			return c, true
		}
	}
	return "", false
}

// Normalize converts a provider table into canonical bars.
// Any missing column, unparsable time or unparsable number fails the whole
// table with model.ErrSchemaMismatch.
func Normalize(raw model.RawTable, family model.Family) ([]model.Bar, error) {
	layout, err := outputLayout(family)
	if err != nil {
		return nil, err
	}

	// canonical name -> provider header; first header wins.
	source := make(map[string]string, len(requiredColumns))
	for _, header := range raw.Columns {
		if c, ok := Rename(family, header); ok {
			if _, dup := source[c]; !dup {
				source[c] = header
			}
		}
	}
	for _, c := range requiredColumns {
		if _, ok := source[c]; !ok {
			return nil, fmt.Errorf("%w: missing column %s in %s data", model.ErrSchemaMismatch, c, family)
		}
	}

	bars := make([]model.Bar, 0, raw.Len())
	for i, row := range raw.Rows {
		bar, err := normalizeRow(row, source, layout)
		if err != nil {
			return nil, fmt.Errorf("%w: %s data row %d: %w", model.ErrSchemaMismatch, family, i, err)
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

func normalizeRow(row map[string]any, source map[string]string, layout string) (model.Bar, error) {
	var bar model.Bar

	t, err := ParseTime(row[source[ColTime]])
	if err != nil {
		return bar, fmt.Errorf("column %s: %w", ColTime, err)
	}
	bar.Time = t.Format(layout)

	fields := []struct {
		col string
		dst *float64
	}{
		{ColOpen, &bar.Open},
		{ColHigh, &bar.High},
		{ColLow, &bar.Low},
		{ColClose, &bar.Close},
		{ColVolume, &bar.Volume},
	}
	for _, f := range fields {
		v, err := ParseFloat(row[source[f.col]])
		if err != nil {
			return bar, fmt.Errorf("column %s: %w", f.col, err)
		}
		*f.dst = v
	}

	return bar, nil
}

func outputLayout(family model.Family) (string, error) {
	switch family {
	case model.FamilyDaily:
		return DailyLayout, nil
	case model.FamilyMinute:
		return MinuteLayout, nil
	default:
		return "", fmt.Errorf("unknown cadence family %q", family)
	}
}

// ParseTime parses a provider time cell. Strings are tried against the known
// layouts; numbers are epoch milliseconds. Zone offsets in the input are kept,
// so formatting renders the provider's wall clock.
func ParseTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, errors.New("empty value")
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, errors.New("empty value")
		}
		for _, layout := range inputLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized time %q", s)
	case json.Number:
		ms, err := x.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("unrecognized time %q", x.String())
		}
		return time.UnixMilli(ms).UTC(), nil
	case float64:
		return time.UnixMilli(int64(x)).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %v", v)
	}
}

// ParseFloat parses a provider numeric cell.
func ParseFloat(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, errors.New("empty value")
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", x.String())
		}
		return f, nil
	case float64:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, errors.New("empty value")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", s)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported numeric value %v", v)
	}
}
