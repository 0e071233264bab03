package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rickgao/barsync/internal/model"
)

// ListInstruments fetches the full A-share listing in provider order.
func (c *Client) ListInstruments(ctx context.Context) (model.RawTable, error) {
	table, err := c.getTable(ctx, "stock_info_a_code_name", nil)
	if err != nil {
		return model.RawTable{}, fmt.Errorf("list instruments: %w", err)
	}
	return table, nil
}

// FetchDailyBars fetches daily bars for code between start and end (YYYYMMDD, inclusive).
func (c *Client) FetchDailyBars(ctx context.Context, code, start, end string) (model.RawTable, error) {
	query := url.Values{}
	query.Set("symbol", code)
	query.Set("period", "daily")
	query.Set("start_date", start)
	query.Set("end_date", end)
	query.Set("adjust", c.adjust)

	table, err := c.getTable(ctx, "stock_zh_a_hist", query)
	if err != nil {
		return model.RawTable{}, fmt.Errorf("fetch daily bars %s: %w", code, err)
	}
	return table, nil
}

// FetchMinuteBars fetches intraday bars for code between start and end
// (YYYY-MM-DD HH:MM:SS) at the given period in minutes.
func (c *Client) FetchMinuteBars(ctx context.Context, code, start, end, period string) (model.RawTable, error) {
	query := url.Values{}
	query.Set("symbol", code)
	query.Set("start_date", start)
	query.Set("end_date", end)
	query.Set("period", period)
	query.Set("adjust", c.adjust)

	table, err := c.getTable(ctx, "stock_zh_a_hist_min_em", query)
	if err != nil {
		return model.RawTable{}, fmt.Errorf("fetch minute bars %s: %w", code, err)
	}
	return table, nil
}
