// Package api provides the market data provider client.
//
// The provider is an AKTools gateway, which exposes AkShare functions over HTTP:
//
//	GET {base}/api/public/{function}?{arguments}
//
// Every endpoint answers with a JSON array of records. Column names are
// whatever the upstream source uses, usually Chinese headers; this package
// does not interpret them and hands back a model.RawTable.
//
// Functions used:
//   - stock_info_a_code_name: A-share listing
//   - stock_zh_a_hist: daily bars
//   - stock_zh_a_hist_min_em: intraday bars
package api
