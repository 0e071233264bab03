package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/rickgao/barsync/internal/model"
)

// Saver writes a set of stored bars to a file.
type Saver interface {
	Save(bars []model.StoredBar, path string) error
	Extension() string
}

// Formats lists the supported export formats.
var Formats = []string{"csv", "json", "parquet"}

// NewSaver returns the saver for format, or nil if the format is unsupported.
func NewSaver(format string) Saver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}
	case "json":
		return JSONSaver{}
	case "parquet":
		return ParquetSaver{}
	default:
		return nil
	}
}

// CSVSaver writes bars as CSV with a header row.
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

var csvHeader = []string{"code", "interval", "time", "open", "high", "low", "close", "volume", "created_at"}

func (CSVSaver) Save(bars []model.StoredBar, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range bars {
		if err := w.Write([]string{
			b.Code,
			b.Cadence,
			b.Time,
			floatStr(b.Open),
			floatStr(b.High),
			floatStr(b.Low),
			floatStr(b.Close),
			floatStr(b.Volume),
			b.CreatedAt,
		}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// JSONSaver writes bars as an indented JSON array.
type JSONSaver struct{}

func (JSONSaver) Extension() string { return "json" }

func (JSONSaver) Save(bars []model.StoredBar, path string) error {
	if bars == nil {
		bars = []model.StoredBar{}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(bars); err != nil {
		return err
	}
	return f.Close()
}

// ParquetSaver writes bars as a Parquet file.
type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

func (ParquetSaver) Save(bars []model.StoredBar, path string) error {
	if err := parquet.WriteFile(path, bars); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	return nil
}
