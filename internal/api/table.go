package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rickgao/barsync/internal/model"
)

// decodeTable decodes a JSON array of flat records. Columns keep the order in
// which keys first appear; numbers are kept as json.Number.
func decodeTable(body []byte) (model.RawTable, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return model.RawTable{}, err
	}

	var table model.RawTable
	seen := make(map[string]bool)

	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return model.RawTable{}, err
		}

		row := make(map[string]any)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return model.RawTable{}, fmt.Errorf("decode record key: %w", err)
			}
			key, ok := tok.(string)
			if !ok {
				return model.RawTable{}, fmt.Errorf("decode record key: unexpected %v", tok)
			}

			var v any
			if err := dec.Decode(&v); err != nil {
				return model.RawTable{}, fmt.Errorf("decode value of %q: %w", key, err)
			}
			row[key] = v

			if !seen[key] {
				seen[key] = true
				table.Columns = append(table.Columns, key)
			}
		}

		if err := expectDelim(dec, '}'); err != nil {
			return model.RawTable{}, err
		}
		table.Rows = append(table.Rows, row)
	}

	if err := expectDelim(dec, ']'); err != nil {
		return model.RawTable{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return model.RawTable{}, errors.New("decode records: trailing data after array")
	}

	return table, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode records: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("decode records: expected %q, got %v", want, tok)
	}
	return nil
}
