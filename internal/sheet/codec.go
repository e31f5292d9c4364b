// Package sheet translates between the spreadsheet's positional grid and
// the record protocol spoken by callers: header-keyed maps with a derived
// 1-based row index for later targeting.
package sheet

import (
	"strings"

	"github.com/frotaops/sheetgate/internal/model"
)

// headerOffset converts a 0-based data-row position into the 1-based sheet
// row number: +1 for 1-based indexing, +1 for the header row.
const headerOffset = 2

// GridToRecords decodes a raw grid into records. The first grid row is the
// header row, taken verbatim: order preserved, blank and duplicate entries
// tolerated (a later duplicate overwrites the earlier one's cell in the
// record, matching the remote store's own lack of uniqueness enforcement).
// Cells past the end of a short row decode as "". Each record carries
// model.RowIndexKey with its sheet position.
func GridToRecords(grid [][]string) (headers []string, records []model.Record) {
	if len(grid) == 0 {
		return []string{}, []model.Record{}
	}
	headers = grid[0]
	records = make([]model.Record, 0, len(grid)-1)
	for i, row := range grid[1:] {
		rec := make(model.Record, len(headers)+1)
		for j, h := range headers {
			if j < len(row) {
				rec[h] = row[j]
			} else {
				rec[h] = ""
			}
		}
		rec[model.RowIndexKey] = i + headerOffset
		records = append(records, rec)
	}
	return headers, records
}

// RecordToRow encodes one record as a positional row matching headers.
// Each header resolves its value through a three-tier lookup against the
// caller's field names:
//
//  1. exact key match
//  2. match after trimming incidental whitespace from the header
//  3. match after normalizing both sides (NormalizeHeader)
//
// The first tier that yields a value wins; headers with no match encode as
// an empty string.
func RecordToRow(headers []string, data map[string]string) []string {
	// Normalized view of the caller's fields, built once per record.
	normalized := make(map[string]string, len(data))
	for k, v := range data {
		normalized[NormalizeHeader(k)] = v
	}

	row := make([]string, len(headers))
	for i, h := range headers {
		if v, ok := data[h]; ok {
			row[i] = v
			continue
		}
		if v, ok := data[strings.TrimSpace(h)]; ok {
			row[i] = v
			continue
		}
		if v, ok := normalized[NormalizeHeader(h)]; ok {
			row[i] = v
		}
	}
	return row
}
