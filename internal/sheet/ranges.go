package sheet

import "fmt"

// ColumnLetter converts a 1-based column number to its A1-notation letter
// ("A" for 1, "Z" for 26, "AA" for 27).
func ColumnLetter(n int) string {
	var s string
	for n > 0 {
		n--
		s = string(rune('A'+n%26)) + s
		n /= 26
	}
	return s
}

// FullRange addresses an entire sheet. The bare quoted sheet name selects
// every populated cell.
func FullRange(sheetName string) string {
	return fmt.Sprintf("'%s'", sheetName)
}

// HeaderRange addresses a sheet's header row (row 1).
func HeaderRange(sheetName string) string {
	return fmt.Sprintf("'%s'!1:1", sheetName)
}

// AppendRange addresses the region the append API grows: anchored at A1,
// the remote store locates the first empty row itself.
func AppendRange(sheetName string) string {
	return fmt.Sprintf("'%s'!A1", sheetName)
}

// RowRange addresses one absolute data row, rowIndex 1-based and width
// columns wide, e.g. 'Veiculo'!A5:D5.
func RowRange(sheetName string, rowIndex, width int) string {
	if width < 1 {
		width = 1
	}
	return fmt.Sprintf("'%s'!A%d:%s%d", sheetName, rowIndex, ColumnLetter(width), rowIndex)
}
