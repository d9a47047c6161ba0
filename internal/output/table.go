package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ryan-d-young/edgar"
)

// MaxCellWidth caps the display width of a table cell; longer text is truncated
const MaxCellWidth = 48

// Table renders result as an aligned pipe table for the terminal
func Table(w io.Writer, result *edgar.Result) error {
	rows := make([][]string, 0, len(result.Records)+1)
	rows = append(rows, result.Fields)
	for _, record := range result.Records {
		row := make([]string, len(result.Fields))
		for i, field := range result.Fields {
			cell := strings.Join(strings.Fields(Cell(record[field])), " ")
			row[i] = runewidth.Truncate(cell, MaxCellWidth, "…")
		}
		rows = append(rows, row)
	}

	// Calculate max widths (using display width)
	widths := make([]int, len(result.Fields))
	for _, row := range rows {
		for i, cell := range row {
			if width := runewidth.StringWidth(cell); width > widths[i] {
				widths[i] = width
			}
		}
	}

	bw := bufio.NewWriter(w)
	for i, row := range rows {
		writeRow(bw, row, widths)
		if i == 0 {
			separator := make([]string, len(widths))
			for j, width := range widths {
				separator[j] = strings.Repeat("-", width)
			}
			writeRow(bw, separator, widths)
		}
	}
	return bw.Flush()
}

func writeRow(w *bufio.Writer, row []string, widths []int) {
	w.WriteString("|")
	for i, cell := range row {
		w.WriteString(" ")
		w.WriteString(runewidth.FillRight(cell, widths[i]))
		w.WriteString(" |")
	}
	w.WriteString("\n")
}
