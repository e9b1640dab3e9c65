package markdown

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract"
)

// Render writes the table in long layout, one row per record, using the
// dataset's field names as headers. Output parses back with Load.
func Render(w io.Writer, t *extract.Table, withTitle bool) error {
	bw := bufio.NewWriter(w)

	if withTitle && t.Title != "" {
		fmt.Fprintf(bw, "# %s\n\n", t.Title)
	}

	header := []string{t.Fields.Year, t.Fields.Category, t.Fields.Value}
	widths := []int{displayWidth(header[0]), displayWidth(header[1]), displayWidth(header[2])}
	rows := make([][]string, 0, len(t.Records))
	for _, r := range t.Records {
		row := []string{strconv.Itoa(r.Year), escape(r.Category), strconv.FormatInt(r.Value, 10)}
		for i, c := range row {
			widths[i] = max(widths[i], displayWidth(c))
		}
		rows = append(rows, row)
	}

	writeRow(bw, header, widths)
	bw.WriteString("|")
	for i, wd := range widths {
		// numeric columns right-aligned
		if i == 1 {
			bw.WriteString(":" + strings.Repeat("-", wd+1) + "|")
		} else {
			bw.WriteString(strings.Repeat("-", wd+1) + ":|")
		}
	}
	bw.WriteString("\n")
	for _, row := range rows {
		writeRow(bw, row, widths)
	}

	return bw.Flush()
}

func writeRow(w *bufio.Writer, cells []string, widths []int) {
	w.WriteString("|")
	for i, c := range cells {
		pad := widths[i] - displayWidth(c)
		w.WriteString(" " + c + strings.Repeat(" ", pad) + " |")
	}
	w.WriteString("\n")
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", "/")
}

// displayWidth counts East Asian wide runes as two columns so Hangul
// cells line up in a monospace editor.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}
