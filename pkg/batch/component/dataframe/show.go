package dataframe

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const (
	showTruncate    = 20
	showMinColWidth = 3
)

// Show writes the first n rows as a boxed text table. Cells longer than 20 characters are
// truncated and right-aligned.
func Show(w io.Writer, f *Frame, n int) error {
	_, err := io.WriteString(w, ShowString(f, n))
	return err
}

// ShowString renders the table written by Show.
func ShowString(f *Frame, n int) string {
	head := f.Head(n)
	names := f.schema.Names()

	cells := make([][]string, 0, head.Len()+1)
	cells = append(cells, truncateAll(names))
	for _, row := range head.rows {
		line := make([]string, len(row))
		for i, v := range row {
			line[i] = formatValue(v)
		}
		cells = append(cells, truncateAll(line))
	}

	widths := make([]int, len(names))
	for i := range widths {
		widths[i] = showMinColWidth
	}
	for _, line := range cells {
		for i, c := range line {
			if l := utf8.RuneCountInString(c); l > widths[i] {
				widths[i] = l
			}
		}
	}

	var b strings.Builder
	sep := separator(widths)
	b.WriteString(sep)
	for i, line := range cells {
		b.WriteByte('|')
		for j, c := range line {
			fmt.Fprintf(&b, "%s%s|", strings.Repeat(" ", widths[j]-utf8.RuneCountInString(c)), c)
		}
		b.WriteByte('\n')
		if i == 0 {
			b.WriteString(sep)
		}
	}
	b.WriteString(sep)
	if f.Len() > head.Len() {
		fmt.Fprintf(&b, "only showing top %d rows\n", head.Len())
	}
	return b.String()
}

func separator(widths []int) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w))
		b.WriteByte('+')
	}
	b.WriteByte('\n')
	return b.String()
}

func truncateAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if utf8.RuneCountInString(c) > showTruncate {
			r := []rune(c)
			c = string(r[:showTruncate-3]) + "..."
		}
		out[i] = c
	}
	return out
}
