package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// table writes left-aligned columns measured in display cells, so
// qualified names with non-ASCII identifiers line up.
type table struct {
	header []string
	rows   [][]string
	// highlight colors a cell; nil leaves it plain.
	highlight func(col int, cell string) *color.Color
}

func (t *table) add(cells ...string) { t.rows = append(t.rows, cells) }

func (t *table) widths() []int {
	w := make([]int, len(t.header))
	for i, h := range t.header {
		w[i] = runewidth.StringWidth(h)
	}
	for _, r := range t.rows {
		for i, c := range r {
			if i < len(w) {
				w[i] = max(w[i], runewidth.StringWidth(c))
			}
		}
	}
	return w
}

func (t *table) write(w io.Writer, useColor bool) error {
	widths := t.widths()
	head := color.New(color.Bold, color.Underline)
	if useColor {
		head.EnableColor()
	} else {
		head.DisableColor()
	}
	if err := t.line(w, t.header, widths, func(int, string) *color.Color { return head }, useColor); err != nil {
		return err
	}
	for _, r := range t.rows {
		if err := t.line(w, r, widths, t.highlight, useColor); err != nil {
			return err
		}
	}
	return nil
}

func (t *table) line(w io.Writer, cells []string, widths []int, hl func(int, string) *color.Color, useColor bool) error {
	var sb strings.Builder
	for i, c := range cells {
		last := i == len(cells)-1
		text := c
		if !last {
			text = runewidth.FillRight(c, widths[i])
		}
		if hl != nil && useColor {
			if col := hl(i, c); col != nil {
				text = col.Sprint(text)
			}
		}
		sb.WriteString(text)
		if !last {
			sb.WriteString("  ")
		}
	}
	_, err := fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
	return err
}
