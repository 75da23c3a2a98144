package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	ShowNotes bool
	// Width truncates messages to this many columns, 0 means unlimited.
	Width int
}

type palette struct {
	err  *color.Color
	warn *color.Color
	info *color.Color
	loc  *color.Color
	note *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:  color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow, color.Bold),
		info: color.New(color.FgCyan, color.Bold),
		loc:  color.New(color.FgBlue),
		note: color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.loc, p.note} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s Severity) *color.Color {
	switch s {
	case SevError:
		return p.err
	case SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty renders the bag for a terminal:
//
//	error[CG4006]: no signature for `Demo::Broken`
//	          --> Demo::UsesBroken
//	           = note: ...
//
// Continuation lines are aligned under the message by display width.
// Notes of info diagnostics carry machine payloads and are not printed.
// Call bag.Sort first for a stable order.
func Pretty(w io.Writer, bag *Bag, opts PrettyOpts) error {
	if bag == nil {
		return nil
	}
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		label := fmt.Sprintf("%s[%s]", d.Severity, d.Code.ID())
		indent := strings.Repeat(" ", runewidth.StringWidth(label))
		msg := truncate(d.Message, opts.Width-len(indent)-2)
		if _, err := fmt.Fprintf(w, "%s: %s\n", p.severity(d.Severity).Sprint(label), msg); err != nil {
			return err
		}
		if d.Func != "" {
			if _, err := fmt.Fprintf(w, "%s--> %s\n", indent[:max(len(indent)-2, 0)], p.loc.Sprint(d.Func)); err != nil {
				return err
			}
		}
		if !opts.ShowNotes || d.Severity == SevInfo {
			continue
		}
		for _, n := range d.Notes {
			if _, err := fmt.Fprintf(w, "%s = %s %s\n", indent[:max(len(indent)-2, 0)], p.note.Sprint("note:"), n.Msg); err != nil {
				return err
			}
		}
	}
	return summary(w, bag, p)
}

func summary(w io.Writer, bag *Bag, p palette) error {
	errs, warns := bag.Counts()
	if errs == 0 && warns == 0 {
		return nil
	}
	var parts []string
	if errs > 0 {
		parts = append(parts, plural(errs, "error"))
	}
	if warns > 0 {
		parts = append(parts, plural(warns, "warning"))
	}
	line := strings.Join(parts, ", ") + " emitted"
	if n := bag.Dropped(); n > 0 {
		line += fmt.Sprintf(" (%d more suppressed)", n)
	}
	head := p.warn
	if errs > 0 {
		head = p.err
	}
	_, err := fmt.Fprintf(w, "%s %s\n", head.Sprint("summary:"), line)
	return err
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func truncate(s string, width int) string {
	if width <= 3 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
