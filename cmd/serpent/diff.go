package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// writeDiff prints a line diff of from and to, with removed lines prefixed
// by "-" and added lines by "+". It reports whether anything differed.
func writeDiff(w io.Writer, from, to string, colored bool) bool {
	if from == to {
		return false
	}
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	removed := color.New(color.FgRed)
	added := color.New(color.FgGreen)
	for _, c := range []*color.Color{removed, added} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	for _, d := range diffs {
		for _, line := range splitLines(d.Text) {
			switch d.Type {
			case diffpatch.DiffDelete:
				removed.Fprintf(w, "-%s\n", line)
			case diffpatch.DiffInsert:
				added.Fprintf(w, "+%s\n", line)
			default:
				fmt.Fprintf(w, " %s\n", line)
			}
		}
	}
	return true
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
