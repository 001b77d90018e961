package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	durationPrecision = time.Millisecond
	diffTimeout       = 5 * time.Second
)

// DiffStats counts changed lines.
type DiffStats struct {
	Added   int
	Removed int
	Same    int
}

// LineDiff computes a line-level diff of before and after.
func LineDiff(before, after string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = diffTimeout

	src, dst, lines := dmp.DiffLinesToRunes(before, after)
	diffs := dmp.DiffMainRunes(src, dst, false)

	return dmp.DiffCharsToLines(dmp.DiffCleanupSemanticLossless(diffs), lines)
}

// WriteDiff writes a line diff with "+", "-" and " " prefixes. Added lines
// are green and removed lines red when colorize is set.
func WriteDiff(w io.Writer, before, after string, colorize bool) (DiffStats, error) {
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)

	if colorize {
		added.EnableColor()
		removed.EnableColor()
	} else {
		added.DisableColor()
		removed.DisableColor()
	}

	var stats DiffStats

	bw := bufio.NewWriter(w)

	for _, diff := range LineDiff(before, after) {
		for _, line := range splitLines(diff.Text) {
			switch diff.Type {
			case diffmatchpatch.DiffInsert:
				stats.Added++
				added.Fprintln(bw, "+"+line)
			case diffmatchpatch.DiffDelete:
				stats.Removed++
				removed.Fprintln(bw, "-"+line)
			case diffmatchpatch.DiffEqual:
				stats.Same++
				fmt.Fprintln(bw, " "+line)
			}
		}
	}

	err := bw.Flush()
	if err != nil {
		return stats, fmt.Errorf("write diff: %w", err)
	}

	return stats, nil
}

// splitLines splits text into lines without their terminators.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}

	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
