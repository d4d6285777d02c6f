// Package lines implements bottom-up baseline clustering of words into
// visual text lines, reused at the page level and inside sentence
// re-clustering with different y-thresholds (spec §4.5, §4.8).
package lines

import (
	"sort"
	"strings"

	"github.com/solvane/docia/iamodel"
)

// Cluster groups words into lines by baseline proximity. Words are sorted
// by top edge then left edge; a word joins the line currently being built
// when its top edge lies within yThreshold of the previous word's top edge,
// otherwise it starts a new line. Each returned Line's BBox is the union of
// its words' boxes and its Text is the words joined by single spaces.
func Cluster(words []iamodel.Word, yThreshold float64) []iamodel.Line {
	if len(words) == 0 {
		return nil
	}
	sorted := make([]iamodel.Word, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].BBox.Y0 != sorted[j].BBox.Y0 {
			return sorted[i].BBox.Y0 < sorted[j].BBox.Y0
		}
		return sorted[i].BBox.X0 < sorted[j].BBox.X0
	})

	var lines [][]iamodel.Word
	var current []iamodel.Word
	lastY := 0.0
	haveLastY := false
	for _, w := range sorted {
		y := w.BBox.Y0
		if !haveLastY || absDiff(y, lastY) < yThreshold {
			current = append(current, w)
		} else {
			if len(current) > 0 {
				lines = append(lines, current)
			}
			current = []iamodel.Word{w}
		}
		lastY = y
		haveLastY = true
	}
	if len(current) > 0 {
		lines = append(lines, current)
	}

	out := make([]iamodel.Line, 0, len(lines))
	for _, words := range lines {
		var bbox iamodel.BBox
		texts := make([]string, 0, len(words))
		for i, w := range words {
			if i == 0 {
				bbox = w.BBox
			} else {
				bbox = bbox.Union(w.BBox)
			}
			texts = append(texts, w.Text)
		}
		out = append(out, iamodel.Line{
			Text:  strings.Join(texts, " "),
			BBox:  bbox,
			Words: words,
		})
	}
	return out
}

func absDiff(a, b float64) float64 {
	if a < b {
		return b - a
	}
	return a - b
}
