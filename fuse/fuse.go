// Package fuse deduplicates the word streams produced by the vector and OCR
// extractors into a single per-page word list.
package fuse

import (
	"fmt"

	"github.com/solvane/docia/iamodel"
)

// Words merges vector and OCR word lists, dropping OCR words that exactly
// duplicate a vector word's (text, bbox) pair. Vector words are kept in
// their original order and always precede surviving OCR words, so that
// downstream stages see a stable, vector-first ordering (spec §4.4).
func Words(vector, ocrWords []iamodel.Word) []iamodel.Word {
	seen := make(map[string]struct{}, len(vector))
	for _, w := range vector {
		seen[dedupKey(w)] = struct{}{}
	}
	out := make([]iamodel.Word, 0, len(vector)+len(ocrWords))
	out = append(out, vector...)
	for _, w := range ocrWords {
		key := dedupKey(w)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, w)
	}
	return out
}

func dedupKey(w iamodel.Word) string {
	b := w.BBox
	return fmt.Sprintf("%s|%v|%v|%v|%v", w.Text, b.X0, b.Y0, b.X1, b.Y1)
}
