// Package sentence implements the ultra-fine sentence segmenter (spec
// §4.8): it splits a block's concatenated word stream into linguistic
// sentences, realigns each sentence back onto the words that produced it,
// and re-clusters those words into visual lines.
package sentence

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/sentences"

	"github.com/solvane/docia/iamodel"
	"github.com/solvane/docia/lines"
)

// sentenceLineThreshold re-clusters a sentence's words into visual lines at
// a tighter tolerance than the page-level line clusterer, since a sentence
// is already confined to a single block (spec §4.8).
const sentenceLineThreshold = 2.5

// Split segments a block's words into sentences. Words are assumed already
// in reading order (top-to-bottom, left-to-right within a line); the
// concatenated text (words joined by single spaces) is run through a
// sentence boundary segmenter, and each resulting sentence's words are
// recovered by longest-common-prefix alignment against the running word
// offsets (Open Question (a): plain string equality is too strict once
// Unicode normalisation or whitespace collapsing shifts offsets by a
// character or two).
func Split(words []iamodel.Word) []iamodel.Sentence {
	if len(words) == 0 {
		return nil
	}
	offsets := wordOffsets(words)

	var out []iamodel.Sentence
	segmenter := sentences.FromString(joinedText(words))
	for segmenter.Next() {
		sentenceText := strings.TrimSpace(segmenter.Value())
		if sentenceText == "" {
			continue
		}
		matched := alignWords(sentenceText, offsets)
		if len(matched) == 0 {
			continue
		}
		out = append(out, buildSentence(sentenceText, matched))
	}
	return out
}

func joinedText(words []iamodel.Word) string {
	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Text
	}
	return strings.Join(texts, " ")
}

type wordOffset struct {
	start, end int
	word       iamodel.Word
}

func wordOffsets(words []iamodel.Word) []wordOffset {
	out := make([]wordOffset, len(words))
	running := 0
	for i, w := range words {
		if i > 0 {
			running++ // the joining space
		}
		start := running
		running += len(w.Text)
		out[i] = wordOffset{start: start, end: running, word: w}
	}
	return out
}

// alignWords walks offsets in order, consuming a prefix of sentenceText for
// each word whose text is the longest available match at the current
// cursor. A word is kept only when its whole text is a prefix of the
// remaining sentence text, after which one following space is skipped. A
// word whose characters differ from the sentence text is not matched: it is
// skipped while nothing has matched yet, and otherwise ends the walk.
func alignWords(sentenceText string, offsets []wordOffset) []iamodel.Word {
	var matched []iamodel.Word
	cursor := 0
	for _, off := range offsets {
		if cursor >= len(sentenceText) {
			break
		}
		remaining := sentenceText[cursor:]
		prefixLen := longestCommonPrefix(remaining, off.word.Text)
		if prefixLen < len(off.word.Text) {
			if len(matched) == 0 {
				continue
			}
			break
		}
		matched = append(matched, off.word)
		cursor += prefixLen
		if cursor < len(sentenceText) && sentenceText[cursor] == ' ' {
			cursor++
		}
	}
	return matched
}

func longestCommonPrefix(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func buildSentence(phrase string, words []iamodel.Word) iamodel.Sentence {
	lineGroups := lines.Cluster(words, sentenceLineThreshold)
	bboxes := make([]iamodel.BBox, len(lineGroups))
	for i, l := range lineGroups {
		bboxes[i] = l.BBox
	}
	var style iamodel.Style
	if len(words) > 0 {
		style = words[0].Style
	}
	return iamodel.Sentence{
		Phrase: phrase,
		BBoxes: bboxes,
		Words:  words,
		Style:  style,
	}
}
