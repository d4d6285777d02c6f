// Package blockfuse implements the block fuser (spec §4.9): it assigns
// words to segmented blocks, splits each block's words into sentences,
// detects alignment, list metadata, formulas, sigles, and attaches
// hyperlinks, producing the final per-block content that downstream
// translation consumes.
package blockfuse

import (
	"bytes"
	"fmt"
	"image"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"github.com/solvane/docia/iamodel"
	"github.com/solvane/docia/sentence"
)

// alignmentTolerance is the maximum deviation, in user-space units, between
// a word's margin and the block's margin before the margin is considered
// unaligned (spec §4.9, the same value as the block-merge tolerance).
const alignmentTolerance = 15.0

// linkIoUThreshold is the minimum intersection-over-union between a
// hyperlink annotation's rect and a sentence line bbox for the link to be
// attached to that sentence (Open Question (c)).
const linkIoUThreshold = 0.5

var (
	bulletPattern   = regexp.MustCompile(`^([\x{2022}\-\*\x{2027}\x{00B7}\x{2023}\x{2013}\x{2014}\x{25CF}\x{25CB}\x{25A1}\x{25A0}\x{2794}\x{25B6}\x{25BA}])\s+`)
	numberedPattern = regexp.MustCompile(`^([0-9]+\.|[a-zA-Z]\.)\s+`)
)

// defaultSigles is the built-in acronym/initialism set used when the
// caller's configuration doesn't override it (spec §4.9).
var defaultSigles = map[string]struct{}{
	"ONU": {}, "OMS": {}, "UNESCO": {}, "CNAM": {}, "WHO": {},
	"AI": {}, "USA": {}, "EU": {}, "ETC": {},
}

// Options configures sigle detection and the OCR fallback used to fill
// text for word-less blocks.
type Options struct {
	Sigles    map[string]struct{}
	OCRText   func(block iamodel.BBox) (string, error)
	PageImage image.Image
	OutDir    string
	PageNum   int
}

// Fuse assigns words and hyperlinks to a segmented block and builds its
// final Content, OCRText, Alignment, ListMeta, FormulaData, Sigle and
// NonTranslatable fields.
func Fuse(block iamodel.Block, words []iamodel.Word, hyperlinks []iamodel.Hyperlink, opts Options) iamodel.Block {
	blockWords := wordsIn(block.BBox, words)

	if len(blockWords) > 0 {
		sentences := sentence.Split(blockWords)
		content := make([]iamodel.Sentence, 0, len(sentences))
		texts := make([]string, 0, len(sentences))
		for _, s := range sentences {
			s.Links = attachLinks(s.BBoxes, hyperlinks)
			s.IsFormula = isFormulaZone(s.Phrase)
			s.IsSigle = isSigle(s.Phrase, opts.Sigles)
			s.NonTranslatable = s.IsFormula || s.IsSigle
			if s.IsFormula {
				s.MathML = formulaMathML(s.Phrase)
			}
			content = append(content, s)
			texts = append(texts, s.Phrase)
		}
		block.Content = content
		block.Sentences = texts
		block.OCRText = strings.TrimSpace(strings.Join(texts, " "))
		if len(content) > 0 {
			block.Style = content[0].Style
		}
		block.Alignment = detectAlignment(blockWords, block.BBox)
		for _, s := range content {
			block.Hyperlinks = append(block.Hyperlinks, s.Links...)
		}
	} else if block.Type == iamodel.BlockText || block.Type == iamodel.BlockTitle || block.Type == iamodel.BlockList {
		block.OCRText = ocrFallback(block.BBox, opts.OCRText)
		block.Alignment = iamodel.AlignUnknown
		if block.OCRText != "" {
			block.Sentences = []string{block.OCRText}
			block.Content = []iamodel.Sentence{{
				Phrase:          block.OCRText,
				BBoxes:          []iamodel.BBox{block.BBox},
				IsFormula:       isFormulaZone(block.OCRText),
				IsSigle:         isSigle(block.OCRText, opts.Sigles),
				NonTranslatable: isSigle(block.OCRText, opts.Sigles) || isFormulaZone(block.OCRText),
			}}
		}
	}

	if block.Type == iamodel.BlockList {
		block.ListMeta = detectListType(block.OCRText)
	}

	block.Sigle = isSigle(block.OCRText, opts.Sigles)
	if isFormulaZone(block.OCRText) {
		block.FormulaData = iamodel.FormulaData{
			IsFormula: true,
			Latex:     formulaLatex(block.OCRText),
		}
		if opts.PageImage != nil && opts.OutDir != "" {
			if imgPath, mathmlPath, err := PersistFormula(opts.PageImage, block, opts.OutDir, opts.PageNum); err == nil {
				block.FormulaData.ImgPath = imgPath
				block.FormulaData.MathMLPath = mathmlPath
			}
		}
	}
	block.NonTranslatable = block.Sigle || block.FormulaData.IsFormula

	return block
}

// wordsIn returns the words whose top-left corner lies within bbox and whose
// right edge does not extend past bbox's right edge.
func wordsIn(bbox iamodel.BBox, words []iamodel.Word) []iamodel.Word {
	var out []iamodel.Word
	for _, w := range words {
		if bbox.Contains(w.BBox) {
			out = append(out, w)
		}
	}
	return out
}

func ocrFallback(bbox iamodel.BBox, ocrText func(iamodel.BBox) (string, error)) string {
	if ocrText == nil {
		return ""
	}
	text, err := ocrText(bbox)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// detectAlignment classifies a block's horizontal text alignment from its
// words' left/right margins relative to the block's own bbox (spec §4.9).
func detectAlignment(words []iamodel.Word, blockBBox iamodel.BBox) iamodel.Alignment {
	if len(words) == 0 {
		return iamodel.AlignUnknown
	}
	leftAligned, rightAligned := true, true
	for _, w := range words {
		if absDiff(w.BBox.X0, blockBBox.X0) >= alignmentTolerance {
			leftAligned = false
		}
		if absDiff(w.BBox.X1, blockBBox.X1) >= alignmentTolerance {
			rightAligned = false
		}
	}
	switch {
	case leftAligned && rightAligned:
		return iamodel.AlignJustify
	case leftAligned:
		return iamodel.AlignLeft
	case rightAligned:
		return iamodel.AlignRight
	default:
		return iamodel.AlignCenter
	}
}

func absDiff(a, b float64) float64 {
	if a < b {
		return b - a
	}
	return a - b
}

// detectListType recognises a bullet or numbered-list prefix on a block's
// leading text.
func detectListType(text string) iamodel.ListMeta {
	if m := bulletPattern.FindStringSubmatch(text); m != nil {
		return iamodel.ListMeta{ListType: "bullet", Level: 1, Char: m[1]}
	}
	if m := numberedPattern.FindStringSubmatch(text); m != nil {
		return iamodel.ListMeta{ListType: "numbered", Level: 1, Char: m[1]}
	}
	return iamodel.ListMeta{}
}

// formulaTokens are substrings whose presence strongly suggests a
// mathematical expression rather than prose.
var formulaTokens = []string{
	"=", "+", "-", "∑", "∫", "lim", "sin", "cos", "tan", "√", "^", "_", "{", "}",
}

var formulaCharPattern = regexp.MustCompile(`^[\d\s+\-*/^=(){}\[\]\\.,;:<>\x{221A}\x{03B1}-\x{03C9}\x{0391}-\x{03A9}\x{2211}\x{222B}\x{221E}\x{2248}\x{2260}\x{00B1}\x{00D7}\x{00F7}\x{00B0}\x{00B5}\x{20AC}\x{00A7}%\x{2192}\x{2190}\x{2194}\x{0394}\x{03A3}\x{03BB}\x{03C0}\x{03C1}\x{03B8}\x{03A9}]+$`)

// isFormulaZone reports whether text looks like a mathematical formula:
// either it contains a recognisable operator/function token, or the entire
// string is made up of digits, operators and Greek/math symbols.
func isFormulaZone(text string) bool {
	for _, tok := range formulaTokens {
		if strings.Contains(text, tok) {
			return true
		}
	}
	return formulaCharPattern.MatchString(strings.TrimSpace(text))
}

func formulaLatex(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return fmt.Sprintf("$%s$", text)
}

// formulaMathML renders text as a flat MathML <mrow> of per-rune <mi>
// elements. This is a deliberately simple reading of a formula zone (no
// attempt to recover fraction/superscript structure from plain text); it
// gives downstream MathML consumers something parseable rather than
// nothing, matching what the formula-zone detector in the original
// implementation produced.
func formulaMathML(text string) string {
	math := &html.Node{Type: html.ElementNode, Data: "math"}
	math.Attr = []html.Attribute{{Key: "xmlns", Val: "http://www.w3.org/1998/Math/MathML"}}
	mrow := &html.Node{Type: html.ElementNode, Data: "mrow"}
	math.AppendChild(mrow)
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		mi := &html.Node{Type: html.ElementNode, Data: "mi"}
		mi.AppendChild(&html.Node{Type: html.TextNode, Data: string(r)})
		mrow.AppendChild(mi)
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, math); err != nil {
		return ""
	}
	return buf.String()
}

// isSigle reports whether text, trimmed and upper-cased, matches a known
// acronym/initialism.
func isSigle(text string, sigles map[string]struct{}) bool {
	if sigles == nil {
		sigles = defaultSigles
	}
	key := strings.ToUpper(strings.TrimSpace(text))
	_, ok := sigles[key]
	return ok
}

// attachLinks keeps the hyperlinks whose rect overlaps any of a sentence's
// line boxes by at least linkIoUThreshold IoU.
func attachLinks(sentenceBBoxes []iamodel.BBox, hyperlinks []iamodel.Hyperlink) []iamodel.Hyperlink {
	var out []iamodel.Hyperlink
	for _, link := range hyperlinks {
		for _, b := range sentenceBBoxes {
			if b.IoU(link.BBox) >= linkIoUThreshold {
				out = append(out, link)
				break
			}
		}
	}
	return out
}
