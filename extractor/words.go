package extractor

import (
	"errors"
	"io"
	"strings"

	"github.com/solvane/docia/coords"
	"github.com/solvane/docia/iamodel"
	"github.com/solvane/docia/ir/raw"
	"github.com/solvane/docia/scanner"
)

// FigureAsset is an image XObject placed on a page, positioned in PDF
// user-space via the CTM active at the Do invocation.
type FigureAsset struct {
	Page         int
	ResourceName string
	BBox         iamodel.BBox
	Data         []byte
	ColorSpace   string
}

// textGraphicsState tracks the matrices and text parameters the content
// stream operators mutate between BT/ET, mirroring the PDF imaging model
// (text space -> Tm -> CTM -> device space).
type textGraphicsState struct {
	ctm       coords.Matrix
	tm        coords.Matrix
	tlm       coords.Matrix
	fontName  string
	fontSize  float64
	charSp    float64
	wordSp    float64
	hscale    float64
	leading   float64
	rise      float64
}

func newTextGraphicsState(ctm coords.Matrix) textGraphicsState {
	return textGraphicsState{ctm: ctm, tm: coords.Identity(), tlm: coords.Identity(), hscale: 1}
}

// ExtractWords walks every page's content stream tracking the text and
// graphics matrices and emits positioned words plus image placements, the
// vector word extractor (§4.2).
func (e *Extractor) ExtractWords() (map[int][]iamodel.Word, map[int][]FigureAsset, error) {
	words := make(map[int][]iamodel.Word)
	figures := make(map[int][]FigureAsset)
	for idx, page := range e.pages {
		blobs := collectContentStreams(e.dec, valueFromDict(page, "Contents"))
		if len(blobs) == 0 {
			continue
		}
		fonts := e.fontDecodersForPage(page)
		widths := e.fontWidthsForPage(page)
		resDict := e.inheritedResources(page)
		var pageWords []iamodel.Word
		var pageFigures []FigureAsset
		for _, data := range blobs {
			w, f := e.walkContentStream(idx, data, fonts, widths, resDict)
			pageWords = append(pageWords, w...)
			pageFigures = append(pageFigures, f...)
		}
		if len(pageWords) > 0 {
			words[idx] = pageWords
		}
		if len(pageFigures) > 0 {
			figures[idx] = pageFigures
		}
	}
	return words, figures, nil
}

func (e *Extractor) walkContentStream(page int, data []byte, fonts map[string]*fontDecoder, widths map[string]*fontWidths, resources *raw.DictObj) ([]iamodel.Word, []FigureAsset) {
	tr := newTokenReader(data)
	if tr == nil {
		return nil, nil
	}
	var operands []raw.Object
	var stack []coords.Matrix
	gs := newTextGraphicsState(coords.Identity())
	var words []iamodel.Word
	var figures []FigureAsset

	for {
		tok, err := tr.next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				break
			}
			break
		}
		if tok.Type != scanner.TokenKeyword {
			tr.unread(tok)
			operand, err := parseObject(tr)
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				break
			}
			operands = append(operands, operand)
			continue
		}

		op, _ := tok.Value.(string)
		switch op {
		case "q":
			stack = append(stack, gs.ctm)
		case "Q":
			if n := len(stack); n > 0 {
				gs.ctm = stack[n-1]
				stack = stack[:n-1]
			}
		case "cm":
			if m, ok := matrixFromOperands(operands); ok {
				gs.ctm = m.Multiply(gs.ctm)
			}
		case "BT":
			gs.tm = coords.Identity()
			gs.tlm = coords.Identity()
		case "ET":
		case "Tf":
			if len(operands) >= 2 {
				if name, ok := nameFromObject(operands[len(operands)-2]); ok {
					gs.fontName = name
				}
				if size, ok := floatFromObject(operands[len(operands)-1]); ok {
					gs.fontSize = size
				}
			}
		case "Tc":
			if len(operands) >= 1 {
				gs.charSp, _ = floatFromObject(operands[len(operands)-1])
			}
		case "Tw":
			if len(operands) >= 1 {
				gs.wordSp, _ = floatFromObject(operands[len(operands)-1])
			}
		case "Tz":
			if len(operands) >= 1 {
				if v, ok := floatFromObject(operands[len(operands)-1]); ok {
					gs.hscale = v / 100
				}
			}
		case "TL":
			if len(operands) >= 1 {
				gs.leading, _ = floatFromObject(operands[len(operands)-1])
			}
		case "Ts":
			if len(operands) >= 1 {
				gs.rise, _ = floatFromObject(operands[len(operands)-1])
			}
		case "Td":
			if len(operands) >= 2 {
				tx, _ := floatFromObject(operands[len(operands)-2])
				ty, _ := floatFromObject(operands[len(operands)-1])
				gs.tlm = coords.Translate(tx, ty).Multiply(gs.tlm)
				gs.tm = gs.tlm
			}
		case "TD":
			if len(operands) >= 2 {
				tx, _ := floatFromObject(operands[len(operands)-2])
				ty, _ := floatFromObject(operands[len(operands)-1])
				gs.leading = -ty
				gs.tlm = coords.Translate(tx, ty).Multiply(gs.tlm)
				gs.tm = gs.tlm
			}
		case "Tm":
			if m, ok := matrixFromOperands(operands); ok {
				gs.tm = m
				gs.tlm = m
			}
		case "T*":
			gs.tlm = coords.Translate(0, -gs.leading).Multiply(gs.tlm)
			gs.tm = gs.tlm
		case "Tj":
			words = append(words, e.showText(page, operands, &gs, fonts, widths)...)
		case "'":
			gs.tlm = coords.Translate(0, -gs.leading).Multiply(gs.tlm)
			gs.tm = gs.tlm
			words = append(words, e.showText(page, operands, &gs, fonts, widths)...)
		case "\"":
			if len(operands) >= 2 {
				gs.wordSp, _ = floatFromObject(operands[len(operands)-3])
				gs.charSp, _ = floatFromObject(operands[len(operands)-2])
			}
			gs.tlm = coords.Translate(0, -gs.leading).Multiply(gs.tlm)
			gs.tm = gs.tlm
			words = append(words, e.showText(page, operands, &gs, fonts, widths)...)
		case "TJ":
			words = append(words, e.showTextArray(page, operands, &gs, fonts, widths)...)
		case "Do":
			if fig, ok := e.placeXObject(page, operands, gs.ctm, resources); ok {
				figures = append(figures, fig)
			}
		}
		operands = operands[:0]
	}
	return words, figures
}

func matrixFromOperands(operands []raw.Object) (coords.Matrix, bool) {
	if len(operands) < 6 {
		return coords.Matrix{}, false
	}
	vals := operands[len(operands)-6:]
	var m coords.Matrix
	for i, v := range vals {
		f, ok := floatFromObject(v)
		if !ok {
			return coords.Matrix{}, false
		}
		m[i] = f
	}
	return m, true
}

// showText handles a Tj-family operator: decode the string operand through
// the current font, split on whitespace runs, and place each word using the
// font's glyph widths to advance the text matrix (the PDF 32000-1 §9.4.3
// positioning model).
func (e *Extractor) showText(page int, operands []raw.Object, gs *textGraphicsState, fonts map[string]*fontDecoder, widths map[string]*fontWidths) []iamodel.Word {
	if len(operands) == 0 {
		return nil
	}
	data := bytesFromStringObject(operands[len(operands)-1])
	return e.layoutRun(page, data, gs, fonts, widths)
}

func (e *Extractor) showTextArray(page int, operands []raw.Object, gs *textGraphicsState, fonts map[string]*fontDecoder, widths map[string]*fontWidths) []iamodel.Word {
	if len(operands) == 0 {
		return nil
	}
	arr, _ := operands[len(operands)-1].(*raw.ArrayObj)
	if arr == nil {
		return nil
	}
	var out []iamodel.Word
	for _, item := range arr.Items {
		if adj, ok := floatFromObject(item); ok {
			dx := -adj / 1000 * gs.fontSize * gs.hscale
			gs.tm = coords.Translate(dx, 0).Multiply(gs.tm)
			continue
		}
		data := bytesFromStringObject(item)
		out = append(out, e.layoutRun(page, data, gs, fonts, widths)...)
	}
	return out
}

// layoutRun decodes a raw string operand into words, advancing gs.tm glyph
// by glyph and flushing a Word every time it crosses a whitespace boundary.
func (e *Extractor) layoutRun(page int, data []byte, gs *textGraphicsState, fonts map[string]*fontDecoder, widths map[string]*fontWidths) []iamodel.Word {
	if len(data) == 0 {
		return nil
	}
	decoder := fonts[gs.fontName]
	fw := widths[gs.fontName]
	text := decodeTextBytes(data, decoder)
	if text == "" {
		return nil
	}
	style := iamodel.InferStyle(gs.fontName, gs.fontSize, nil)

	var out []iamodel.Word
	var run strings.Builder
	var start coords.Point
	haveStart := false

	flush := func(end coords.Point) {
		if run.Len() == 0 {
			return
		}
		bbox := wordBBox(start, end, gs)
		out = append(out, iamodel.Word{Text: run.String(), BBox: bbox, Style: style, Source: iamodel.SourceVector})
		run.Reset()
		haveStart = false
	}

	runes := []rune(text)
	perRuneWidth := fw.averageEm()
	if gs.fontSize == 0 {
		gs.fontSize = 1
	}
	for _, r := range runes {
		pos := gs.tm.Transform(coords.Point{})
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			flush(pos)
			advance := (gs.wordSp + gs.charSp) * gs.hscale
			gs.tm = coords.Translate(advance, 0).Multiply(gs.tm)
			continue
		}
		if !haveStart {
			start = pos
			haveStart = true
		}
		w0 := fw.width(r, perRuneWidth)
		advance := (w0*gs.fontSize + gs.charSp) * gs.hscale
		gs.tm = coords.Translate(advance, 0).Multiply(gs.tm)
		run.WriteRune(r)
	}
	flush(gs.tm.Transform(coords.Point{}))
	return out
}

// wordBBox builds an axis-aligned box for a text run spanning start..end in
// text space, using fontSize as the approximate cap height for the vertical
// extent since glyph bounding boxes are not available without embedded
// font programs.
func wordBBox(start, end coords.Point, gs *textGraphicsState) iamodel.BBox {
	topLeft := gs.ctm.Transform(coords.Point{X: start.X, Y: start.Y + gs.fontSize*0.8 + gs.rise})
	bottomRight := gs.ctm.Transform(coords.Point{X: end.X, Y: end.Y + gs.rise - gs.fontSize*0.2})
	x0, x1 := topLeft.X, bottomRight.X
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	y0, y1 := topLeft.Y, bottomRight.Y
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return iamodel.BBox{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// placeXObject resolves a Do invocation's XObject resource; when it is an
// Image, the active CTM maps the unit square to the image's placed
// quadrilateral, which we bound axis-aligned.
func (e *Extractor) placeXObject(page int, operands []raw.Object, ctm coords.Matrix, resources *raw.DictObj) (FigureAsset, bool) {
	if len(operands) == 0 || resources == nil {
		return FigureAsset{}, false
	}
	name, ok := nameFromObject(operands[len(operands)-1])
	if !ok {
		return FigureAsset{}, false
	}
	xobjects := derefDict(e.raw, valueFromDict(resources, "XObject"))
	if xobjects == nil {
		return FigureAsset{}, false
	}
	obj, ok := xobjects.KV[name]
	if !ok {
		return FigureAsset{}, false
	}
	data, dict, ok := streamData(e.dec, obj)
	if !ok || dict == nil {
		return FigureAsset{}, false
	}
	if subtype, _ := nameFromDict(dict, "Subtype"); subtype != "Image" {
		return FigureAsset{}, false
	}
	colorSpace, _ := nameFromDict(dict, "ColorSpace")
	corners := [4]coords.Point{
		ctm.Transform(coords.Point{X: 0, Y: 0}),
		ctm.Transform(coords.Point{X: 1, Y: 0}),
		ctm.Transform(coords.Point{X: 1, Y: 1}),
		ctm.Transform(coords.Point{X: 0, Y: 1}),
	}
	bbox := boundingBoxOf(corners[:])
	return FigureAsset{
		Page:         page,
		ResourceName: name,
		BBox:         bbox,
		Data:         data,
		ColorSpace:   colorSpace,
	}, true
}

func boundingBoxOf(pts []coords.Point) iamodel.BBox {
	if len(pts) == 0 {
		return iamodel.BBox{}
	}
	b := iamodel.BBox{X0: pts[0].X, Y0: pts[0].Y, X1: pts[0].X, Y1: pts[0].Y}
	for _, p := range pts[1:] {
		if p.X < b.X0 {
			b.X0 = p.X
		}
		if p.X > b.X1 {
			b.X1 = p.X
		}
		if p.Y < b.Y0 {
			b.Y0 = p.Y
		}
		if p.Y > b.Y1 {
			b.Y1 = p.Y
		}
	}
	return b
}

// fontWidths holds a font's /Widths array keyed by character code, used to
// advance the text matrix accurately instead of assuming monospace glyphs.
type fontWidths struct {
	firstChar int
	widths    []float64
	missing   float64
}

func (fw *fontWidths) width(r rune, fallback float64) float64 {
	if fw == nil {
		return fallback
	}
	idx := int(r) - fw.firstChar
	if idx >= 0 && idx < len(fw.widths) {
		return fw.widths[idx] / 1000
	}
	if fw.missing > 0 {
		return fw.missing / 1000
	}
	return fallback
}

func (fw *fontWidths) averageEm() float64 {
	if fw == nil || len(fw.widths) == 0 {
		return 0.5
	}
	var sum float64
	for _, w := range fw.widths {
		sum += w
	}
	return (sum / float64(len(fw.widths))) / 1000
}

// inheritedResources resolves a page's /Resources, walking up the /Pages
// tree via /Parent when the page dictionary itself doesn't carry one
// directly, per the PDF inheritance rules for page attributes.
func (e *Extractor) inheritedResources(page *raw.DictObj) *raw.DictObj {
	seen := make(map[*raw.DictObj]bool)
	node := page
	for node != nil && !seen[node] {
		seen[node] = true
		if res := derefDict(e.raw, valueFromDict(node, "Resources")); res != nil {
			return res
		}
		node = derefDict(e.raw, valueFromDict(node, "Parent"))
	}
	return nil
}

func (e *Extractor) fontWidthsForPage(page *raw.DictObj) map[string]*fontWidths {
	resources := e.inheritedResources(page)
	if resources == nil {
		return nil
	}
	fontsDict := derefDict(e.raw, valueFromDict(resources, "Font"))
	if fontsDict == nil {
		return nil
	}
	out := make(map[string]*fontWidths)
	for name, fontObj := range fontsDict.KV {
		dict := derefDict(e.raw, fontObj)
		if dict == nil {
			continue
		}
		fw := &fontWidths{firstChar: 0}
		if fc, ok := intFromObject(valueFromDict(dict, "FirstChar")); ok {
			fw.firstChar = fc
		}
		if arr := derefArray(e.raw, valueFromDict(dict, "Widths")); arr != nil {
			fw.widths = extractFloatArray(arr)
		}
		if descriptor := derefDict(e.raw, valueFromDict(dict, "FontDescriptor")); descriptor != nil {
			if mw, ok := floatFromObject(valueFromDict(descriptor, "MissingWidth")); ok {
				fw.missing = mw
			}
		}
		out[name] = fw
	}
	return out
}
