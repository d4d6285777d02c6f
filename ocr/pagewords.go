package ocr

import "github.com/solvane/docia/iamodel"

// PageScale describes how to map a rasterised page bitmap's pixel space
// back onto PDF user-space units: the bitmap was rendered at DPI dots per
// inch, and PDF user space is always 72 units per inch.
type PageScale struct {
	DPI int
}

// Factor returns the pixel -> user-unit multiplier for this scale.
func (s PageScale) Factor() float64 {
	if s.DPI <= 0 {
		return 1
	}
	return 72.0 / float64(s.DPI)
}

// PageWords flattens a Result's block/line/word tree into iamodel.Words in
// PDF user-space units, the OCR Word Extractor (spec §4.3). Region bounds
// are pixel-space top-left-origin rectangles, the same orientation as
// iamodel.BBox, so only a uniform scale is needed (Open Question (b)).
func PageWords(result Result, scale PageScale) []iamodel.Word {
	factor := scale.Factor()
	var words []iamodel.Word
	for _, block := range result.Blocks {
		for _, line := range block.Lines {
			for _, w := range line.Words {
				if w.Text == "" {
					continue
				}
				words = append(words, iamodel.Word{
					Text:   w.Text,
					BBox:   scaleRegion(w.Bounds, factor),
					Source: iamodel.SourceOCR,
				})
			}
		}
	}
	return words
}

func scaleRegion(r Region, factor float64) iamodel.BBox {
	return iamodel.BBox{
		X0: r.X * factor,
		Y0: r.Y * factor,
		X1: (r.X + r.Width) * factor,
		Y1: (r.Y + r.Height) * factor,
	}
}
