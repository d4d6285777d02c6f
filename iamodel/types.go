// Package iamodel defines the page-level data model produced by the IA
// extraction pipeline: words, lines, sentences, blocks and the document
// export they roll up into.
package iamodel

import "strings"

// BBox is an axis-aligned bounding box in PDF user-space units, origin
// top-left, y growing downward.
type BBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Array returns the bbox as [x0,y0,x1,y1], matching the JSON wire shape
// documented for downstream consumers.
func (b BBox) Array() [4]float64 { return [4]float64{b.X0, b.Y0, b.X1, b.Y1} }

// Empty reports whether the box has non-positive area.
func (b BBox) Empty() bool { return b.X1 <= b.X0 || b.Y1 <= b.Y0 }

// Union returns the smallest box covering both b and o.
func (b BBox) Union(o BBox) BBox {
	if b.Empty() {
		return o
	}
	if o.Empty() {
		return b
	}
	return BBox{
		X0: minF(b.X0, o.X0),
		Y0: minF(b.Y0, o.Y0),
		X1: maxF(b.X1, o.X1),
		Y1: maxF(b.Y1, o.Y1),
	}
}

// Contains reports whether o's upper-left corner lies within b and o's right
// edge does not exceed b's right edge, the containment test specified for
// block/word membership (§4.9): point-in-rect on (x0,y0), x1 <= block.x1.
func (b BBox) Contains(o BBox) bool {
	return o.X0 >= b.X0 && o.X0 <= b.X1 &&
		o.Y0 >= b.Y0 && o.Y0 <= b.Y1 &&
		o.X1 <= b.X1
}

// IoU computes the intersection-over-union of two boxes, used for robust
// hyperlink-to-sentence attachment (spec Open Question c).
func (b BBox) IoU(o BBox) float64 {
	ix0, iy0 := maxF(b.X0, o.X0), maxF(b.Y0, o.Y0)
	ix1, iy1 := minF(b.X1, o.X1), minF(b.Y1, o.Y1)
	if ix1 <= ix0 || iy1 <= iy0 {
		return 0
	}
	inter := (ix1 - ix0) * (iy1 - iy0)
	areaB := (b.X1 - b.X0) * (b.Y1 - b.Y0)
	areaO := (o.X1 - o.X0) * (o.Y1 - o.Y0)
	union := areaB + areaO - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Source identifies which analyser produced a Word.
type Source string

const (
	SourceVector Source = "pdf"
	SourceOCR    Source = "ocr"
)

// Style carries font attributes for a Word. Fields are only meaningfully
// populated when Source is vector; OCR words carry a zero Style.
type Style struct {
	FontName      string  `json:"font_name"`
	FontSize      float64 `json:"font_size"`
	Bold          bool    `json:"bold"`
	Italic        bool    `json:"italic"`
	Underline     bool    `json:"underline"`
	Strike        bool    `json:"strike"`
	Superscript   bool    `json:"superscript"`
	Subscript     bool    `json:"subscript"`
	Color         []float64 `json:"color,omitempty"`
	BackgroundColor []float64 `json:"background_color,omitempty"`
}

// InferStyle derives bold/italic/underline/strike/super/subscript from a
// PDF font resource name, per spec §4.2.
func InferStyle(fontName string, fontSize float64, color []float64) Style {
	lower := strings.ToLower(fontName)
	return Style{
		FontName:    fontName,
		FontSize:    fontSize,
		Bold:        strings.Contains(lower, "bold"),
		Italic:      strings.Contains(lower, "italic") || strings.Contains(lower, "oblique"),
		Underline:   strings.Contains(lower, "underline"),
		Strike:      strings.Contains(lower, "strike"),
		Superscript: strings.Contains(lower, "super"),
		Subscript:   strings.Contains(lower, "sub"),
		Color:       color,
	}
}

// Word is a single positioned token produced by a vector or OCR extractor.
type Word struct {
	Text   string `json:"text"`
	BBox   BBox   `json:"bbox"`
	Style  Style  `json:"style"`
	Source Source `json:"source"`
}

// Line is a baseline-clustered group of words (§4.5).
type Line struct {
	Text  string `json:"text"`
	BBox  BBox   `json:"bbox"`
	Words []Word `json:"words"`
}

// Hyperlink is a URI annotation attached to a sentence or block.
type Hyperlink struct {
	URI  string `json:"uri"`
	BBox BBox   `json:"bbox"`
}

// Sentence is a linguistic sentence within a block, possibly spanning
// several visual lines (§4.8).
type Sentence struct {
	Phrase          string      `json:"phrase"`
	BBoxes          []BBox      `json:"bboxes"`
	Words           []Word      `json:"words"`
	Style           Style       `json:"style"`
	Links           []Hyperlink `json:"links"`
	IsFormula       bool        `json:"is_formula"`
	IsSigle         bool        `json:"is_sigle"`
	NonTranslatable bool        `json:"non_translatable"`
	MathML          string      `json:"mathml,omitempty"`
}

// ListMeta records detected list bullet/numbering metadata for List blocks.
type ListMeta struct {
	ListType string `json:"list_type,omitempty"`
	Level    int    `json:"level"`
	Char     string `json:"char,omitempty"`
}

// FormulaData records formula detection results for a block.
type FormulaData struct {
	IsFormula  bool   `json:"is_formula"`
	Latex      string `json:"latex,omitempty"`
	ImgPath    string `json:"img_path,omitempty"`
	MathMLPath string `json:"mathml_path,omitempty"`
}

// BlockType enumerates the region types a layout segmenter can propose.
type BlockType string

const (
	BlockText   BlockType = "Text"
	BlockTitle  BlockType = "Title"
	BlockList   BlockType = "List"
	BlockTable  BlockType = "Table"
	BlockFigure BlockType = "Figure"
)

// Alignment enumerates the detected text alignment within a block.
type Alignment string

const (
	AlignLeft    Alignment = "left"
	AlignRight   Alignment = "right"
	AlignCenter  Alignment = "center"
	AlignJustify Alignment = "justify"
	AlignUnknown Alignment = "unknown"
)

// Block is a typed rectangular region with its fused content (§4.9).
type Block struct {
	ID              int         `json:"id"`
	Type            BlockType   `json:"type"`
	BBox            BBox        `json:"bbox"`
	Score           float64     `json:"score"`
	OCRText         string      `json:"ocr_text"`
	Sentences       []string    `json:"sentences"`
	Style           Style       `json:"style"`
	Alignment       Alignment   `json:"alignment"`
	ListMeta        ListMeta    `json:"list_meta"`
	FormulaData     FormulaData `json:"formula_data,omitempty"`
	Sigle           bool        `json:"sigle"`
	Content         []Sentence  `json:"content"`
	Hyperlinks      []Hyperlink `json:"hyperlinks"`
	NonTranslatable bool        `json:"non_translatable"`
	Figure          *FigureRef  `json:"figure,omitempty"`
	Table           *Table      `json:"table,omitempty"`
}

// Table is an emitted table detection result (§4.6).
type Table struct {
	CSVPath  string     `json:"csv_path,omitempty"`
	HTMLPath string     `json:"html_path,omitempty"`
	Rows     [][]string `json:"rows"`
	BBox     BBox       `json:"bbox"`
}

// FigureRef is an embedded or cropped raster image referenced by a page.
type FigureRef struct {
	BBox      BBox   `json:"bbox"`
	ImagePath string `json:"image_path"`
}

// PageModel is the per-page output of the pipeline (§3, §6).
type PageModel struct {
	PageNum         int        `json:"page_num"`
	Width           float64    `json:"width"`
	Height          float64    `json:"height"`
	Label           string     `json:"label,omitempty"`
	Blocks          []Block    `json:"blocks"`
	LinesExtracted  []Line     `json:"lines_extracted"`
	LogicalStructure []string  `json:"logical_structure"`
}

// DocumentExport is the whole-document accumulation of PageModels (§3).
type DocumentExport struct {
	Pages []PageModel `json:"pages"`
}
