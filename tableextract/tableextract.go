// Package tableextract detects tabular regions from a word stream using
// whitespace geometry rather than ruling lines ("stream" flavour table
// detection, spec §4.6), and persists detections to CSV and HTML.
//
// No pack dependency offers stream-flavour table detection for Go (the
// ecosystem table libraries found in the examples, e.g. tsawler/tabula,
// operate on already-rendered ruling lines or existing table models); this
// package is deliberately built on the standard library (sort, encoding/csv)
// plus golang.org/x/net/html for the HTML serialization, matching the
// teacher's own use of x/net/html in layout/html.go.
package tableextract

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/solvane/docia/iamodel"
	"github.com/solvane/docia/lines"
)

// minRows is the smallest row count treated as a candidate table: fewer
// aligned rows are just regular prose that happens to share a left margin.
const minRows = 3

// columnGap is the minimum horizontal whitespace, in user-space units,
// between two words on the same row before they are considered separate
// columns rather than a single wrapped phrase.
const columnGap = 10.0

// Detect groups a block's words into rows by baseline, then splits each row
// into cells wherever a horizontal gap of at least columnGap separates two
// words, and keeps the result only when at least minRows rows share the
// same cell count (a consistent column structure).
func Detect(words []iamodel.Word, blockBBox iamodel.BBox) *iamodel.Table {
	rows := lines.Cluster(wordsIn(blockBBox, words), 5.0)
	if len(rows) < minRows {
		return nil
	}

	type candidateRow struct {
		cells []string
		bbox  iamodel.BBox
	}
	var rowsByCellCount = make(map[int][]candidateRow)
	for _, row := range rows {
		cells := splitIntoCells(row.Words)
		rowsByCellCount[len(cells)] = append(rowsByCellCount[len(cells)], candidateRow{cells: cells, bbox: row.BBox})
	}

	bestCount, bestRows := 0, 0
	for count, group := range rowsByCellCount {
		if count < 2 {
			continue
		}
		if len(group) > bestRows {
			bestCount, bestRows = count, len(group)
		}
	}
	if bestRows < minRows {
		return nil
	}

	group := rowsByCellCount[bestCount]
	tableRows := make([][]string, 0, len(group))
	var bbox iamodel.BBox
	for i, r := range group {
		tableRows = append(tableRows, r.cells)
		if i == 0 {
			bbox = r.bbox
		} else {
			bbox = bbox.Union(r.bbox)
		}
	}
	return &iamodel.Table{Rows: tableRows, BBox: bbox}
}

// wordsIn returns the words whose top-left corner lies within bbox and whose
// right edge does not extend past bbox's right edge (iamodel.BBox.Contains),
// the same containment test the block fuser uses to assign words to a block.
func wordsIn(bbox iamodel.BBox, words []iamodel.Word) []iamodel.Word {
	var out []iamodel.Word
	for _, w := range words {
		if bbox.Contains(w.BBox) {
			out = append(out, w)
		}
	}
	return out
}

// splitIntoCells breaks a baseline-clustered row of words into cells at
// horizontal gaps of at least columnGap between consecutive words.
func splitIntoCells(words []iamodel.Word) []string {
	sorted := make([]iamodel.Word, len(words))
	copy(sorted, words)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].BBox.X0 < sorted[j].BBox.X0 })

	var cells []string
	var current []string
	lastX1 := 0.0
	for i, w := range sorted {
		if i > 0 && w.BBox.X0-lastX1 >= columnGap {
			cells = append(cells, joinWords(current))
			current = current[:0]
		}
		current = append(current, w.Text)
		lastX1 = w.BBox.X1
	}
	if len(current) > 0 {
		cells = append(cells, joinWords(current))
	}
	return cells
}

func joinWords(words []string) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += " "
		}
		out += w
	}
	return out
}

// WriteCSV persists a table's rows to a CSV file under dir/tables and
// returns the path.
func WriteCSV(t *iamodel.Table, dir string, name string) (string, error) {
	tablesDir := filepath.Join(dir, "tables")
	if err := os.MkdirAll(tablesDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(tablesDir, name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, nil
}

// WriteHTML renders a table as an HTML <table> element and persists it
// under dir/htmltables, returning the path.
func WriteHTML(t *iamodel.Table, dir string, name string) (string, error) {
	htmlDir := filepath.Join(dir, "htmltables")
	if err := os.MkdirAll(htmlDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(htmlDir, name+".html")
	table := &html.Node{Type: html.ElementNode, Data: "table", DataAtom: atom.Table}
	for _, row := range t.Rows {
		tr := &html.Node{Type: html.ElementNode, Data: "tr", DataAtom: atom.Tr}
		for _, cell := range row {
			td := &html.Node{Type: html.ElementNode, Data: "td", DataAtom: atom.Td}
			td.AppendChild(&html.Node{Type: html.TextNode, Data: cell})
			tr.AppendChild(td)
		}
		table.AppendChild(tr)
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, table); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
