// Package export implements the exporter (spec §4.10): it persists each
// page as soon as it finishes fusion, and at the end of the run writes the
// whole-document JSON, a gob binary snapshot, and a flattened
// lines_extracted CSV/TXT.
package export

import (
	"encoding/csv"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/solvane/docia/iamodel"
)

// Exporter writes per-page and whole-document artifacts under a base output
// directory, following the layout documented in spec §6.
type Exporter struct {
	jsonDir   string
	exportDir string
}

// New creates an Exporter rooted at outDir, creating the json/ and export/
// subdirectories it writes into.
func New(outDir string) (*Exporter, error) {
	jsonDir := filepath.Join(outDir, "json")
	exportDir := filepath.Join(outDir, "export")
	for _, dir := range []string{jsonDir, exportDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create export dir %s: %w", dir, err)
		}
	}
	return &Exporter{jsonDir: jsonDir, exportDir: exportDir}, nil
}

// WritePage persists one page's model to json/page_<N>.json immediately
// after fusion, so partial runs still leave completed pages on disk.
func (e *Exporter) WritePage(page iamodel.PageModel) error {
	path := filepath.Join(e.jsonDir, fmt.Sprintf("page_%d.json", page.PageNum))
	data, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal page %d: %w", page.PageNum, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write page %d json: %w", page.PageNum, err)
	}
	return nil
}

// WriteDocument writes the whole-document JSON and a gob binary snapshot
// to <export>/<baseName>.json and <export>/<baseName>.bin.
func (e *Exporter) WriteDocument(doc iamodel.DocumentExport, baseName string) (jsonPath, binPath string, err error) {
	jsonPath = filepath.Join(e.exportDir, baseName+".json")
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("marshal document: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write document json: %w", err)
	}

	binPath = filepath.Join(e.exportDir, baseName+".bin")
	f, err := os.Create(binPath)
	if err != nil {
		return jsonPath, "", fmt.Errorf("create document binary snapshot: %w", err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(doc); err != nil {
		return jsonPath, "", fmt.Errorf("encode document binary snapshot: %w", err)
	}
	return jsonPath, binPath, nil
}

// WriteLines flattens every page's LinesExtracted into lines_extracted.csv
// and lines_extracted.txt under the export directory.
func (e *Exporter) WriteLines(doc iamodel.DocumentExport) (csvPath, txtPath string, err error) {
	csvPath = filepath.Join(e.exportDir, "lines_extracted.csv")
	txtPath = filepath.Join(e.exportDir, "lines_extracted.txt")

	csvFile, err := os.Create(csvPath)
	if err != nil {
		return "", "", fmt.Errorf("create lines csv: %w", err)
	}
	defer csvFile.Close()
	txtFile, err := os.Create(txtPath)
	if err != nil {
		return "", "", fmt.Errorf("create lines txt: %w", err)
	}
	defer txtFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write([]string{"page_num", "line_num", "text", "bbox"}); err != nil {
		return "", "", fmt.Errorf("write lines csv header: %w", err)
	}
	for _, page := range doc.Pages {
		for i, line := range page.LinesExtracted {
			bbox := line.BBox
			bboxStr := fmt.Sprintf("[%s]", strings.Join([]string{
				strconv.FormatFloat(bbox.X0, 'f', 2, 64),
				strconv.FormatFloat(bbox.Y0, 'f', 2, 64),
				strconv.FormatFloat(bbox.X1, 'f', 2, 64),
				strconv.FormatFloat(bbox.Y1, 'f', 2, 64),
			}, ", "))
			if err := w.Write([]string{
				strconv.Itoa(page.PageNum), strconv.Itoa(i + 1), line.Text, bboxStr,
			}); err != nil {
				return "", "", fmt.Errorf("write lines csv row: %w", err)
			}
			if _, err := fmt.Fprintln(txtFile, strings.TrimSpace(line.Text)); err != nil {
				return "", "", fmt.Errorf("write lines txt row: %w", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", "", err
	}
	return csvPath, txtPath, nil
}
