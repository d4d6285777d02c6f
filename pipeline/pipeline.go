// Package pipeline orchestrates the IA extraction stages per page (spec
// §5): Raster -> {VectorWords, OCRWords, Tables, Layout} -> Fuse -> Lines ->
// Merge -> Sentences -> BlockFuse -> Export, running N pages concurrently
// while keeping one page's stages strictly sequential.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/solvane/docia/blockfuse"
	"github.com/solvane/docia/config"
	"github.com/solvane/docia/export"
	"github.com/solvane/docia/extractor"
	"github.com/solvane/docia/fuse"
	"github.com/solvane/docia/iamodel"
	"github.com/solvane/docia/ir"
	"github.com/solvane/docia/lines"
	"github.com/solvane/docia/observability"
	"github.com/solvane/docia/ocr"
	"github.com/solvane/docia/raster"
	"github.com/solvane/docia/segment"
	"github.com/solvane/docia/tableextract"
)

// PageFailure records a page that failed to process; the document export
// continues without it rather than aborting the whole run (spec §5).
type PageFailure struct {
	PageIndex int
	Err       error
}

func (f *PageFailure) Error() string {
	return fmt.Sprintf("page %d: %v", f.PageIndex, f.Err)
}

// StageDegradation records a single stage on a single page falling back to
// a degraded result (e.g. layout segmentation unavailable, falling back to
// one full-page block) instead of failing the page outright.
type StageDegradation struct {
	Stage     string
	PageIndex int
	Err       error
}

func (d *StageDegradation) Error() string {
	return fmt.Sprintf("%s degraded on page %d: %v", d.Stage, d.PageIndex, d.Err)
}

func (d *StageDegradation) Unwrap() error { return d.Err }

// Pipeline owns the process-wide singletons (segmentation model) and the
// resolved configuration for one extraction run.
type Pipeline struct {
	cfg    *config.Config
	model  segment.Model
	logger observability.Logger
}

// New constructs a Pipeline that uses the given, already loaded segmentation
// model for the lifetime of the run.
func New(cfg *config.Config, model segment.Model, logger observability.Logger) *Pipeline {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	return &Pipeline{cfg: cfg, model: model, logger: logger}
}

// RunOptions configures one extraction run.
type RunOptions struct {
	PDFPath string
	OutDir  string
	// PageIndices restricts the run to these zero-based page indices; nil
	// means every page.
	PageIndices []int
	// SkipDocumentExport suppresses the whole-document JSON/gob/lines
	// artifacts, leaving only the per-page json/page_<N>.json files that
	// WritePage already wrote during fusion (spec §6 CLI --no-export).
	SkipDocumentExport bool
}

// Run processes a PDF end to end, writing per-page and document exports
// under opts.OutDir, and returns the accumulated DocumentExport plus any
// page failures. ctx cancellation is honoured between pages, never
// mid-page.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (iamodel.DocumentExport, []PageFailure, error) {
	pdfPath, outDir, pageIndices := opts.PDFPath, opts.OutDir, opts.PageIndices
	file, err := os.Open(pdfPath)
	if err != nil {
		return iamodel.DocumentExport{}, nil, fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	semDoc, err := ir.NewDefault().Parse(ctx, file)
	if err != nil {
		return iamodel.DocumentExport{}, nil, fmt.Errorf("parse pdf: %w", err)
	}
	dec := semDoc.Decoded()
	if dec == nil {
		return iamodel.DocumentExport{}, nil, fmt.Errorf("semantic document missing decoded backing store")
	}
	ext, err := extractor.New(dec)
	if err != nil {
		return iamodel.DocumentExport{}, nil, fmt.Errorf("new extractor: %w", err)
	}

	rasterDoc, err := raster.Open(pdfPath)
	if err != nil {
		return iamodel.DocumentExport{}, nil, fmt.Errorf("open pdf for rasterisation: %w", err)
	}
	defer rasterDoc.Close()

	exporter, err := export.New(outDir)
	if err != nil {
		return iamodel.DocumentExport{}, nil, fmt.Errorf("new exporter: %w", err)
	}

	vectorWords, figures, err := ext.ExtractWords()
	if err != nil {
		return iamodel.DocumentExport{}, nil, fmt.Errorf("extract words: %w", err)
	}
	annotations, err := ext.ExtractAnnotations()
	if err != nil {
		return iamodel.DocumentExport{}, nil, fmt.Errorf("extract annotations: %w", err)
	}

	if pageIndices == nil {
		pageIndices = make([]int, rasterDoc.NumPage())
		for i := range pageIndices {
			pageIndices[i] = i
		}
	}

	var (
		mu       sync.Mutex
		pages    []iamodel.PageModel
		failures []PageFailure
	)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(p.cfg.ConcurrencyPages)

	for _, idx := range pageIndices {
		idx := idx
		group.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			page, err := p.processPage(gctx, idx, ext, rasterDoc, vectorWords[idx], figures[idx], annotations, exporter, outDir)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, PageFailure{PageIndex: idx, Err: err})
				p.logger.Warn("page failed", observability.Int("page", idx), observability.Error("err", err))
				return nil
			}
			pages = append(pages, page)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return iamodel.DocumentExport{}, failures, fmt.Errorf("pipeline aborted: %w", err)
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].PageNum < pages[j].PageNum })
	doc := iamodel.DocumentExport{Pages: pages}

	if opts.SkipDocumentExport {
		return doc, failures, nil
	}
	if _, _, err := exporter.WriteDocument(doc, "extraction_doc"); err != nil {
		return doc, failures, fmt.Errorf("write document export: %w", err)
	}
	if _, _, err := exporter.WriteLines(doc); err != nil {
		return doc, failures, fmt.Errorf("write lines export: %w", err)
	}
	return doc, failures, nil
}

// processPage runs every stage for one page in strict sequence: the
// concurrency boundary in Run is between pages, never within one.
func (p *Pipeline) processPage(
	ctx context.Context,
	idx int,
	ext *extractor.Extractor,
	rasterDoc *raster.Document,
	pageVectorWords []iamodel.Word,
	pageFigures []extractor.FigureAsset,
	annotations []extractor.AnnotationInfo,
	exporter *export.Exporter,
	outDir string,
) (iamodel.PageModel, error) {
	img, err := rasterDoc.PageImage(idx, p.cfg.RasterDPI)
	if err != nil {
		return iamodel.PageModel{}, fmt.Errorf("rasterise: %w", err)
	}
	if _, err := rasterDoc.WritePagePNG(idx, p.cfg.RasterDPI, outDir); err != nil {
		return iamodel.PageModel{}, fmt.Errorf("write page image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return iamodel.PageModel{}, fmt.Errorf("encode page bitmap: %w", err)
	}
	ocrResult, err := ocr.DefaultEngine().Recognize(ctx, ocr.Input{
		ID:        fmt.Sprintf("page-%d", idx),
		Image:     buf.Bytes(),
		Format:    ocr.ImageFormatPNG,
		PageIndex: idx,
		DPI:       p.cfg.RasterDPI,
		Languages: p.cfg.OCRLanguages,
	})
	if err != nil {
		return iamodel.PageModel{}, fmt.Errorf("ocr page: %w", err)
	}
	ocrWords := ocr.PageWords(ocrResult, ocr.PageScale{DPI: p.cfg.RasterDPI})

	words := fuse.Words(pageVectorWords, ocrWords)
	pageLines := lines.Cluster(words, p.cfg.Thresholds.LineY)

	bounds := img.Bounds()
	pageWidth := float64(bounds.Dx()) * 72 / float64(p.cfg.RasterDPI)
	pageHeight := float64(bounds.Dy()) * 72 / float64(p.cfg.RasterDPI)

	regions, err := p.model.Segment(img)
	if err != nil {
		degradation := &StageDegradation{Stage: "segment", PageIndex: idx, Err: err}
		p.logger.Warn("layout segmentation degraded to full-page block", observability.Int("page", idx), observability.Error("err", degradation))
		regions = nil
	}
	segRegions := make([]segment.Region, len(regions))
	copy(segRegions, regions)
	blocks := segment.Classify(segRegions, p.cfg.SegmentConfidence, pageWidth, pageHeight)
	blocks = segment.MergeVertical(blocks, p.cfg.Thresholds.Merge)

	hyperlinks := hyperlinksForPage(annotations, idx)
	sigles := siglesSet(p.cfg.Sigles)
	opts := blockfuse.Options{
		Sigles:    sigles,
		PageImage: img,
		OutDir:    outDir,
		PageNum:   idx + 1,
	}

	fusedBlocks := make([]iamodel.Block, len(blocks))
	figureIndex := 0
	for i, block := range blocks {
		fused := blockfuse.Fuse(block, words, hyperlinks, opts)
		if fused.Type == iamodel.BlockTable {
			if table := tableextract.Detect(words, fused.BBox); table != nil {
				figureIndex++
				if csvPath, err := tableextract.WriteCSV(table, outDir, fmt.Sprintf("page%d_table%d", idx+1, figureIndex)); err == nil {
					table.CSVPath = csvPath
				}
				if htmlPath, err := tableextract.WriteHTML(table, outDir, fmt.Sprintf("page%d_table%d", idx+1, figureIndex)); err == nil {
					table.HTMLPath = htmlPath
				}
				fused.Table = table
			}
		}
		if fused.Type == iamodel.BlockFigure {
			if ref, err := blockfuse.PersistFigure(img, fused, outDir, idx+1, i+1); err == nil {
				fused.Figure = ref
			}
		}
		fusedBlocks[i] = fused
	}

	page := iamodel.PageModel{
		PageNum:        idx + 1,
		Width:          pageWidth,
		Height:         pageHeight,
		Label:          ext.PageLabels()[idx],
		Blocks:         fusedBlocks,
		LinesExtracted: pageLines,
	}
	if err := exporter.WritePage(page); err != nil {
		return page, fmt.Errorf("write page export: %w", err)
	}
	return page, nil
}

func hyperlinksForPage(annotations []extractor.AnnotationInfo, page int) []iamodel.Hyperlink {
	var out []iamodel.Hyperlink
	for _, a := range annotations {
		if a.Page != page || a.URI == "" {
			continue
		}
		out = append(out, iamodel.Hyperlink{
			URI:  a.URI,
			BBox: iamodel.BBox{X0: a.Rect[0], Y0: a.Rect[1], X1: a.Rect[2], Y1: a.Rect[3]},
		})
	}
	return out
}

func siglesSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}
