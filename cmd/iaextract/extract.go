package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/solvane/docia/config"
	"github.com/solvane/docia/observability"
	"github.com/solvane/docia/ocr"
	"github.com/solvane/docia/ocr/tesseract"
	"github.com/solvane/docia/pipeline"
	"github.com/solvane/docia/raster"
	"github.com/solvane/docia/segment"
)

const segmentInputSize = 800

var (
	pagesFlag     string
	startPageFlag int
	endPageFlag   int
	maxPagesFlag  int
	outFlag       string
	dpiFlag       int
	noExportFlag  bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <pdf>",
	Short: "Run the full IA extraction pipeline over a PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&pagesFlag, "pages", "", "comma-separated 1-based page list/ranges, e.g. 1,3,5-7")
	extractCmd.Flags().IntVar(&startPageFlag, "start-page", 0, "first 1-based page to process (default: 1)")
	extractCmd.Flags().IntVar(&endPageFlag, "end-page", 0, "last 1-based page to process (default: last page)")
	extractCmd.Flags().IntVar(&maxPagesFlag, "max-pages", 0, "cap the number of pages processed (default: unlimited)")
	extractCmd.Flags().StringVar(&outFlag, "out", "extract_output", "output directory for json/images/export artifacts")
	extractCmd.Flags().IntVar(&dpiFlag, "dpi", 0, "raster DPI override (default: from config, 300)")
	extractCmd.Flags().BoolVar(&noExportFlag, "no-export", false, "skip the whole-document json/gob/lines export, keep per-page json only")
}

func runExtract(cmd *cobra.Command, args []string) error {
	pdfPath := args[0]

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if dpiFlag > 0 {
		cfg.RasterDPI = dpiFlag
	}

	switch cfg.OCREngine {
	case "tesseract", "":
		ocr.SetDefaultEngine(tesseract.NewTesseractEngine())
	default:
		return fmt.Errorf("unsupported ocr engine %q", cfg.OCREngine)
	}

	model, err := segment.NewONNXModel(cfg.SegmentModelPath, segmentInputSize, segmentInputSize)
	if err != nil {
		return fmt.Errorf("load layout segmentation model: %w", err)
	}
	defer model.Close()

	logger := observability.NewZerologLogger(logLevel)
	pipe := pipeline.New(cfg, model, logger)

	pageIndices, err := resolvePageIndices(pdfPath)
	if err != nil {
		return fmt.Errorf("resolve page selection: %w", err)
	}

	ctx := context.Background()
	doc, failures, err := pipe.Run(ctx, pipeline.RunOptions{
		PDFPath:            pdfPath,
		OutDir:             outFlag,
		PageIndices:        pageIndices,
		SkipDocumentExport: noExportFlag,
	})
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	log.Info().Int("pages_processed", len(doc.Pages)).Int("pages_failed", len(failures)).Msg("extraction complete")
	for _, f := range failures {
		log.Warn().Int("page", f.PageIndex+1).Err(f.Err).Msg("page extraction failed")
	}
	return nil
}

// resolvePageIndices turns --pages/--start-page/--end-page/--max-pages into
// a zero-based page index list. A nil result means "every page" and is left
// for the raster stage to expand once it knows the page count.
func resolvePageIndices(pdfPath string) ([]int, error) {
	if pagesFlag != "" {
		return parsePagesFlag(pagesFlag)
	}
	if startPageFlag == 0 && endPageFlag == 0 && maxPagesFlag == 0 {
		return nil, nil
	}

	doc, err := raster.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf to resolve page count: %w", err)
	}
	defer doc.Close()
	total := doc.NumPage()

	start := 1
	if startPageFlag > 0 {
		start = startPageFlag
	}
	end := total
	if endPageFlag > 0 {
		end = endPageFlag
	}
	if end > total {
		end = total
	}
	var indices []int
	for n := start; n <= end; n++ {
		if maxPagesFlag > 0 && len(indices) >= maxPagesFlag {
			break
		}
		indices = append(indices, n-1)
	}
	return indices, nil
}

func parsePagesFlag(raw string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if idx := strings.IndexByte(part, '-'); idx > 0 {
			lo, err := strconv.Atoi(part[:idx])
			if err != nil {
				return nil, fmt.Errorf("invalid page range %q: %w", part, err)
			}
			hi, err := strconv.Atoi(part[idx+1:])
			if err != nil {
				return nil, fmt.Errorf("invalid page range %q: %w", part, err)
			}
			for n := lo; n <= hi; n++ {
				out = append(out, n-1)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid page number %q: %w", part, err)
		}
		out = append(out, n-1)
	}
	return out, nil
}
