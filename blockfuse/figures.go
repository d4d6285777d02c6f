package blockfuse

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/solvane/docia/iamodel"
)

// PersistFigure crops pageImage to block's bbox and saves it under
// <outDir>/images/page<pageNum>_img<index>.png, folding the original
// implementation's figure-extraction-from-page-bitmap step into the block
// fuser (spec SUPPLEMENTED FEATURES: figure persistence).
func PersistFigure(pageImage image.Image, block iamodel.Block, outDir string, pageNum, index int) (*iamodel.FigureRef, error) {
	bounds := pageImage.Bounds()
	rect := image.Rect(
		clampInt(int(block.BBox.X0), bounds.Min.X, bounds.Max.X),
		clampInt(int(block.BBox.Y0), bounds.Min.Y, bounds.Max.Y),
		clampInt(int(block.BBox.X1), bounds.Min.X, bounds.Max.X),
		clampInt(int(block.BBox.Y1), bounds.Min.Y, bounds.Max.Y),
	)
	if rect.Dx() <= 0 || rect.Dy() <= 0 {
		return nil, fmt.Errorf("empty figure bbox for block %d", block.ID)
	}
	cropped := imaging.Crop(pageImage, rect)
	path := filepath.Join(outDir, "images", fmt.Sprintf("page%d_img%d.png", pageNum, index))
	if err := imaging.Save(cropped, path); err != nil {
		return nil, fmt.Errorf("save figure image: %w", err)
	}
	return &iamodel.FigureRef{BBox: block.BBox, ImagePath: path}, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
