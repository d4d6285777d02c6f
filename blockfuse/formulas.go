package blockfuse

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/solvane/docia/iamodel"
)

// PersistFormula crops pageImage to block's bbox and writes both the crop
// and a MathML rendering of the block's text to outDir, returning their
// paths (spec §4.9 formula detection, following the original
// implementation's per-formula image + mathml persistence).
func PersistFormula(pageImage image.Image, block iamodel.Block, outDir string, pageNum int) (imgPath, mathmlPath string, err error) {
	bounds := pageImage.Bounds()
	rect := image.Rect(
		clampInt(int(block.BBox.X0), bounds.Min.X, bounds.Max.X),
		clampInt(int(block.BBox.Y0), bounds.Min.Y, bounds.Max.Y),
		clampInt(int(block.BBox.X1), bounds.Min.X, bounds.Max.X),
		clampInt(int(block.BBox.Y1), bounds.Min.Y, bounds.Max.Y),
	)
	if rect.Dx() <= 0 || rect.Dy() <= 0 {
		return "", "", fmt.Errorf("empty formula bbox for block %d", block.ID)
	}
	cropped := imaging.Crop(pageImage, rect)

	formulasDir := filepath.Join(outDir, "formulas")
	if err := os.MkdirAll(formulasDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create formulas dir: %w", err)
	}
	imgPath = filepath.Join(formulasDir, fmt.Sprintf("formula_%d_page%d.png", block.ID+1, pageNum))
	if err := imaging.Save(cropped, imgPath); err != nil {
		return "", "", fmt.Errorf("save formula image: %w", err)
	}

	mathmlDir := filepath.Join(outDir, "mathml")
	if err := os.MkdirAll(mathmlDir, 0o755); err != nil {
		return imgPath, "", fmt.Errorf("create mathml dir: %w", err)
	}
	mathmlPath = filepath.Join(mathmlDir, fmt.Sprintf("formula_%d_page%d.xml", block.ID+1, pageNum))
	mathml := formulaMathML(block.OCRText)
	if err := os.WriteFile(mathmlPath, []byte(mathml), 0o644); err != nil {
		return imgPath, "", fmt.Errorf("write mathml: %w", err)
	}
	return imgPath, mathmlPath, nil
}
