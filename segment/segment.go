// Package segment implements the ML layout segmenter and the block merger
// that follows it (spec §4.7): a region classifier proposes typed,
// axis-aligned zones on the rasterised page, low-confidence proposals are
// dropped, and blocks sharing the same horizontal extent that sit directly
// above one another are merged into one.
package segment

import (
	"fmt"
	"image"
	"sort"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/solvane/docia/iamodel"
)

// Region is a single detection proposed by a Model, in the coordinate
// space of the image passed to Segment.
type Region struct {
	Type  iamodel.BlockType
	BBox  iamodel.BBox
	Score float64
}

// Model classifies page regions from a rasterised page bitmap. It is an
// interface so that tests can inject a fixed set of regions without loading
// an ONNX graph.
type Model interface {
	Segment(img image.Image) ([]Region, error)
	Close() error
}

// labelMap mirrors the PubLayNet-style class ordering used by the region
// classifier: index -> block type.
var labelMap = []iamodel.BlockType{
	iamodel.BlockText,
	iamodel.BlockTitle,
	iamodel.BlockList,
	iamodel.BlockTable,
	iamodel.BlockFigure,
}

// ONNXModel runs a PubLayNet-style layout detector through onnxruntime.
type ONNXModel struct {
	session *ort.DynamicAdvancedSession
	inputW  int
	inputH  int
}

// NewONNXModel loads a region-classifier graph from modelPath. inputW/inputH
// are the fixed spatial dimensions the graph was exported with.
func NewONNXModel(modelPath string, inputW, inputH int) (*ONNXModel, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}
	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"input"}, []string{"boxes", "labels", "scores"}, nil)
	if err != nil {
		return nil, fmt.Errorf("load layout model %s: %w", modelPath, err)
	}
	return &ONNXModel{session: session, inputW: inputW, inputH: inputH}, nil
}

// Segment runs inference over img and returns the raw proposals; callers
// apply the confidence floor and merge pass separately.
func (m *ONNXModel) Segment(img image.Image) ([]Region, error) {
	bounds := img.Bounds()
	scaleX := float64(bounds.Dx()) / float64(m.inputW)
	scaleY := float64(bounds.Dy()) / float64(m.inputH)

	input, err := chwTensorFromImage(img, m.inputW, m.inputH)
	if err != nil {
		return nil, fmt.Errorf("prepare model input: %w", err)
	}
	inputTensor, err := ort.NewTensor(ort.NewShape(1, 3, int64(m.inputH), int64(m.inputW)), input)
	if err != nil {
		return nil, fmt.Errorf("build input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := make([]ort.Value, 3)
	if err := m.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("run layout model: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	boxesTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected boxes output type")
	}
	labelsTensor, ok := outputs[1].(*ort.Tensor[int64])
	if !ok {
		return nil, fmt.Errorf("unexpected labels output type")
	}
	scoresTensor, ok := outputs[2].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected scores output type")
	}

	boxes := boxesTensor.GetData()
	labels := labelsTensor.GetData()
	scores := scoresTensor.GetData()

	n := len(labels)
	regions := make([]Region, 0, n)
	for i := 0; i < n; i++ {
		label := int(labels[i])
		if label < 0 || label >= len(labelMap) {
			continue
		}
		x0, y0, x1, y1 := boxes[4*i], boxes[4*i+1], boxes[4*i+2], boxes[4*i+3]
		regions = append(regions, Region{
			Type: labelMap[label],
			BBox: iamodel.BBox{
				X0: float64(x0) * scaleX,
				Y0: float64(y0) * scaleY,
				X1: float64(x1) * scaleX,
				Y1: float64(y1) * scaleY,
			},
			Score: float64(scores[i]),
		})
	}
	return regions, nil
}

// Close releases the underlying onnxruntime session.
func (m *ONNXModel) Close() error {
	if m.session == nil {
		return nil
	}
	return m.session.Destroy()
}

// chwTensorFromImage resizes img to w*h and serializes it as a CHW float32
// tensor normalised to [0, 1], the layout most detection graphs expect.
func chwTensorFromImage(img image.Image, w, h int) ([]float32, error) {
	resized := resizeNearest(img, w, h)
	out := make([]float32, 3*w*h)
	plane := w * h
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			idx := y*w + x
			out[idx] = float32(r) / 65535
			out[plane+idx] = float32(g) / 65535
			out[2*plane+idx] = float32(b) / 65535
		}
	}
	return out, nil
}

func resizeNearest(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		sy := b.Min.Y + y*b.Dy()/h
		for x := 0; x < w; x++ {
			sx := b.Min.X + x*b.Dx()/w
			dst.Set(x, y, img.At(sx, sy))
		}
	}
	return dst
}

// Classify applies a confidence floor to the raw proposals and, when
// everything is filtered out (or the model returned nothing), falls back
// to one full-page Text block so that every page still yields at least one
// block (spec §4.7 fallback rule).
func Classify(regions []Region, confidenceFloor float64, pageWidth, pageHeight float64) []iamodel.Block {
	var kept []iamodel.Block
	for _, r := range regions {
		if r.Score < confidenceFloor {
			continue
		}
		kept = append(kept, iamodel.Block{
			Type:  r.Type,
			BBox:  r.BBox,
			Score: r.Score,
		})
	}
	for i := range kept {
		kept[i].ID = i
	}
	if len(kept) == 0 {
		return []iamodel.Block{{
			ID:    0,
			Type:  iamodel.BlockText,
			BBox:  iamodel.BBox{X0: 0, Y0: 0, X1: pageWidth, Y1: pageHeight},
			Score: 1.0,
		}}
	}
	return kept
}

// MergeVertical merges blocks that share the same left and right edges
// (within thresh) and sit directly above/below one another with a gap
// smaller than 2*thresh, in a single left-to-right, top-to-bottom sweep.
// Each block participates in at most one merge chain per pass.
func MergeVertical(blocks []iamodel.Block, thresh float64) []iamodel.Block {
	used := make([]bool, len(blocks))
	var merged []iamodel.Block
	for i := range blocks {
		if used[i] {
			continue
		}
		curr := blocks[i]
		for j := range blocks {
			if i == j || used[j] {
				continue
			}
			other := blocks[j]
			sameColumn := absDiff(curr.BBox.X0, other.BBox.X0) < thresh && absDiff(curr.BBox.X1, other.BBox.X1) < thresh
			gap := absDiff(curr.BBox.Y1, other.BBox.Y0)
			if sameColumn && gap > 0 && gap < 2*thresh {
				curr.BBox.Y1 = maxF(curr.BBox.Y1, other.BBox.Y1)
				used[j] = true
			}
		}
		merged = append(merged, curr)
		used[i] = true
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].ID < merged[j].ID })
	for i := range merged {
		merged[i].ID = i
	}
	return merged
}

func absDiff(a, b float64) float64 {
	if a < b {
		return b - a
	}
	return a - b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
