package fuse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solvane/docia/iamodel"
)

func TestWords_VectorFirstWithDedup(t *testing.T) {
	vector := []iamodel.Word{
		{Text: "Hello", BBox: iamodel.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10}, Source: iamodel.SourceVector},
	}
	ocrWords := []iamodel.Word{
		{Text: "Hello", BBox: iamodel.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10}, Source: iamodel.SourceOCR},
		{Text: "World", BBox: iamodel.BBox{X0: 12, Y0: 0, X1: 22, Y1: 10}, Source: iamodel.SourceOCR},
	}

	out := Words(vector, ocrWords)
	require.Len(t, out, 2)
	require.Equal(t, iamodel.SourceVector, out[0].Source)
	require.Equal(t, "World", out[1].Text)
	require.Equal(t, iamodel.SourceOCR, out[1].Source)
}

func TestWords_NoDuplicateWhenBBoxDiffers(t *testing.T) {
	vector := []iamodel.Word{
		{Text: "Hello", BBox: iamodel.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10}},
	}
	ocrWords := []iamodel.Word{
		{Text: "Hello", BBox: iamodel.BBox{X0: 50, Y0: 50, X1: 60, Y1: 60}},
	}
	out := Words(vector, ocrWords)
	require.Len(t, out, 2)
}
