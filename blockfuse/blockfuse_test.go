package blockfuse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solvane/docia/iamodel"
)

func TestIsFormulaZone(t *testing.T) {
	require.True(t, isFormulaZone("x^2 + y^2 = z^2"))
	require.True(t, isFormulaZone("123 456"))
	require.False(t, isFormulaZone("The quick brown fox"))
}

func TestIsSigle(t *testing.T) {
	require.True(t, isSigle("unesco", nil))
	require.True(t, isSigle("  ONU  ", nil))
	require.False(t, isSigle("Paris", nil))
	custom := map[string]struct{}{"ACME": {}}
	require.True(t, isSigle("acme", custom))
	require.False(t, isSigle("UNESCO", custom))
}

func TestDetectListType(t *testing.T) {
	require.Equal(t, "bullet", detectListType("• first item").ListType)
	require.Equal(t, "numbered", detectListType("1. first item").ListType)
	require.Equal(t, iamodel.ListMeta{}, detectListType("plain paragraph"))
}

func TestDetectAlignment(t *testing.T) {
	block := iamodel.BBox{X0: 0, Y0: 0, X1: 200, Y1: 20}
	justified := []iamodel.Word{
		{BBox: iamodel.BBox{X0: 0, Y0: 0, X1: 200, Y1: 10}},
		{BBox: iamodel.BBox{X0: 5, Y0: 10, X1: 195, Y1: 20}},
	}
	require.Equal(t, iamodel.AlignJustify, detectAlignment(justified, block))

	leftOnly := []iamodel.Word{
		{BBox: iamodel.BBox{X0: 0, Y0: 0, X1: 20, Y1: 10}},
		{BBox: iamodel.BBox{X0: 2, Y0: 0, X1: 60, Y1: 10}},
	}
	require.Equal(t, iamodel.AlignLeft, detectAlignment(leftOnly, block))
}

func TestFormulaLatexAndMathML(t *testing.T) {
	require.Equal(t, "$x+y$", formulaLatex("x+y"))
	require.Equal(t, "", formulaLatex("   "))

	mathml := formulaMathML("ab")
	require.Contains(t, mathml, "<math")
	require.Contains(t, mathml, "<mi>a</mi>")
	require.Contains(t, mathml, "<mi>b</mi>")
}

func TestAttachLinks_IoUThreshold(t *testing.T) {
	sentenceBoxes := []iamodel.BBox{{X0: 0, Y0: 0, X1: 100, Y1: 10}}
	overlapping := iamodel.Hyperlink{URI: "https://example.com", BBox: iamodel.BBox{X0: 0, Y0: 0, X1: 100, Y1: 10}}
	disjoint := iamodel.Hyperlink{URI: "https://other.example", BBox: iamodel.BBox{X0: 500, Y0: 500, X1: 600, Y1: 510}}

	out := attachLinks(sentenceBoxes, []iamodel.Hyperlink{overlapping, disjoint})
	require.Len(t, out, 1)
	require.Equal(t, overlapping.URI, out[0].URI)
}

func TestFuse_TextBlockBuildsSentencesAndNonTranslatable(t *testing.T) {
	block := iamodel.Block{ID: 1, Type: iamodel.BlockText, BBox: iamodel.BBox{X0: 0, Y0: 0, X1: 200, Y1: 20}}
	words := []iamodel.Word{
		{Text: "UNESCO", BBox: iamodel.BBox{X0: 0, Y0: 0, X1: 60, Y1: 10}},
	}
	out := Fuse(block, words, nil, Options{})
	require.True(t, out.Sigle)
	require.True(t, out.NonTranslatable)
	require.Len(t, out.Content, 1)
}
