package tableextract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solvane/docia/iamodel"
)

func gridWords() []iamodel.Word {
	var words []iamodel.Word
	headers := []string{"Name", "Score", "Rank"}
	rows := [][]string{
		{"Alice", "90", "1"},
		{"Bob", "80", "2"},
		{"Carol", "70", "3"},
	}
	xCols := []float64{0, 60, 120}
	y := 0.0
	for ri, row := range append([][]string{headers}, rows...) {
		for ci, text := range row {
			x0 := xCols[ci]
			words = append(words, iamodel.Word{
				Text: text,
				BBox: iamodel.BBox{X0: x0, Y0: y, X1: x0 + 40, Y1: y + 10},
			})
		}
		y += float64(ri+1) * 20
	}
	return words
}

func TestDetect_FindsConsistentColumnGrid(t *testing.T) {
	words := gridWords()
	block := iamodel.BBox{X0: 0, Y0: 0, X1: 200, Y1: 200}
	table := Detect(words, block)
	require.NotNil(t, table)
	require.GreaterOrEqual(t, len(table.Rows), minRows)
	for _, row := range table.Rows {
		require.Len(t, row, 3)
	}
}

func TestDetect_TooFewRowsReturnsNil(t *testing.T) {
	words := []iamodel.Word{
		{Text: "a", BBox: iamodel.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10}},
		{Text: "b", BBox: iamodel.BBox{X0: 20, Y0: 0, X1: 30, Y1: 10}},
	}
	block := iamodel.BBox{X0: 0, Y0: 0, X1: 100, Y1: 100}
	require.Nil(t, Detect(words, block))
}

func TestDetect_FiltersWordsOutsideBlock(t *testing.T) {
	words := gridWords()
	words = append(words, iamodel.Word{Text: "stray", BBox: iamodel.BBox{X0: 500, Y0: 500, X1: 540, Y1: 510}})
	block := iamodel.BBox{X0: 0, Y0: 0, X1: 200, Y1: 200}
	table := Detect(words, block)
	require.NotNil(t, table)
	for _, row := range table.Rows {
		for _, cell := range row {
			require.NotEqual(t, "stray", cell)
		}
	}
}
