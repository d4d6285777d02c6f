package lines

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solvane/docia/iamodel"
)

func word(text string, x0, y0, x1, y1 float64) iamodel.Word {
	return iamodel.Word{Text: text, BBox: iamodel.BBox{X0: x0, Y0: y0, X1: x1, Y1: y1}}
}

func TestCluster_GroupsWordsOnSameBaseline(t *testing.T) {
	words := []iamodel.Word{
		word("Hello", 0, 100, 40, 112),
		word("world", 45, 101, 90, 113),
		word("Second", 0, 130, 50, 142),
	}
	out := Cluster(words, 5.0)
	require.Len(t, out, 2)
	require.Equal(t, "Hello world", out[0].Text)
	require.Equal(t, "Second", out[1].Text)
}

func TestCluster_SequentialChainNotRunningAverage(t *testing.T) {
	// Each word's y0 drifts by just under the threshold from its immediate
	// predecessor, so the whole run must stay one line even though the
	// first and last word's y0 differ by more than the threshold.
	words := []iamodel.Word{
		word("a", 0, 100, 10, 110),
		word("b", 12, 104, 22, 114),
		word("c", 24, 108, 34, 118),
	}
	out := Cluster(words, 5.0)
	require.Len(t, out, 1)
	require.Equal(t, "a b c", out[0].Text)
}

func TestCluster_EmptyInput(t *testing.T) {
	require.Nil(t, Cluster(nil, 5.0))
}
