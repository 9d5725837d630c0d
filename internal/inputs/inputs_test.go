package inputs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamt19/bullet/internal/data"
	"github.com/liamt19/bullet/internal/inputs"
)

func TestAtaxx147_Dimensions(t *testing.T) {
	in := inputs.Ataxx147{}
	assert.Equal(t, 147, in.Inputs())
	assert.Equal(t, 1, in.Buckets())
	assert.Equal(t, 49, in.MaxActive())
}

func TestAtaxx147_Features(t *testing.T) {
	b, err := data.ParseLine("x5o/7/3-3/7/7/7/o5x x 0 1 | 0 | 0.5")
	require.NoError(t, err)

	stm, nstm := inputs.Collect[data.AtaxxBoard](inputs.Ataxx147{}, &b, nil, nil)
	assert.Equal(t, []int{6, 42, 49 + 0, 49 + 48, 98 + 31}, stm)
	assert.Equal(t, []int{49 + 6, 49 + 42, 0, 48, 98 + 31}, nstm)
}

func TestAtaxx147_Reiterable(t *testing.T) {
	b, err := data.ParseLine("x5o/7/7/7/7/7/o5x o 0 1 | 0 | 0.5")
	require.NoError(t, err)

	seq := inputs.Ataxx147{}.FeatureIter(&b)
	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	assert.Equal(t, 4, count())
	assert.Equal(t, 4, count())
}

func TestAtaxx147_EarlyStop(t *testing.T) {
	b, err := data.ParseLine("x5o/7/7/7/7/7/o5x x 0 1 | 0 | 0.5")
	require.NoError(t, err)

	var first []int
	for stm := range (inputs.Ataxx147{}).FeatureIter(&b) {
		first = append(first, stm)
		break
	}
	assert.Equal(t, []int{6}, first)
}

func TestAtaxx147_FeaturesInRange(t *testing.T) {
	b := data.AtaxxBoard{Bitboards: [3]uint64{0x1, 0x2, 1<<48 | 1<<47}}
	in := inputs.Ataxx147{}
	n := 0
	for s, ns := range in.FeatureIter(&b) {
		assert.Less(t, s, in.Inputs())
		assert.Less(t, ns, in.Inputs())
		n++
	}
	assert.Equal(t, b.Occupied(), n)
	assert.LessOrEqual(t, n, in.MaxActive())
}
