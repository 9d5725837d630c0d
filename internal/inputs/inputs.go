// Package inputs maps positions to sparse feature indices.
package inputs

import (
	"iter"

	"github.com/liamt19/bullet/internal/data"
)

// InputType describes a sparse input encoding for positions of type T.
type InputType[T any] interface {
	// Inputs is the number of features per bucket.
	Inputs() int
	// Buckets is the number of input buckets.
	Buckets() int
	// MaxActive bounds how many features one position can activate.
	MaxActive() int
	// FeatureIter yields (stm, nstm) feature index pairs for pos. The
	// sequence can be iterated more than once.
	FeatureIter(pos *T) iter.Seq2[int, int]
}

// Ataxx147 encodes an ataxx board as 3×49 one-hot (piece, square) features:
// stm stones, nstm stones and gaps. From the opponent's perspective the stone
// kinds swap and gaps stay put.
type Ataxx147 struct{}

var _ InputType[data.AtaxxBoard] = Ataxx147{}

// Inputs returns 147.
func (Ataxx147) Inputs() int { return 3 * data.Squares }

// Buckets returns 1.
func (Ataxx147) Buckets() int { return 1 }

// MaxActive returns 49; every square holds at most one piece.
func (Ataxx147) MaxActive() int { return data.Squares }

// FeatureIter yields 49*pc + sq for the side to move, and the same index for
// the opponent with stm/nstm swapped.
func (Ataxx147) FeatureIter(pos *data.AtaxxBoard) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		for pc, sq := range pos.Pieces() {
			stm := data.Squares*pc + sq
			nstm := stm
			if pc != data.Gap {
				nstm = data.Squares*(pc^1) + sq
			}
			if !yield(stm, nstm) {
				return
			}
		}
	}
}

// Collect appends the stm and nstm features of pos to the given slices and
// returns them.
func Collect[T any](in InputType[T], pos *T, stm, nstm []int) ([]int, []int) {
	for s, n := range in.FeatureIter(pos) {
		stm = append(stm, s)
		nstm = append(nstm, n)
	}
	return stm, nstm
}
