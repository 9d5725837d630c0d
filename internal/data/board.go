// Package data holds training positions and reads them from disk.
//
// Positions are stored relative to the side to move: the first bitboard
// always holds the mover's stones, score and result are from the mover's
// point of view.
package data

import (
	"iter"
	"math/bits"

	"github.com/chewxy/math32"
)

// Board geometry.
const (
	Files   = 7
	Ranks   = 7
	Squares = Files * Ranks
)

// Piece kinds in bitboard order.
const (
	Stm  = 0 // stone of the side to move
	Nstm = 1 // stone of the opponent
	Gap  = 2 // blocked square
)

// AtaxxBoard is one training position.
type AtaxxBoard struct {
	Bitboards [3]uint64 // indexed by Stm, Nstm, Gap; bit sq = rank*7 + file
	Score     int16     // engine score, side to move relative
	Result    uint8     // 0 loss, 1 draw, 2 win for the side to move
	Fullmoves uint16
}

// NewAtaxxBoard builds a side-to-move relative board from absolute x/o
// bitboards, an x-relative score and an x-relative result in {0, 0.5, 1}.
func NewAtaxxBoard(x, o, gaps uint64, score int16, result float32, xToMove bool, fullmoves uint16) AtaxxBoard {
	b := AtaxxBoard{
		Bitboards: [3]uint64{x, o, gaps},
		Score:     score,
		Result:    uint8(math32.Round(result * 2)),
		Fullmoves: fullmoves,
	}
	if !xToMove {
		b.Bitboards[Stm], b.Bitboards[Nstm] = b.Bitboards[Nstm], b.Bitboards[Stm]
		b.Score = -b.Score
		b.Result = 2 - b.Result
	}
	return b
}

// Occupied returns the number of stones and gaps on the board.
func (b *AtaxxBoard) Occupied() int {
	return bits.OnesCount64(b.Bitboards[Stm] | b.Bitboards[Nstm] | b.Bitboards[Gap])
}

// Pieces yields (piece, square) for every stone and gap, piece kinds in
// order Stm, Nstm, Gap and squares ascending within each kind.
func (b *AtaxxBoard) Pieces() iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		for pc, bb := range b.Bitboards {
			for bb != 0 {
				sq := bits.TrailingZeros64(bb)
				if !yield(pc, sq) {
					return
				}
				bb &= bb - 1
			}
		}
	}
}

// ResultValue returns the game result in [0, 1] for the side to move.
func (b *AtaxxBoard) ResultValue() float32 {
	return float32(b.Result) / 2
}

// BlendedResult returns the training target
// blend*result + (1-blend)*sigmoid(score/scale).
func (b *AtaxxBoard) BlendedResult(blend, scale float32) float32 {
	return blend*b.ResultValue() + (1-blend)*Sigmoid(float32(b.Score)/scale)
}

// Sigmoid is the logistic function.
func Sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}
