package data

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidFEN is wrapped by every FEN parse failure.
var ErrInvalidFEN = errors.New("invalid ataxx fen")

// Position is an absolute (colour based) view of an ataxx FEN.
type Position struct {
	X, O, Gaps uint64
	XToMove    bool
	Halfmoves  int
	Fullmoves  int
}

// ParseFEN parses an ataxx FEN such as "x5o/7/7/7/7/7/o5x x 0 1".
//
// Ranks are listed from the top (rank 7) down; 'x' and 'o' are stones, '-'
// is a gap and digits count empty squares. The move counters are optional.
func ParseFEN(fen string) (Position, error) {
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return Position{}, fmt.Errorf("%w: %q: missing side to move", ErrInvalidFEN, fen)
	}

	var pos Position
	ranks := strings.Split(fields[0], "/")
	if len(ranks) != Ranks {
		return Position{}, fmt.Errorf("%w: %q: %d ranks", ErrInvalidFEN, fen, len(ranks))
	}
	for i, rank := range ranks {
		r := Ranks - 1 - i
		file := 0
		for _, c := range rank {
			if file >= Files {
				return Position{}, fmt.Errorf("%w: %q: rank %d too long", ErrInvalidFEN, fen, r+1)
			}
			bit := uint64(1) << (r*Files + file)
			switch {
			case c == 'x':
				pos.X |= bit
			case c == 'o':
				pos.O |= bit
			case c == '-':
				pos.Gaps |= bit
			case c >= '1' && c <= '7':
				file += int(c-'0') - 1
			default:
				return Position{}, fmt.Errorf("%w: %q: unexpected %q", ErrInvalidFEN, fen, c)
			}
			file++
		}
		if file != Files {
			return Position{}, fmt.Errorf("%w: %q: rank %d has %d files", ErrInvalidFEN, fen, r+1, file)
		}
	}

	switch fields[1] {
	case "x":
		pos.XToMove = true
	case "o":
	default:
		return Position{}, fmt.Errorf("%w: %q: side to move %q", ErrInvalidFEN, fen, fields[1])
	}

	pos.Fullmoves = 1
	counters := []*int{&pos.Halfmoves, &pos.Fullmoves}
	for i, f := range fields[2:] {
		if i >= len(counters) {
			break
		}
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return Position{}, fmt.Errorf("%w: %q: move counter %q", ErrInvalidFEN, fen, f)
		}
		*counters[i] = n
	}
	return pos, nil
}

// ParseLine parses a training line "<fen> | <score> | <result>" where score
// is from x's point of view and result is 1.0, 0.5 or 0.0 for an x win,
// draw or o win.
func ParseLine(line string) (AtaxxBoard, error) {
	parts := strings.Split(line, "|")
	if len(parts) != 3 {
		return AtaxxBoard{}, fmt.Errorf("malformed line %q: want 3 fields separated by '|'", line)
	}

	pos, err := ParseFEN(strings.TrimSpace(parts[0]))
	if err != nil {
		return AtaxxBoard{}, err
	}

	score, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 16)
	if err != nil {
		return AtaxxBoard{}, fmt.Errorf("malformed score in %q: %w", line, err)
	}

	var result float32
	switch strings.TrimSpace(parts[2]) {
	case "1.0", "1", "1-0":
		result = 1
	case "0.5", "1/2-1/2":
		result = 0.5
	case "0.0", "0", "0-1":
		result = 0
	default:
		return AtaxxBoard{}, fmt.Errorf("malformed result in %q", line)
	}

	return NewAtaxxBoard(pos.X, pos.O, pos.Gaps, int16(score), result, pos.XToMove, uint16(min(pos.Fullmoves, 0xffff))), nil
}
