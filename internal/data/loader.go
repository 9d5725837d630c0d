package data

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrEmptyDataset is returned when a data file holds no positions.
var ErrEmptyDataset = errors.New("no positions in data file")

// Loader streams fixed-size batches of positions from a text file, starting
// over from the top of the file whenever it runs out.
//
// A Loader is not safe for concurrent use.
type Loader struct {
	path    string
	file    *os.File
	scanner *bufio.Scanner
	line    int
	epoch   int
	seen    int // positions read in the current epoch
}

// NewLoader opens path for reading.
func NewLoader(path string) (*Loader, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	l := &Loader{path: path, file: f}
	l.rewind()
	return l, nil
}

// Epoch returns how many times the loader has wrapped around the file.
func (l *Loader) Epoch() int {
	return l.epoch
}

// Next fills batch with the next len(batch) positions. Blank lines and lines
// starting with '#' are ignored. The context is checked once per call.
func (l *Loader) Next(ctx context.Context, batch []AtaxxBoard) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for i := 0; i < len(batch); {
		if !l.scanner.Scan() {
			if err := l.scanner.Err(); err != nil {
				return fmt.Errorf("%s:%d: %w", l.path, l.line, err)
			}
			if l.seen == 0 {
				return fmt.Errorf("%s: %w", l.path, ErrEmptyDataset)
			}
			if _, err := l.file.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("rewind data file: %w", err)
			}
			l.rewind()
			l.epoch++
			continue
		}

		l.line++
		text := strings.TrimSpace(l.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		board, err := ParseLine(text)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", l.path, l.line, err)
		}
		batch[i] = board
		l.seen++
		i++
	}
	return nil
}

// Close releases the underlying file.
func (l *Loader) Close() error {
	return l.file.Close()
}

func (l *Loader) rewind() {
	l.scanner = bufio.NewScanner(l.file)
	l.line = 0
	l.seen = 0
}

// ReadPositions parses every position from r.
func ReadPositions(r io.Reader) ([]AtaxxBoard, error) {
	var out []AtaxxBoard
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		board, err := ParseLine(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, board)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}
	return out, nil
}
