// internal/models/board.go
package models

import (
	"encoding/json"
	"fmt"
)

const (
	BoardSize = 5
	CellCount = BoardSize * BoardSize
)

// Board is the 5x5 grid in row-major order. Each cell is SideNone (empty), SideA or SideB.
type Board [CellCount]Side

// cellEmpty is the wire name for an unclaimed cell.
const cellEmpty = "empty"

// String encodes the board as 25 characters: '.' for empty, 'A' or 'B'.
// This is the persisted form.
func (b Board) String() string {
	out := make([]byte, CellCount)
	for i, c := range b {
		switch c {
		case SideA:
			out[i] = 'A'
		case SideB:
			out[i] = 'B'
		default:
			out[i] = '.'
		}
	}
	return string(out)
}

// ParseBoard decodes the persisted form produced by Board.String.
func ParseBoard(s string) (Board, error) {
	var b Board
	if len(s) != CellCount {
		return b, fmt.Errorf("board must have %d cells, got %d", CellCount, len(s))
	}
	for i := 0; i < CellCount; i++ {
		switch s[i] {
		case '.':
			b[i] = SideNone
		case 'A':
			b[i] = SideA
		case 'B':
			b[i] = SideB
		default:
			return b, fmt.Errorf("invalid cell %q at %d", s[i], i)
		}
	}
	return b, nil
}

// Empty reports whether the cell at idx is unclaimed. Out-of-range indexes are never empty.
func (b Board) Empty(idx int) bool {
	return ValidSquare(idx) && b[idx] == SideNone
}

// Full reports whether every cell has been claimed.
func (b Board) Full() bool {
	for _, c := range b {
		if c == SideNone {
			return false
		}
	}
	return true
}

// ValidSquare reports whether idx addresses a cell of the board.
func ValidSquare(idx int) bool {
	return idx >= 0 && idx < CellCount
}

// MarshalJSON renders cells as "empty", "A" or "B".
func (b Board) MarshalJSON() ([]byte, error) {
	cells := make([]string, CellCount)
	for i, c := range b {
		if c == SideNone {
			cells[i] = cellEmpty
		} else {
			cells[i] = string(c)
		}
	}
	return json.Marshal(cells)
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var cells []string
	if err := json.Unmarshal(data, &cells); err != nil {
		return err
	}
	if len(cells) != CellCount {
		return fmt.Errorf("board must have %d cells, got %d", CellCount, len(cells))
	}
	for i, c := range cells {
		switch c {
		case cellEmpty, "":
			b[i] = SideNone
		case "A":
			b[i] = SideA
		case "B":
			b[i] = SideB
		default:
			return fmt.Errorf("invalid cell %q at %d", c, i)
		}
	}
	return nil
}
