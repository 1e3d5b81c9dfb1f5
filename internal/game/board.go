// internal/game/board.go
package game

import "github.com/jason-s-yu/gridclash/internal/models"

// Lines lists the 12 winning lines of the 5x5 board: 5 rows, 5 columns and the two full
// diagonals. Shorter runs never count.
var Lines = buildLines()

func buildLines() [][models.BoardSize]int {
	const n = models.BoardSize
	lines := make([][n]int, 0, 2*n+2)
	for r := 0; r < n; r++ {
		var row [n]int
		for c := 0; c < n; c++ {
			row[c] = r*n + c
		}
		lines = append(lines, row)
	}
	for c := 0; c < n; c++ {
		var col [n]int
		for r := 0; r < n; r++ {
			col[r] = r*n + c
		}
		lines = append(lines, col)
	}
	var diag, anti [n]int
	for i := 0; i < n; i++ {
		diag[i] = i*n + i
		anti[i] = i*n + (n - 1 - i)
	}
	return append(lines, diag, anti)
}

// DetectWin returns the side owning every cell of some line, or SideNone.
func DetectWin(b models.Board) models.Side {
	for _, line := range Lines {
		owner := b[line[0]]
		if owner == models.SideNone {
			continue
		}
		complete := true
		for _, idx := range line[1:] {
			if b[idx] != owner {
				complete = false
				break
			}
		}
		if complete {
			return owner
		}
	}
	return models.SideNone
}
