package engine

// CompressMerge collapses a line toward index 0. Zeros are dropped, then equal
// neighbours merge left to right, each tile merging at most once. The result is
// padded with zeros back to the input length.
func CompressMerge(line []int) ([]int, int) {
	tiles := make([]int, 0, len(line))
	for _, v := range line {
		if v != 0 {
			tiles = append(tiles, v)
		}
	}

	out := make([]int, 0, len(line))
	gained := 0
	for i := 0; i < len(tiles); i++ {
		if i+1 < len(tiles) && tiles[i] == tiles[i+1] {
			merged := tiles[i] * 2
			out = append(out, merged)
			gained += merged
			i++
			continue
		}
		out = append(out, tiles[i])
	}
	for len(out) < len(line) {
		out = append(out, 0)
	}
	return out, gained
}

// Slide applies a move to a copy of b without spawning. It reports the new
// board, the merge gain and whether any cell changed.
func Slide(b Board, dir Direction) (Board, int, bool, error) {
	if dir.Index() < 0 {
		return nil, 0, false, ErrInvalidDirection
	}

	next := Clone(b)
	n := len(next)
	gained := 0
	for i := 0; i < n; i++ {
		line := readLine(next, dir, i)
		merged, gain := CompressMerge(line)
		writeLine(next, dir, i, merged)
		gained += gain
	}
	return next, gained, !Equal(b, next), nil
}

// readLine extracts row or column i oriented so the slide goes toward index 0
func readLine(b Board, dir Direction, i int) []int {
	n := len(b)
	line := make([]int, n)
	for k := 0; k < n; k++ {
		switch dir {
		case Left:
			line[k] = b[i][k]
		case Right:
			line[k] = b[i][n-1-k]
		case Up:
			line[k] = b[k][i]
		case Down:
			line[k] = b[n-1-k][i]
		}
	}
	return line
}

// writeLine undoes the orientation applied by readLine
func writeLine(b Board, dir Direction, i int, line []int) {
	n := len(b)
	for k := 0; k < n; k++ {
		switch dir {
		case Left:
			b[i][k] = line[k]
		case Right:
			b[i][n-1-k] = line[k]
		case Up:
			b[k][i] = line[k]
		case Down:
			b[n-1-k][i] = line[k]
		}
	}
}

// HasMoves reports whether any direction would change b
func HasMoves(b Board) bool {
	n := len(b)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := b[i][j]
			if v == 0 {
				return true
			}
			if j+1 < n && b[i][j+1] == v {
				return true
			}
			if i+1 < n && b[i+1][j] == v {
				return true
			}
		}
	}
	return false
}
