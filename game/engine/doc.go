// Package engine implements the board rules of the 2048 puzzle.
//
// The engine package covers:
//   - Sliding and merging tiles in one of four directions
//   - Random tile spawning through an injected RandomSource
//   - Terminal state detection
//   - Board validation for persisted or imported state
//
// Core Types:
//
// The Engine interface defines the contract used by callers, implemented by
// GameEngine. A GameEngine owns exactly one Board and its Score; it has no
// global state, so several games can run side by side.
//
// Usage:
//
//	eng, err := engine.NewEngine(engine.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	outcome, err := eng.Move(engine.Left)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if outcome.GameOver {
//		fmt.Println("no moves left, final score", eng.Score())
//	}
//
// Game Rules:
//
// Every move slides all tiles toward one edge. Two equal tiles that meet merge
// into their sum once per move, and the sum is added to the score. A move that
// changes the board spawns one new tile (2 with probability 0.9, otherwise 4)
// on a uniformly chosen empty cell. The game ends when the board is full and
// no two orthogonal neighbours are equal.
package engine
