// Package undo keeps a bounded history of board snapshots.
//
// Only the most recent Depth snapshots are kept. Pushing onto a full stack
// drops the oldest entry. Callers push the state from before a move, and only
// when that move changed the board.
package undo

import (
	"errors"
	"sync"

	"github.com/wricardo/game2048/game/engine"
)

// DefaultDepth is the number of moves that can be taken back
const DefaultDepth = 6

var ErrEmpty = errors.New("nothing to undo")

// Stack is a bounded LIFO of snapshots. It is safe for concurrent use.
type Stack struct {
	depth   int
	entries []engine.Snapshot
	mu      sync.Mutex
}

// New creates a stack holding at most depth snapshots. A non-positive depth
// falls back to DefaultDepth.
func New(depth int) *Stack {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Stack{
		depth:   depth,
		entries: make([]engine.Snapshot, 0, depth),
	}
}

// Push records a snapshot, evicting the oldest when full
func (s *Stack) Push(snap engine.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap.Board = engine.Clone(snap.Board)
	if len(s.entries) == s.depth {
		copy(s.entries, s.entries[1:])
		s.entries = s.entries[:len(s.entries)-1]
	}
	s.entries = append(s.entries, snap)
}

// Pop removes and returns the most recent snapshot
func (s *Stack) Pop() (engine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return engine.Snapshot{}, ErrEmpty
	}
	last := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return last, nil
}

// Len returns the number of stored snapshots
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Depth returns the capacity
func (s *Stack) Depth() int {
	return s.depth
}

// Clear drops every snapshot
func (s *Stack) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = s.entries[:0]
}

// Entries returns a copy of the stored snapshots, oldest first
func (s *Stack) Entries() []engine.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]engine.Snapshot, len(s.entries))
	for i, e := range s.entries {
		out[i] = engine.Snapshot{Board: engine.Clone(e.Board), Score: e.Score}
	}
	return out
}

// Restore replaces the contents with entries, keeping only the newest ones
// that fit.
func (s *Stack) Restore(entries []engine.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(entries) > s.depth {
		entries = entries[len(entries)-s.depth:]
	}
	s.entries = s.entries[:0]
	for _, e := range entries {
		s.entries = append(s.entries, engine.Snapshot{Board: engine.Clone(e.Board), Score: e.Score})
	}
}

// Recorder couples a stack with an engine so that only board-changing moves
// are recorded.
type Recorder struct {
	eng   engine.Engine
	stack *Stack
}

// NewRecorder wraps eng with stack
func NewRecorder(eng engine.Engine, stack *Stack) *Recorder {
	return &Recorder{eng: eng, stack: stack}
}

// Move performs the move and records the prior state if the board changed
func (r *Recorder) Move(dir engine.Direction) (engine.MoveOutcome, error) {
	before := r.eng.Snapshot()
	outcome, err := r.eng.Move(dir)
	if err != nil {
		return outcome, err
	}
	if outcome.Changed {
		r.stack.Push(before)
	}
	return outcome, nil
}

// Undo restores the most recent snapshot into the engine
func (r *Recorder) Undo() (engine.Snapshot, error) {
	snap, err := r.stack.Pop()
	if err != nil {
		return engine.Snapshot{}, err
	}
	if err := r.eng.SetState(snap.Board, snap.Score); err != nil {
		return engine.Snapshot{}, err
	}
	return snap, nil
}

// NewGame starts over and forgets the history
func (r *Recorder) NewGame() {
	r.eng.NewGame()
	r.stack.Clear()
}

// Stack exposes the underlying history
func (r *Recorder) Stack() *Stack {
	return r.stack
}
