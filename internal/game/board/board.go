// Package board implements the Reversi rules engine: an 8x8 grid, move
// validation with 8-direction capture, score counting, and turn order.
// The engine is pure state — no I/O, no locking; the owning room
// serializes access.
package board

import "errors"

// Board dimensions. The rules below assume a square board.
const (
	SizeX = 8
	SizeY = 8
)

// Cell values. Non-empty cells hold the owning player index.
const (
	Empty   = -1
	Player0 = 0
	Player1 = 1
)

// ErrInvalidTurn rejects a move that targets an occupied or out-of-range
// cell, or that captures nothing in any direction. The engine state is
// unchanged when it is returned.
var ErrInvalidTurn = errors.New("invalid turn")

// The 8 ray directions. Captures along independent rays never overlap,
// so enumeration order does not affect the final grid.
var directions = [8][2]int{
	{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1},
}

// Engine holds the state of one game. The zero value is not ready for
// play; use New.
type Engine struct {
	grid  [SizeX][SizeY]int
	score [2]int
	order int
}

// New creates an engine with an all-empty grid. The starting discs are
// not placed until Reset, which the room calls when its second seat
// fills.
func New() *Engine {
	e := &Engine{}
	for x := range e.grid {
		for y := range e.grid[x] {
			e.grid[x][y] = Empty
		}
	}
	return e
}

// Reset re-initializes the grid to the four-disc starting configuration,
// recomputes the score, and gives the first move to player 0.
func (e *Engine) Reset() {
	for x := range e.grid {
		for y := range e.grid[x] {
			e.grid[x][y] = Empty
		}
	}
	e.grid[3][3] = Player0
	e.grid[4][4] = Player0
	e.grid[3][4] = Player1
	e.grid[4][3] = Player1
	e.recount()
	e.order = 0
}

// ApplyMove places a disc for player at (x, y), flipping every capture
// run that terminates on one of the player's own discs.
//
// Precondition: player must be Player0 or Player1.
// Postcondition: On success the captured runs and the move cell hold the
// player's value, the score is recounted, and the turn order flips. On
// ErrInvalidTurn nothing changes.
//
// Turn ownership is deliberately not checked here: the seat index is the
// player identifier, and clients follow the order field of each state
// snapshot.
func (e *Engine) ApplyMove(x, y, player int) error {
	if player != Player0 && player != Player1 {
		return ErrInvalidTurn
	}
	if x < 0 || x >= SizeX || y < 0 || y >= SizeY {
		return ErrInvalidTurn
	}
	if e.grid[x][y] != Empty {
		return ErrInvalidTurn
	}

	opponent := 1 - player

	// Collect capture runs first; commit only if at least one direction
	// captures. A run counts only when terminated by an own disc — runs
	// ending at the board edge or an empty cell convert nothing.
	var flips [][2]int
	for _, d := range directions {
		cx, cy := x+d[0], y+d[1]
		runStart := len(flips)
		for cx >= 0 && cx < SizeX && cy >= 0 && cy < SizeY && e.grid[cx][cy] == opponent {
			flips = append(flips, [2]int{cx, cy})
			cx += d[0]
			cy += d[1]
		}
		if len(flips) == runStart {
			continue
		}
		if cx < 0 || cx >= SizeX || cy < 0 || cy >= SizeY || e.grid[cx][cy] != player {
			flips = flips[:runStart]
		}
	}
	if len(flips) == 0 {
		return ErrInvalidTurn
	}

	e.grid[x][y] = player
	for _, f := range flips {
		e.grid[f[0]][f[1]] = player
	}
	e.recount()

	if e.order == 0 {
		e.order = 1
	} else {
		e.order = 0
	}
	return nil
}

// Cell returns the value at (x, y).
//
// Precondition: 0 <= x < SizeX and 0 <= y < SizeY.
func (e *Engine) Cell(x, y int) int {
	return e.grid[x][y]
}

// Score returns the current disc counts per player.
func (e *Engine) Score() [2]int {
	return e.score
}

// Order returns the player whose move is next.
func (e *Engine) Order() int {
	return e.order
}

// recount derives the score from the grid. Score is never stored
// independently of the cells.
func (e *Engine) recount() {
	var score [2]int
	for x := range e.grid {
		for y := range e.grid[x] {
			if v := e.grid[x][y]; v != Empty {
				score[v]++
			}
		}
	}
	e.score = score
}
