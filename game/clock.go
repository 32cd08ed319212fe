package game

import (
	"math/rand/v2"
	"time"
)

// CellPicker picks the cell to light for a round. Injected so tests can
// script the board.
type CellPicker interface {
	Pick(gridSize int) Cell
}

type randomCellPicker struct{}

func (randomCellPicker) Pick(gridSize int) Cell {
	return Cell{Row: rand.IntN(gridSize), Col: rand.IntN(gridSize)}
}

func NewRandomCellPicker() CellPicker {
	return randomCellPicker{}
}

// Scheduler defers a callback. The production implementation is a plain
// time.AfterFunc; tests capture the callbacks and fire them by hand.
type Scheduler interface {
	After(d time.Duration, fn func())
}

type timerScheduler struct{}

func (timerScheduler) After(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

func NewTimerScheduler() Scheduler {
	return timerScheduler{}
}
