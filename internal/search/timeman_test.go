package search

import (
	"testing"
	"time"

	"github.com/chessplay/engine/internal/board"
)

func TestTimeManagerMoveTime(t *testing.T) {
	tm := NewTimeManager()
	tm.Init(Limits{MoveTime: 500 * time.Millisecond}, board.White, 0)

	if tm.OptimumTime() != 500*time.Millisecond || tm.MaximumTime() != 500*time.Millisecond {
		t.Errorf("movetime should set both budgets to the exact duration, got opt=%v max=%v", tm.OptimumTime(), tm.MaximumTime())
	}
	if !tm.CanStartNewIteration() {
		t.Error("a fresh movetime search should always allow starting an iteration")
	}
}

func TestTimeManagerInfinite(t *testing.T) {
	tm := NewTimeManager()
	tm.Init(Limits{Infinite: true}, board.White, 0)

	if tm.ShouldStop(1_000_000) {
		t.Error("an infinite search should never self-stop on node count")
	}
	if !tm.CanStartNewIteration() {
		t.Error("an infinite search should always allow a new iteration")
	}
}

func TestTimeManagerNodeLimit(t *testing.T) {
	tm := NewTimeManager()
	tm.Init(Limits{MoveTime: time.Hour, Nodes: 1000}, board.White, 0)

	if tm.ShouldStop(999) {
		t.Error("should not stop before the node limit is reached")
	}
	if !tm.ShouldStop(1000) {
		t.Error("should stop once the node limit is reached")
	}
}

func TestTimeManagerStopIsImmediate(t *testing.T) {
	tm := NewTimeManager()
	tm.Init(Limits{Infinite: true}, board.White, 0)
	tm.Stop()

	if !tm.ShouldStop(0) {
		t.Error("ShouldStop should report true immediately after Stop()")
	}
	if tm.CanStartNewIteration() {
		t.Error("CanStartNewIteration should report false immediately after Stop()")
	}
}

func TestTimeManagerClockBudgetOrdering(t *testing.T) {
	tm := NewTimeManager()
	tm.Init(Limits{WTime: 10 * time.Second, WInc: 100 * time.Millisecond}, board.White, 0)

	if tm.OptimumTime() <= 0 {
		t.Error("optimum time should be positive with a real clock")
	}
	if tm.MaximumTime() < tm.OptimumTime() {
		t.Errorf("maximum time (%v) should never be less than optimum time (%v)", tm.MaximumTime(), tm.OptimumTime())
	}
	if tm.MaximumTime() > 10*time.Second {
		t.Errorf("maximum time %v should not exceed the whole clock allotment", tm.MaximumTime())
	}
}

func TestTimeManagerDeeperPlyUsesMoreTime(t *testing.T) {
	early := NewTimeManager()
	early.Init(Limits{WTime: 60 * time.Second}, board.White, 0)

	late := NewTimeManager()
	late.Init(Limits{WTime: 60 * time.Second}, board.White, 60)

	if late.OptimumTime() < early.OptimumTime() {
		t.Errorf("a later-game ply should not get a smaller optimum budget: early=%v late=%v", early.OptimumTime(), late.OptimumTime())
	}
}
