package search

import (
	"testing"

	"github.com/chessplay/engine/internal/board"
)

func TestTableProbeMiss(t *testing.T) {
	tt := NewTable(1)
	if _, ok := tt.Probe(0x1234567890abcdef); ok {
		t.Error("empty table should never hit")
	}
}

func TestTableStoreAndProbe(t *testing.T) {
	tt := NewTable(1)
	hash := uint64(0xdeadbeef12345678)
	move := board.NewMove(board.E2, board.E4)

	tt.Store(hash, 8, 120, 100, move, BoundExact, true)

	e, ok := tt.Probe(hash)
	if !ok {
		t.Fatal("expected a hit after Store")
	}
	if e.Move != move || int(e.Score) != 120 || int(e.StaticEval) != 100 || e.Bound() != BoundExact || !e.PV() {
		t.Errorf("stored entry mismatch: %+v", e)
	}
}

func TestTableKeyCollisionMiss(t *testing.T) {
	tt := NewTable(1)
	hash := uint64(0x1111111100000000)
	tt.Store(hash, 8, 50, 50, board.NewMove(board.D2, board.D4), BoundExact, false)

	// Same bucket (identical low bits), different high bits: should miss.
	other := hash ^ (1 << 63)
	if _, ok := tt.Probe(other); ok {
		t.Error("differing stored key should not match Probe")
	}
}

func TestTableReplacementPolicy(t *testing.T) {
	tt := NewTable(1)
	hash := uint64(0xaaaaaaaa00000000)
	m1 := board.NewMove(board.A2, board.A4)
	m2 := board.NewMove(board.B2, board.B4)

	tt.Store(hash, 10, 10, 10, m1, BoundLower, false)
	// Shallower, non-exact store to the same key should be rejected.
	tt.Store(hash, 4, 999, 999, m2, BoundLower, false)

	e, ok := tt.Probe(hash)
	if !ok || e.Move != m1 {
		t.Errorf("shallower non-exact store should not replace a deeper entry, got move %v", e.Move)
	}

	// An exact bound always replaces, regardless of depth.
	tt.Store(hash, 1, 42, 42, m2, BoundExact, false)
	e, ok = tt.Probe(hash)
	if !ok || e.Move != m2 || e.Bound() != BoundExact {
		t.Errorf("exact-bound store should always replace, got %+v", e)
	}
}

func TestTableStoreKeepsMoveWhenNotGiven(t *testing.T) {
	tt := NewTable(1)
	hash := uint64(0x2222222200000000)
	m1 := board.NewMove(board.G1, board.F3)

	tt.Store(hash, 8, 30, 30, m1, BoundExact, false)
	// A later store to the same key with NoMove (e.g. an all-fail-low node)
	// should keep the previously stored best move.
	tt.Store(hash, 8, -10, -10, board.NoMove, BoundUpper, false)

	e, ok := tt.Probe(hash)
	if !ok || e.Move != m1 {
		t.Errorf("expected previous move %v to be retained, got %v", m1, e.Move)
	}
}

func TestTableNewSearchBumpsGeneration(t *testing.T) {
	tt := NewTable(1)
	hash := uint64(0x3333333300000000)
	tt.Store(hash, 8, 0, 0, board.NoMove, BoundExact, false)
	tt.NewSearch()

	// A shallower store from the new generation should now be accepted,
	// since the stored entry's age no longer matches the current one.
	m := board.NewMove(board.C2, board.C4)
	tt.Store(hash, 1, 5, 5, m, BoundLower, false)

	e, ok := tt.Probe(hash)
	if !ok || e.Move != m {
		t.Errorf("stale-generation entry should be replaced regardless of depth, got %+v", e)
	}
}

func TestTableHashFullEmpty(t *testing.T) {
	tt := NewTable(1)
	if hf := tt.HashFull(); hf != 0 {
		t.Errorf("HashFull on an empty table = %d, want 0", hf)
	}
}

func TestTableResizeRoundsToPowerOfTwo(t *testing.T) {
	tt := NewTable(1)
	n := len(tt.entries)
	if n&(n-1) != 0 {
		t.Errorf("table size %d is not a power of two", n)
	}
}
