package search

import (
	"testing"

	"github.com/chessplay/engine/internal/board"
)

// materialEvaluator is a minimal Evaluator stub for exercising search
// control flow without pulling in the NNUE network: it scores a position by
// simple material count from the side to move's perspective. It keeps no
// incremental state, since these tests never inspect the push/pop stack.
type materialEvaluator struct{}

func (materialEvaluator) Evaluate(pos *board.Position) int {
	score := 0
	for pt := board.Pawn; pt <= board.King; pt++ {
		score += pos.Pieces[pos.SideToMove][pt].PopCount() * board.PieceValue[pt]
		score -= pos.Pieces[pos.SideToMove.Other()][pt].PopCount() * board.PieceValue[pt]
	}
	return score
}
func (materialEvaluator) Push()                                                          {}
func (materialEvaluator) Pop()                                                            {}
func (materialEvaluator) Refresh(pos *board.Position)                                     {}
func (materialEvaluator) Update(pos *board.Position, m board.Move, captured board.Piece) {}
func (materialEvaluator) Reset()                                                          {}

func newQsearchTestSearcher(t *testing.T, fen string) (*Searcher, *board.Position) {
	t.Helper()
	pos, err := board.ParseFEN(fen, false)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	tt := NewTable(1)
	s := NewSearcher(pos, tt, materialEvaluator{}, NewTimeManager())
	return s, pos
}

// TestQuiescenceStoresTTEntry checks that quiescence writes a transposition
// table entry for the position it searched, at the depth the qsearch TT
// convention specifies (0 out of check, 1 in check).
func TestQuiescenceStoresTTEntry(t *testing.T) {
	// A position with a pending capture, so quiescence does real work
	// instead of returning stand-pat immediately.
	s, pos := newQsearchTestSearcher(t, "4k3/8/8/3p4/4P3/8/8/4K3 w - - 0 1")

	hash := pos.Hash
	if _, hit := s.tt.Probe(hash); hit {
		t.Fatal("table should start empty")
	}

	s.quiescence(0, -Infinity, Infinity)

	entry, hit := s.tt.Probe(hash)
	if !hit {
		t.Fatal("quiescence did not store a transposition table entry for the searched position")
	}
	if entry.Depth != 0 {
		t.Errorf("out-of-check qsearch entry depth = %d, want 0", entry.Depth)
	}
}

// TestQuiescenceStoresDepthOneWhenInCheck checks the in-check qsearch TT
// convention: entries store depth 1, since evasions (not just captures) are
// searched from a checked position.
func TestQuiescenceStoresDepthOneWhenInCheck(t *testing.T) {
	s, pos := newQsearchTestSearcher(t, "4k3/8/8/8/7b/8/6P1/4K3 w - - 0 1")
	if !pos.InCheck() {
		t.Fatal("test position should have the side to move in check")
	}

	s.quiescence(0, -Infinity, Infinity)

	entry, hit := s.tt.Probe(pos.Hash)
	if !hit {
		t.Fatal("quiescence did not store a transposition table entry while in check")
	}
	if entry.Depth != 1 {
		t.Errorf("in-check qsearch entry depth = %d, want 1", entry.Depth)
	}
}

// TestQuiescenceProbeReusesStoredScore checks that a second quiescence call
// on the same position, within a window the stored bound resolves, returns
// immediately via the TT probe rather than re-expanding moves: the second
// call visits exactly one node (a single probe-and-return versus a full
// capture search).
func TestQuiescenceProbeReusesStoredScore(t *testing.T) {
	s, pos := newQsearchTestSearcher(t, "4k3/8/8/3p4/4P3/8/8/4K3 w - - 0 1")

	first := s.quiescence(0, -Infinity, Infinity)
	entry, hit := s.tt.Probe(pos.Hash)
	if !hit {
		t.Fatal("expected an entry after the first quiescence call")
	}
	if entry.Bound() == BoundNone {
		t.Fatal("stored entry has no bound")
	}

	// A narrow (non-PV) window at the stored score should hit the TT probe
	// and return the same score without searching again.
	before := s.nodes
	second := s.quiescence(0, first, first+1)
	if second != first {
		t.Errorf("second quiescence call returned %d, want %d (matching the first)", second, first)
	}
	if visited := s.nodes - before; visited != 1 {
		t.Errorf("second quiescence call visited %d nodes, want 1 (probe-and-return)", visited)
	}
}

