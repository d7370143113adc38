package search

import (
	"testing"

	"github.com/chessplay/engine/internal/board"
)

func TestHistoryKillers(t *testing.T) {
	h := NewHistory()
	pos := board.NewPosition()
	moves := pos.GenerateLegalMoves()
	if moves.Len() < 2 {
		t.Fatalf("expected at least 2 legal moves from start position")
	}
	m1, m2 := moves.Get(0), moves.Get(1)

	h.SetKiller(board.White, 3, m1)
	k0, k1 := h.Killers(board.White, 3)
	if k0 != m1 || k1 != board.NoMove {
		t.Fatalf("after first SetKiller, got (%v, %v), want (%v, NoMove)", k0, k1, m1)
	}

	h.SetKiller(board.White, 3, m2)
	k0, k1 = h.Killers(board.White, 3)
	if k0 != m2 || k1 != m1 {
		t.Fatalf("after second SetKiller, got (%v, %v), want (%v, %v)", k0, k1, m2, m1)
	}

	if !h.IsKiller(board.White, 3, m1) || !h.IsKiller(board.White, 3, m2) {
		t.Error("expected both killers to report IsKiller true")
	}

	// Re-setting the existing first killer is a no-op.
	h.SetKiller(board.White, 3, m2)
	k0, k1 = h.Killers(board.White, 3)
	if k0 != m2 || k1 != m1 {
		t.Fatalf("re-setting current killer should be a no-op, got (%v, %v)", k0, k1)
	}

	// A different ply/color is unaffected.
	if h.IsKiller(board.Black, 3, m1) {
		t.Error("killer set for White should not leak to Black")
	}
	if h.IsKiller(board.White, 4, m1) {
		t.Error("killer set at ply 3 should not leak to ply 4")
	}
}

func TestHistoryUpdateQuietGravity(t *testing.T) {
	h := NewHistory()
	pos := board.NewPosition()
	moves := pos.GenerateLegalMoves()
	if moves.Len() < 3 {
		t.Fatalf("expected at least 3 legal moves")
	}
	best := moves.Get(0)
	tried := []board.Move{moves.Get(1), moves.Get(2)}

	piece := board.NewPiece(board.Pawn, board.White)
	stack := NewContinuationStack()

	h.UpdateQuiet(board.White, 0, best, append([]board.Move{best}, tried...), piece, 6, false, stack)

	if h.ButterflyScore(board.White, best) <= 0 {
		t.Errorf("best move should gain positive butterfly score, got %d", h.ButterflyScore(board.White, best))
	}
	for _, m := range tried {
		if h.ButterflyScore(board.White, m) >= 0 {
			t.Errorf("tried-but-rejected move %v should be penalized, got %d", m, h.ButterflyScore(board.White, m))
		}
	}

	k0, _ := h.Killers(board.White, 0)
	if k0 != best {
		t.Errorf("best quiet move should become the killer, got %v want %v", k0, best)
	}
}

func TestHistoryGravitySaturates(t *testing.T) {
	h := NewHistory()
	m := board.NewMove(board.A2, board.A3)

	for i := 0; i < 10000; i++ {
		h.updateButterfly(board.White, m, historyBonus(20))
	}
	score := h.ButterflyScore(board.White, m)
	if score > butterflyMax || score < -butterflyMax {
		t.Errorf("butterfly score %d escaped the [-%d,%d] saturation bound", score, butterflyMax, butterflyMax)
	}
}

func TestContinuationStack(t *testing.T) {
	cs := NewContinuationStack()
	piece := board.NewPiece(board.Knight, board.Black)

	cs.Push(5, piece, board.F3)
	p, sq, ok := cs.At(5)
	if !ok || p != piece || sq != board.F3 {
		t.Fatalf("At(5) = (%v, %v, %v), want (%v, %v, true)", p, sq, ok, piece, board.F3)
	}

	if _, _, ok := cs.At(6); ok {
		t.Error("At(6) should be unset")
	}

	cs.Clear(5)
	if _, _, ok := cs.At(5); ok {
		t.Error("At(5) should be unset after Clear")
	}
}
