package nnue

import (
	"testing"

	"github.com/chessplay/engine/internal/board"
)

// capturedBefore mirrors the search package's pre-move capture lookup:
// Evaluator.Update must see the piece that stood on the capture square
// before DoMove removes it.
func capturedBefore(pos *board.Position, m board.Move) board.Piece {
	if m.IsEnPassant() {
		return board.NewPiece(board.Pawn, pos.SideToMove.Other())
	}
	return pos.PieceAt(m.To())
}

func newTestEvaluator() *Evaluator {
	net := NewNetwork()
	net.InitRandom(42)
	return NewEvaluator(net)
}

// playAndCheck drives both pos and eval through m, then asserts the
// incrementally updated accumulator matches a from-scratch refresh.
func playAndCheck(t *testing.T, pos *board.Position, eval *Evaluator, m board.Move) {
	t.Helper()
	captured := capturedBefore(pos, m)

	pos.DoMove(m)
	eval.Push()
	eval.Update(pos, m, captured)

	got := eval.Evaluate(pos)

	fresh := NewEvaluator(eval.net)
	fresh.Refresh(pos)
	want := fresh.Evaluate(pos)

	if got != want {
		t.Errorf("after move %s: incremental eval = %d, full refresh = %d", m.String(), got, want)
	}
}

func TestEvaluatorIncrementalMatchesRefresh(t *testing.T) {
	pos := board.NewPosition()
	eval := newTestEvaluator()
	eval.Refresh(pos)

	// A short, unremarkable opening sequence of quiet moves, with castling
	// rights still intact (captures are covered by the tests below).
	moveStrs := []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1c4", "g8f6"}
	for _, ms := range moveStrs {
		m := findMove(t, pos, ms)
		playAndCheck(t, pos, eval, m)
	}
}

func TestEvaluatorIncrementalMatchesRefreshWithCapture(t *testing.T) {
	pos := board.NewPosition()
	eval := newTestEvaluator()
	eval.Refresh(pos)

	// 1. e4 d5 2. exd5 - a genuine pawn capture.
	for _, ms := range []string{"e2e4", "d7d5", "e4d5"} {
		m := findMove(t, pos, ms)
		playAndCheck(t, pos, eval, m)
	}
}

func TestEvaluatorIncrementalMatchesRefreshEnPassant(t *testing.T) {
	// 1. e4 a6 2. e5 d5 3. exd6 e.p. - exercises the en passant capture-
	// square adjustment in updateDelta.
	pos := board.NewPosition()
	eval := newTestEvaluator()
	eval.Refresh(pos)

	for _, ms := range []string{"e2e4", "a7a6", "e4e5", "d7d5"} {
		m := findMove(t, pos, ms)
		playAndCheck(t, pos, eval, m)
	}

	m := findMove(t, pos, "e5d6")
	if !m.IsEnPassant() {
		t.Fatalf("expected e5d6 to resolve to an en passant capture, got %v", m)
	}
	playAndCheck(t, pos, eval, m)
}

func TestEvaluatorIncrementalMatchesRefreshCastling(t *testing.T) {
	pos, err := board.ParseFEN("rnbqk2r/pppp1ppp/5n2/2b1p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4", false)
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	eval := newTestEvaluator()
	eval.Refresh(pos)

	// findMove matches raw From/To squares, and this engine's internal
	// castling encoding sets To() to the rook's origin square (h1), not
	// the king's classical destination (g1).
	m := findMove(t, pos, "e1h1")
	if !m.IsCastling() {
		t.Fatalf("expected e1h1 to resolve to a castling move, got %v", m)
	}
	playAndCheck(t, pos, eval, m)
}

func TestEvaluatorIncrementalMatchesRefreshKingCrossesBucket(t *testing.T) {
	// A king walk from e2 that crosses both the kingside/queenside half and
	// the bucket boundary, forcing a RefreshTable rebuild mid-sequence; the
	// black king shuffles on h8/g8 in between.
	pos, err := board.ParseFEN("7k/8/8/8/8/8/4K3/8 w - - 0 1", false)
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	eval := newTestEvaluator()
	eval.Refresh(pos)

	for _, ms := range []string{"e2d3", "h8g8", "d3c4", "g8h8", "c4b5"} {
		m := findMove(t, pos, ms)
		playAndCheck(t, pos, eval, m)
	}
}

func TestEvaluatorPushPopRestoresAccumulator(t *testing.T) {
	pos := board.NewPosition()
	eval := newTestEvaluator()
	eval.Refresh(pos)

	before := eval.Evaluate(pos)

	m := findMove(t, pos, "e2e4")
	captured := capturedBefore(pos, m)
	pos.DoMove(m)
	eval.Push()
	eval.Update(pos, m, captured)
	_ = eval.Evaluate(pos)

	pos.UndoMove(m)
	eval.Pop()

	after := eval.Evaluate(pos)
	if after != before {
		t.Errorf("Pop did not restore the pre-move evaluation: before=%d after=%d", before, after)
	}
}

func TestFeatureIndexDistinctPerPerspective(t *testing.T) {
	white := FeatureIndex(board.White, board.E1, board.Pawn, board.White, board.E4)
	black := FeatureIndex(board.Black, board.E8, board.Pawn, board.White, board.E4)
	if white == black {
		t.Error("the same square/piece should generally index differently across mirrored perspectives")
	}
	if white < 0 || white >= InputSize || black < 0 || black >= InputSize {
		t.Errorf("feature index out of range: white=%d black=%d (max %d)", white, black, InputSize)
	}
}

func TestKingBucketSymmetry(t *testing.T) {
	for sq := board.Square(0); sq < 64; sq++ {
		wb := kingBucket[board.White][sq]
		bb := kingBucket[board.Black][sq.Mirror()]
		if wb != bb {
			t.Errorf("square %v: White bucket %d != Black-mirrored bucket %d", sq, wb, bb)
		}
	}
}

func TestClippedReLU(t *testing.T) {
	cases := []struct {
		in   int16
		want int32
	}{
		{-100, 0},
		{0, 0},
		{128, 128},
		{ClippedReLUMax, ClippedReLUMax},
		{ClippedReLUMax + 50, ClippedReLUMax},
	}
	for _, c := range cases {
		if got := ClippedReLU(c.in); got != c.want {
			t.Errorf("ClippedReLU(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

// findMove resolves a UCI long-algebraic move string against pos's legal
// moves, failing the test if it isn't found.
func findMove(t *testing.T, pos *board.Position, uci string) board.Move {
	t.Helper()
	from := board.NewSquare(int(uci[0]-'a'), int(uci[1]-'1'))
	to := board.NewSquare(int(uci[2]-'a'), int(uci[3]-'1'))

	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.From() == from && m.To() == to {
			return m
		}
	}
	t.Fatalf("move %s not found among legal moves for position\n%s", uci, pos.String())
	return board.NoMove
}
