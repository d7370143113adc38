package board

import "testing"

// stubOrderer is a minimal Orderer whose scores are controlled per test.
type stubOrderer struct {
	butterfly func(c Color, m Move) int
}

func (s *stubOrderer) ButterflyScore(c Color, m Move) int {
	if s.butterfly != nil {
		return s.butterfly(c, m)
	}
	return 0
}
func (s *stubOrderer) CaptureScore(piece Piece, to Square, captured PieceType) int { return 0 }
func (s *stubOrderer) ContinuationScore(ply int, piece Piece, to Square) int       { return 0 }
func (s *stubOrderer) IsKiller(c Color, ply int, m Move) bool                      { return false }
func (s *stubOrderer) Killers(c Color, ply int) (Move, Move)                       { return NoMove, NoMove }

// TestMovePickerYieldsBadQuietsWhenAllBelowFloor exercises a position with no
// legal captures where every legal quiet scores at or below quietFloor: the
// BAD_QUIETS stage must still hand out every one of them rather than seeing
// an already-drained GOOD_QUIETS bucket and reporting no moves at all.
func TestMovePickerYieldsBadQuietsWhenAllBelowFloor(t *testing.T) {
	pos, err := ParseFEN("8/8/8/4k3/8/8/4K3/8 w - - 0 1", false)
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	orderer := &stubOrderer{butterfly: func(c Color, m Move) int { return quietFloor - 1 }}
	mp := NewMovePicker(pos, orderer, 0, NoMove)

	var yielded []Move
	for {
		m := mp.Next()
		if m == NoMove {
			break
		}
		yielded = append(yielded, m)
	}

	legal := pos.GenerateLegalMoves()
	if legal.Len() == 0 {
		t.Fatal("test position unexpectedly has no legal moves")
	}
	if len(yielded) != legal.Len() {
		t.Fatalf("MovePicker yielded %d moves, want %d (all legal quiets, even below quietFloor)", len(yielded), legal.Len())
	}

	seen := make(map[Move]bool, len(yielded))
	for _, m := range yielded {
		seen[m] = true
	}
	for i := 0; i < legal.Len(); i++ {
		if m := legal.Get(i); !seen[m] {
			t.Errorf("legal move %s was never yielded", m)
		}
	}
}

// TestMovePickerGoodAndBadQuietsBothYielded checks that when quiets span both
// sides of the floor, both buckets contribute moves rather than one
// shadowing the other.
func TestMovePickerGoodAndBadQuietsBothYielded(t *testing.T) {
	pos, err := ParseFEN("8/8/8/4k3/8/8/4K3/8 w - - 0 1", false)
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	legal := pos.GenerateLegalMoves()
	if legal.Len() < 2 {
		t.Fatal("need at least two legal moves for this test")
	}
	lowScored := legal.Get(0)

	orderer := &stubOrderer{butterfly: func(c Color, m Move) int {
		if m == lowScored {
			return quietFloor - 1
		}
		return 0
	}}
	mp := NewMovePicker(pos, orderer, 0, NoMove)

	var yielded []Move
	for {
		m := mp.Next()
		if m == NoMove {
			break
		}
		yielded = append(yielded, m)
	}
	if len(yielded) != legal.Len() {
		t.Fatalf("MovePicker yielded %d moves, want %d", len(yielded), legal.Len())
	}
	if yielded[len(yielded)-1] != lowScored {
		t.Errorf("below-floor move should be ordered last (in BAD_QUIETS), got position of %s: %v", lowScored, yielded)
	}
}
