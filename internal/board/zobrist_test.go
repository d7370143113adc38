package board

import "testing"

// TestZobristFromScratchMatchesParse cross-checks ComputeHash against the
// incrementally-maintained Hash set up by ParseFEN itself.
func TestZobristFromScratchMatchesParse(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 2",
	}
	for _, fen := range fens {
		pos, err := ParseFEN(fen, false)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}
		if got, want := pos.Hash, pos.ComputeHash(); got != want {
			t.Errorf("fen %q: Hash=%#x ComputeHash=%#x", fen, got, want)
		}
	}
}

// TestZobristIncrementalMatchesFromScratch plays a short game via DoMove and
// checks the incrementally-updated Hash against a from-scratch recomputation
// after every move, including a capture, a double pawn push, and castling.
func TestZobristIncrementalMatchesFromScratch(t *testing.T) {
	pos, err := ParseFEN(StartFEN, false)
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}

	uciMoves := []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "a7a6", "b5a4", "g8f6", "e1g1"}
	for _, uci := range uciMoves {
		m := findTestMove(t, pos, uci)
		pos.DoMove(m)
		if got, want := pos.Hash, pos.ComputeHash(); got != want {
			t.Fatalf("after %s: Hash=%#x ComputeHash=%#x", uci, got, want)
		}
	}
}

// TestZobristUndoRestoresHash checks that UndoMove restores Hash to match a
// from-scratch recomputation of the position it returns to.
func TestZobristUndoRestoresHash(t *testing.T) {
	pos, err := ParseFEN(StartFEN, false)
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	before := pos.Hash

	m := findTestMove(t, pos, "e2e4")
	pos.DoMove(m)
	pos.UndoMove(m)

	if pos.Hash != before {
		t.Fatalf("Hash after undo = %#x, want original %#x", pos.Hash, before)
	}
	if got, want := pos.Hash, pos.ComputeHash(); got != want {
		t.Fatalf("Hash=%#x ComputeHash=%#x", got, want)
	}
}

// TestZobristTranspositionSamePosition checks that two move orders reaching
// the same position produce the same hash (the core transposition-table
// correctness property).
func TestZobristTranspositionSamePosition(t *testing.T) {
	p1, err := ParseFEN(StartFEN, false)
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	for _, uci := range []string{"g1f3", "g8f6"} {
		p1.DoMove(findTestMove(t, p1, uci))
	}

	p2, err := ParseFEN(StartFEN, false)
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	for _, uci := range []string{"b1c3", "g8f6", "g1f3"} {
		p2.DoMove(findTestMove(t, p2, uci))
	}

	if p1.Hash != p2.Hash {
		t.Fatalf("transposed move orders hashed differently: %#x vs %#x", p1.Hash, p2.Hash)
	}
}

// TestZobristDistinctCastlingAndEnPassantStates checks that differing
// castling rights or en passant squares change the hash, since both are
// folded into it.
func TestZobristDistinctCastlingAndEnPassantStates(t *testing.T) {
	noRights, err := ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w - - 0 1", false)
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	allRights, err := ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", false)
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	if noRights.Hash == allRights.Hash {
		t.Fatal("differing castling rights hashed identically")
	}

	noEP, err := ParseFEN("rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2", false)
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	withEP, err := ParseFEN("rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 2", false)
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	if noEP.Hash == withEP.Hash {
		t.Fatal("presence/absence of an en passant square hashed identically")
	}
}

func findTestMove(t *testing.T, pos *Position, uci string) Move {
	t.Helper()
	ml := pos.GenerateLegalMoves()
	for i := 0; i < ml.Len(); i++ {
		if m := ml.Get(i); m.String() == uci {
			return m
		}
	}
	t.Fatalf("move %s not found among legal moves", uci)
	return NoMove
}
