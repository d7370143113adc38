package board

// Zobrist hash keys for position hashing.
// Uses PRNG with fixed seed for reproducibility.
var (
	zobristPiece      [2][7][64]uint64 // [Color][PieceType][Square] - 7 to handle NoPieceType safely
	zobristEnPassant  [8]uint64        // One per file
	zobristCastling   [16]uint64       // Indexed directly by the CastlingRights bitmask (0-15)
	zobristSideToMove uint64           // XOR when black to move
)

// zobristSeed seeds the key generator below. The castling table is indexed
// by the CastlingRights bitmask itself rather than by rook file, so it needs
// no Chess960-specific entries: a Shredder-FEN position and a classical
// position with the same rights-and-side-to-move hash identically, and the
// actual rook/king squares for a given right are carried in Position's
// rookFrom/kingTo/rookTo tables (see setupCastlingTables in fen.go), not in
// the hash.
const zobristSeed uint64 = 0x98F107A2BEEF1234

func init() {
	initZobrist()
	verifyZobristKeysDistinct()
}

// prng is a xorshift64* generator used to derive the fixed Zobrist key
// table below; it is not used for anything that needs cryptographic
// unpredictability.
type prng struct {
	state uint64
}

func newPRNG(seed uint64) *prng {
	return &prng{state: seed}
}

// xorshift64* algorithm
func (p *prng) next() uint64 {
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	return p.state * 0x2545F4914F6CDD1D
}

func initZobrist() {
	rng := newPRNG(zobristSeed)

	// Piece keys
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for sq := A1; sq <= H8; sq++ {
				zobristPiece[c][pt][sq] = rng.next()
			}
		}
	}

	// En passant keys (one per file)
	for file := 0; file < 8; file++ {
		zobristEnPassant[file] = rng.next()
	}

	// Castling keys (all 16 combinations)
	for i := 0; i < 16; i++ {
		zobristCastling[i] = rng.next()
	}

	// Side to move key
	zobristSideToMove = rng.next()
}

// verifyZobristKeysDistinct panics if the fixed key table contains a
// duplicate, which would silently alias two distinct positions onto the
// same transposition-table bucket key. xorshift64* with this seed is known
// collision-free across the table below; this is a cheap startup assertion
// that a future change to the table (a different seed, a resized table)
// can't reintroduce one unnoticed.
func verifyZobristKeysDistinct() {
	seen := make(map[uint64]struct{}, 2*7*64+8+16+1)
	add := func(k uint64) {
		if _, dup := seen[k]; dup {
			panic("zobrist: duplicate key in fixed table")
		}
		seen[k] = struct{}{}
	}
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			for sq := A1; sq <= H8; sq++ {
				add(zobristPiece[c][pt][sq])
			}
		}
	}
	for file := 0; file < 8; file++ {
		add(zobristEnPassant[file])
	}
	for i := 0; i < 16; i++ {
		add(zobristCastling[i])
	}
	add(zobristSideToMove)
}

// ZobristPiece returns the Zobrist key for a piece on a square.
func ZobristPiece(c Color, pt PieceType, sq Square) uint64 {
	return zobristPiece[c][pt][sq]
}

// ZobristEnPassant returns the Zobrist key for an en passant file.
func ZobristEnPassant(file int) uint64 {
	return zobristEnPassant[file]
}

// ZobristCastling returns the Zobrist key for castling rights.
func ZobristCastling(cr CastlingRights) uint64 {
	return zobristCastling[cr]
}

// ZobristSideToMove returns the Zobrist key for side to move.
func ZobristSideToMove() uint64 {
	return zobristSideToMove
}
