package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the standard starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN parses a FEN string (or Shredder/X-FEN when chess960 is true) and
// returns a fully-initialized Position with history[0] populated.
func ParseFEN(fen string, chess960 bool) (*Position, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return nil, fmt.Errorf("invalid FEN: need at least 4 fields, got %d", len(parts))
	}

	pos := &Position{
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
		Chess960:       chess960,
	}
	pos.KingSquare[White] = NoSquare
	pos.KingSquare[Black] = NoSquare

	// Field order matters: piece placement must land before the castling
	// field is parsed, since Shredder-FEN rook-file letters are resolved
	// relative to each side's (already-placed) king file.
	if err := parsePiecePlacement(pos, parts[0]); err != nil {
		return nil, err
	}

	switch parts[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return nil, fmt.Errorf("invalid side to move: %s", parts[1])
	}

	pos.findKings()

	if err := parseCastlingRights(pos, parts[2]); err != nil {
		return nil, err
	}

	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid en passant square: %s", parts[3])
		}
		pos.EnPassant = sq
	}

	halfMoveClock := 0
	if len(parts) > 4 {
		hmc, err := strconv.Atoi(parts[4])
		if err != nil {
			return nil, fmt.Errorf("invalid half-move clock: %s", parts[4])
		}
		halfMoveClock = hmc
	}
	pos.HalfMoveClock = halfMoveClock

	if len(parts) > 5 {
		fmn, err := strconv.Atoi(parts[5])
		if err != nil {
			return nil, fmt.Errorf("invalid full-move number: %s", parts[5])
		}
		pos.FullMoveNumber = fmn
	}

	pos.updateOccupied()
	pos.rebuildBoardArray()
	pos.setupCastlingTables()

	pos.history = make([]PositionInfo, 1, 256)
	info := &pos.history[0]
	info.CastlingRights = pos.CastlingRights
	info.HalfMoveClock = halfMoveClock
	info.PliesFromNull = halfMoveClock
	info.EnPassant = pos.EnPassant
	info.Captured = NoPiece
	info.Move = NoMove

	pos.Hash = pos.computeHashFromScratch()
	pos.PawnKey = pos.computePawnKeyFromScratch()
	info.Zobrist = pos.Hash
	info.PawnKey = pos.PawnKey

	pos.refreshDerivedState()

	if err := pos.Validate(); err != nil {
		return nil, err
	}

	return pos, nil
}

// parsePiecePlacement parses the piece placement section of a FEN string.
func parsePiecePlacement(pos *Position, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("invalid piece placement: need 8 ranks, got %d", len(ranks))
	}

	for i, rankStr := range ranks {
		rank := 7 - i
		file := 0

		for _, c := range rankStr {
			if file > 7 {
				return fmt.Errorf("too many squares in rank %d", rank+1)
			}
			if c >= '1' && c <= '8' {
				file += int(c - '0')
			} else {
				piece := PieceFromChar(byte(c))
				if piece == NoPiece {
					return fmt.Errorf("invalid piece character: %c", c)
				}
				sq := NewSquare(file, rank)
				pos.setPiece(piece, sq)
				file++
			}
		}
		if file != 8 {
			return fmt.Errorf("invalid number of squares in rank %d: got %d", rank+1, file)
		}
	}
	return nil
}

// parseCastlingRights parses the castling field: classical KQkq, Shredder
// rook-file letters (A-H/a-h), or "-". Resolving a Shredder letter to
// king-side/queen-side needs the king's file, already known at this point.
func parseCastlingRights(pos *Position, castling string) error {
	if castling == "-" {
		pos.CastlingRights = NoCastling
		return nil
	}

	for _, c := range castling {
		switch {
		case c == 'K':
			pos.CastlingRights |= WhiteKingSideCastle
		case c == 'Q':
			pos.CastlingRights |= WhiteQueenSideCastle
		case c == 'k':
			pos.CastlingRights |= BlackKingSideCastle
		case c == 'q':
			pos.CastlingRights |= BlackQueenSideCastle
		case c >= 'A' && c <= 'H':
			assignShredderRight(pos, White, int(c-'A'))
		case c >= 'a' && c <= 'h':
			assignShredderRight(pos, Black, int(c-'a'))
		default:
			return fmt.Errorf("invalid castling character: %c", c)
		}
	}
	return nil
}

// assignShredderRight records a Chess960 rook-file castling right; which
// flank it represents is decided by comparing the rook's file to the king's.
func assignShredderRight(pos *Position, c Color, rookFile int) {
	pos.Chess960 = true
	rank := Square(0)
	if c == Black {
		rank = 56
	}
	sq := NewSquare(rookFile, int(rank)/8)
	kingFile := pos.KingSquare[c].File()

	if rookFile > kingFile {
		pos.CastlingRights |= rightBit(c, true)
		pos.rookFrom[c][0] = sq
	} else {
		pos.CastlingRights |= rightBit(c, false)
		pos.rookFrom[c][1] = sq
	}
}

// setupCastlingTables builds the generalized rookFrom/kingTo/rookTo/
// castlePath/castleMask tables used by both classical and Chess960
// castling. Classical (non-Shredder) FEN leaves rookFrom unset
// (NoSquare/zero), so it defaults to the A/H file here.
func (p *Position) setupCastlingTables() {
	for c := White; c <= Black; c++ {
		rank := Square(0)
		if c == Black {
			rank = 56
		}
		kingSq := p.KingSquare[c]

		for side := 0; side < 2; side++ {
			kingSide := side == 0
			if !p.CastlingRights.CanCastle(c, kingSide) {
				continue
			}

			rookFrom := p.rookFrom[c][side]
			if rookFrom == 0 {
				// Classical default: rook starts on the A or H file.
				if kingSide {
					rookFrom = rank + 7
				} else {
					rookFrom = rank + 0
				}
			}
			p.rookFrom[c][side] = rookFrom

			var kingTo, rookTo Square
			if kingSide {
				kingTo = rank + 6 // G-file
				rookTo = rank + 5 // F-file
			} else {
				kingTo = rank + 2 // C-file
				rookTo = rank + 3 // D-file
			}
			p.kingTo[c][side] = kingTo
			p.rookTo[c][side] = rookTo

			var path Bitboard
			for s := minSq(kingSq, kingTo); s <= maxSq(kingSq, kingTo); s++ {
				path |= SquareBB(s)
			}
			for s := minSq(rookFrom, rookTo); s <= maxSq(rookFrom, rookTo); s++ {
				path |= SquareBB(s)
			}
			path &^= SquareBB(kingSq)
			path &^= SquareBB(rookFrom)
			p.castlePath[c][side] = path

			p.castleMask[rookFrom] |= rightBit(c, kingSide)
		}
		p.castleMask[kingSq] |= rightBit(c, true) | rightBit(c, false)
	}
}

func minSq(a, b Square) Square {
	if a < b {
		return a
	}
	return b
}

func maxSq(a, b Square) Square {
	if a > b {
		return a
	}
	return b
}

// ToFEN returns the FEN representation of the position.
func (p *Position) ToFEN() string {
	var sb strings.Builder

	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			sq := NewSquare(file, rank)
			piece := p.PieceAt(sq)
			if piece == NoPiece {
				empty++
			} else {
				if empty > 0 {
					sb.WriteString(strconv.Itoa(empty))
					empty = 0
				}
				sb.WriteString(piece.String())
			}
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	if p.SideToMove == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}

	sb.WriteByte(' ')
	sb.WriteString(p.CastlingRights.String())

	sb.WriteByte(' ')
	sb.WriteString(p.EnPassant.String())

	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.HalfMoveClock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.FullMoveNumber))

	return sb.String()
}

// computeHashFromScratch computes the Zobrist hash from the current board
// state, ignoring the incrementally-maintained Hash field. Used at from_fen
// time and by tests cross-checking invariant 2.
func (p *Position) computeHashFromScratch() uint64 {
	var hash uint64
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			bb := p.Pieces[c][pt]
			for bb != 0 {
				sq := bb.PopLSB()
				hash ^= zobristPiece[c][pt][sq]
			}
		}
	}
	if p.SideToMove == Black {
		hash ^= zobristSideToMove
	}
	hash ^= zobristCastling[p.CastlingRights]
	if p.EnPassant != NoSquare {
		hash ^= zobristEnPassant[p.EnPassant.File()]
	}
	return hash
}

// ComputeHash recomputes the Zobrist key from scratch, for cross-checking
// against the incrementally-maintained p.Hash (invariant 2).
func (p *Position) ComputeHash() uint64 {
	return p.computeHashFromScratch()
}

func (p *Position) computePawnKeyFromScratch() uint64 {
	var key uint64
	for c := White; c <= Black; c++ {
		bb := p.Pieces[c][Pawn]
		for bb != 0 {
			sq := bb.PopLSB()
			key ^= zobristPiece[c][Pawn][sq]
		}
	}
	return key
}

// ComputePawnKey recomputes the pawn-only hash key from scratch.
func (p *Position) ComputePawnKey() uint64 {
	return p.computePawnKeyFromScratch()
}
