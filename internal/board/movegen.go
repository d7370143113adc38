package board

// generateAllMoves generates all pseudo-legal moves for the side to move,
// including castling, but excluding nothing: callers needing only legal
// moves should go through GenerateLegalMoves.
func (p *Position) generateAllMoves(ml *MoveList) {
	us := p.SideToMove
	them := us.Other()
	occupied := p.AllOccupied
	enemies := p.Occupied[them]

	p.generatePawnMoves(ml, us, enemies, occupied)

	knights := p.Pieces[us][Knight]
	for knights != 0 {
		from := knights.PopLSB()
		attacks := KnightAttacks(from) &^ p.Occupied[us]
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	bishops := p.Pieces[us][Bishop]
	for bishops != 0 {
		from := bishops.PopLSB()
		attacks := BishopAttacks(from, occupied) &^ p.Occupied[us]
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	rooks := p.Pieces[us][Rook]
	for rooks != 0 {
		from := rooks.PopLSB()
		attacks := RookAttacks(from, occupied) &^ p.Occupied[us]
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	queens := p.Pieces[us][Queen]
	for queens != 0 {
		from := queens.PopLSB()
		attacks := QueenAttacks(from, occupied) &^ p.Occupied[us]
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	p.generateKingMoves(ml, us)
	p.generateCastlingMoves(ml, us)
}

func (p *Position) generatePawnMoves(ml *MoveList, us Color, enemies, occupied Bitboard) {
	pawns := p.Pieces[us][Pawn]
	empty := ^occupied

	var push1, push2, attackL, attackR Bitboard
	var promotionRank Bitboard
	var pushDir int

	if us == White {
		push1 = pawns.North() & empty
		push2 = (push1 & Rank3).North() & empty
		attackL = pawns.NorthWest() & enemies
		attackR = pawns.NorthEast() & enemies
		promotionRank = Rank8
		pushDir = 8
	} else {
		push1 = pawns.South() & empty
		push2 = (push1 & Rank6).South() & empty
		attackL = pawns.SouthWest() & enemies
		attackR = pawns.SouthEast() & enemies
		promotionRank = Rank1
		pushDir = -8
	}

	nonPromo := push1 &^ promotionRank
	for nonPromo != 0 {
		to := nonPromo.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir), to))
	}

	for push2 != 0 {
		to := push2.PopLSB()
		ml.Add(NewMove(Square(int(to)-2*pushDir), to))
	}

	nonPromoL := attackL &^ promotionRank
	for nonPromoL != 0 {
		to := nonPromoL.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir+1), to))
	}

	nonPromoR := attackR &^ promotionRank
	for nonPromoR != 0 {
		to := nonPromoR.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir-1), to))
	}

	promoPush := push1 & promotionRank
	for promoPush != 0 {
		to := promoPush.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir), to)
	}

	promoL := attackL & promotionRank
	for promoL != 0 {
		to := promoL.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir+1), to)
	}

	promoR := attackR & promotionRank
	for promoR != 0 {
		to := promoR.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir-1), to)
	}

	if p.EnPassant != NoSquare {
		epBB := SquareBB(p.EnPassant)
		var epAttackers Bitboard
		if us == White {
			epAttackers = (epBB.SouthWest() | epBB.SouthEast()) & pawns
		} else {
			epAttackers = (epBB.NorthWest() | epBB.NorthEast()) & pawns
		}
		for epAttackers != 0 {
			ml.Add(NewEnPassant(epAttackers.PopLSB(), p.EnPassant))
		}
	}
}

func addPromotions(ml *MoveList, from, to Square) {
	ml.Add(NewPromotion(from, to, Queen))
	ml.Add(NewPromotion(from, to, Rook))
	ml.Add(NewPromotion(from, to, Bishop))
	ml.Add(NewPromotion(from, to, Knight))
}

func (p *Position) generateKingMoves(ml *MoveList, us Color) {
	from := p.KingSquare[us]
	attacks := KingAttacks(from) &^ p.Occupied[us]
	for attacks != 0 {
		ml.Add(NewMove(from, attacks.PopLSB()))
	}
}

// generateCastlingMoves generates castling moves using the generalized
// rookFrom/kingTo/castlePath tables (classical chess is just the Chess960
// tables built with A/H-file rooks).
func (p *Position) generateCastlingMoves(ml *MoveList, us Color) {
	them := us.Other()
	kingSq := p.KingSquare[us]

	for side := 0; side < 2; side++ {
		kingSide := side == 0
		if !p.CastlingRights.CanCastle(us, kingSide) {
			continue
		}
		if p.castlePath[us][side]&p.AllOccupied != 0 {
			continue
		}

		kingTo := p.kingTo[us][side]
		lo, hi := kingSq, kingTo
		if lo > hi {
			lo, hi = hi, lo
		}
		attacked := false
		for sq := lo; sq <= hi; sq++ {
			if p.IsSquareAttacked(sq, them) {
				attacked = true
				break
			}
		}
		if attacked {
			continue
		}

		ml.Add(NewCastling(kingSq, p.rookFrom[us][side]))
	}
}

// generateCaptures generates captures and promotions, for quiescence
// search and staged move generation.
func (p *Position) generateCaptures(ml *MoveList) {
	us := p.SideToMove
	them := us.Other()
	enemies := p.Occupied[them]
	occupied := p.AllOccupied

	pawns := p.Pieces[us][Pawn]
	var attackL, attackR Bitboard
	var promotionRank Bitboard
	var pushDir int

	if us == White {
		attackL = pawns.NorthWest() & enemies
		attackR = pawns.NorthEast() & enemies
		promotionRank = Rank8
		pushDir = 8
	} else {
		attackL = pawns.SouthWest() & enemies
		attackR = pawns.SouthEast() & enemies
		promotionRank = Rank1
		pushDir = -8
	}

	nonPromoL := attackL &^ promotionRank
	for nonPromoL != 0 {
		to := nonPromoL.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir+1), to))
	}
	nonPromoR := attackR &^ promotionRank
	for nonPromoR != 0 {
		to := nonPromoR.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir-1), to))
	}

	promoL := attackL & promotionRank
	for promoL != 0 {
		to := promoL.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir+1), to)
	}
	promoR := attackR & promotionRank
	for promoR != 0 {
		to := promoR.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir-1), to)
	}

	empty := ^occupied
	var push1 Bitboard
	if us == White {
		push1 = pawns.North() & empty & Rank8
	} else {
		push1 = pawns.South() & empty & Rank1
	}
	for push1 != 0 {
		to := push1.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir), to)
	}

	if p.EnPassant != NoSquare {
		epBB := SquareBB(p.EnPassant)
		var epAttackers Bitboard
		if us == White {
			epAttackers = (epBB.SouthWest() | epBB.SouthEast()) & pawns
		} else {
			epAttackers = (epBB.NorthWest() | epBB.NorthEast()) & pawns
		}
		for epAttackers != 0 {
			ml.Add(NewEnPassant(epAttackers.PopLSB(), p.EnPassant))
		}
	}

	knights := p.Pieces[us][Knight]
	for knights != 0 {
		from := knights.PopLSB()
		attacks := KnightAttacks(from) & enemies
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}
	bishops := p.Pieces[us][Bishop]
	for bishops != 0 {
		from := bishops.PopLSB()
		attacks := BishopAttacks(from, occupied) & enemies
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}
	rooks := p.Pieces[us][Rook]
	for rooks != 0 {
		from := rooks.PopLSB()
		attacks := RookAttacks(from, occupied) & enemies
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}
	queens := p.Pieces[us][Queen]
	for queens != 0 {
		from := queens.PopLSB()
		attacks := QueenAttacks(from, occupied) & enemies
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	from := p.KingSquare[us]
	attacks := KingAttacks(from) & enemies
	for attacks != 0 {
		ml.Add(NewMove(from, attacks.PopLSB()))
	}
}

// generateQuiets generates non-capturing, non-promoting moves.
func (p *Position) generateQuiets(ml *MoveList) {
	us := p.SideToMove
	occupied := p.AllOccupied
	empty := ^occupied

	pawns := p.Pieces[us][Pawn]
	var push1, push2 Bitboard
	var promotionRank Bitboard
	var pushDir int
	if us == White {
		push1 = pawns.North() & empty
		push2 = (push1 & Rank3).North() & empty
		promotionRank = Rank8
		pushDir = 8
	} else {
		push1 = pawns.South() & empty
		push2 = (push1 & Rank6).South() & empty
		promotionRank = Rank1
		pushDir = -8
	}
	nonPromo := push1 &^ promotionRank
	for nonPromo != 0 {
		to := nonPromo.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir), to))
	}
	for push2 != 0 {
		to := push2.PopLSB()
		ml.Add(NewMove(Square(int(to)-2*pushDir), to))
	}

	knights := p.Pieces[us][Knight]
	for knights != 0 {
		from := knights.PopLSB()
		attacks := KnightAttacks(from) & empty
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}
	bishops := p.Pieces[us][Bishop]
	for bishops != 0 {
		from := bishops.PopLSB()
		attacks := BishopAttacks(from, occupied) & empty
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}
	rooks := p.Pieces[us][Rook]
	for rooks != 0 {
		from := rooks.PopLSB()
		attacks := RookAttacks(from, occupied) & empty
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}
	queens := p.Pieces[us][Queen]
	for queens != 0 {
		from := queens.PopLSB()
		attacks := QueenAttacks(from, occupied) & empty
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	p.generateKingMoves(ml, us)
	p.generateCastlingMoves(ml, us)
}

// generateEvasions generates moves that get the side to move out of check:
// king moves, captures of the (lone) checker, and blocks when the checker
// is a slider.
func (p *Position) generateEvasions(ml *MoveList) {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]
	checkers := p.Checkers

	p.generateKingMoves(ml, us)

	if checkers.PopCount() > 1 {
		return // double check: only king moves can help
	}

	checkerSq := checkers.LSB()
	target := SquareBB(checkerSq) | Between(ksq, checkerSq)

	occupied := p.AllOccupied
	enemies := p.Occupied[them]

	pawns := p.Pieces[us][Pawn]
	var push1, push2, attackL, attackR Bitboard
	var promotionRank Bitboard
	var pushDir int
	empty := ^occupied
	if us == White {
		push1 = pawns.North() & empty
		push2 = (push1 & Rank3).North() & empty
		attackL = pawns.NorthWest() & enemies
		attackR = pawns.NorthEast() & enemies
		promotionRank = Rank8
		pushDir = 8
	} else {
		push1 = pawns.South() & empty
		push2 = (push1 & Rank6).South() & empty
		attackL = pawns.SouthWest() & enemies
		attackR = pawns.SouthEast() & enemies
		promotionRank = Rank1
		pushDir = -8
	}
	push1 &= target
	push2 &= target
	attackL &= target
	attackR &= target

	addPawnEvasions := func(b Bitboard, delta int) {
		for b != 0 {
			to := b.PopLSB()
			from := Square(int(to) - delta)
			if SquareBB(to)&promotionRank != 0 {
				addPromotions(ml, from, to)
			} else {
				ml.Add(NewMove(from, to))
			}
		}
	}
	addPawnEvasions(push1, pushDir)
	addPawnEvasions(push2, 2*pushDir)
	addPawnEvasions(attackL, pushDir-1)
	addPawnEvasions(attackR, pushDir+1)

	if p.EnPassant != NoSquare && SquareBB(p.EnPassant-Square(pushDir))&SquareBB(checkerSq) != 0 {
		epBB := SquareBB(p.EnPassant)
		var epAttackers Bitboard
		if us == White {
			epAttackers = (epBB.SouthWest() | epBB.SouthEast()) & pawns
		} else {
			epAttackers = (epBB.NorthWest() | epBB.NorthEast()) & pawns
		}
		for epAttackers != 0 {
			ml.Add(NewEnPassant(epAttackers.PopLSB(), p.EnPassant))
		}
	}

	knights := p.Pieces[us][Knight]
	for knights != 0 {
		from := knights.PopLSB()
		attacks := KnightAttacks(from) & target
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}
	bishops := p.Pieces[us][Bishop]
	for bishops != 0 {
		from := bishops.PopLSB()
		attacks := BishopAttacks(from, occupied) & target
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}
	rooks := p.Pieces[us][Rook]
	for rooks != 0 {
		from := rooks.PopLSB()
		attacks := RookAttacks(from, occupied) & target
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}
	queens := p.Pieces[us][Queen]
	for queens != 0 {
		from := queens.PopLSB()
		attacks := QueenAttacks(from, occupied) & target
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}
}

// GenerateLegalMoves generates all legal moves for the position. Intended
// for perft and other one-shot callers; search uses the staged Generator.
func (p *Position) GenerateLegalMoves() *MoveList {
	ml := NewMoveList()
	if p.InCheck() {
		p.generateEvasions(ml)
	} else {
		p.generateAllMoves(ml)
	}
	return p.filterLegalMoves(ml)
}

// GeneratePseudoLegalMoves generates all pseudo-legal moves (may leave the
// king in check).
func (p *Position) GeneratePseudoLegalMoves() *MoveList {
	ml := NewMoveList()
	if p.InCheck() {
		p.generateEvasions(ml)
	} else {
		p.generateAllMoves(ml)
	}
	return ml
}

// GenerateCaptures generates legal captures and promotions.
func (p *Position) GenerateCaptures() *MoveList {
	ml := NewMoveList()
	p.generateCaptures(ml)
	return p.filterLegalMoves(ml)
}

func (p *Position) filterLegalMoves(ml *MoveList) *MoveList {
	result := NewMoveList()
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		if p.IsLegal(m) {
			result.Add(m)
		}
	}
	return result
}

// IsPseudoLegal reports whether m could be produced by move generation in
// the current position: the moving piece exists, belongs to the side to
// move, and the move's shape (normal/capture/promotion/castling/en-passant)
// is consistent with the board. Used by the transposition table and killer
// heuristics to validate a move recalled from another position without
// regenerating the full move list.
func (p *Position) IsPseudoLegal(m Move) bool {
	if m == NoMove || m == NullMove || !m.IsOK() {
		return false
	}
	us := p.SideToMove
	from, to := m.From(), m.To()
	piece := p.PieceAt(from)
	if piece == NoPiece || piece.Color() != us {
		return false
	}

	pt := piece.Type()

	// Castling's "to" is the rook square, which is always own-occupied
	// (by the castling rook itself), so it must be checked before the
	// generic own-occupancy rejection below.
	if m.IsCastling() {
		if pt != King {
			return false
		}
		side := 0
		if to != p.rookFrom[us][0] {
			side = 1
			if to != p.rookFrom[us][1] {
				return false
			}
		}
		if !p.CastlingRights.CanCastle(us, side == 0) {
			return false
		}
		if p.castlePath[us][side]&p.AllOccupied != 0 {
			return false
		}
		return true
	}

	if p.Occupied[us]&SquareBB(to) != 0 {
		return false
	}

	if m.IsEnPassant() {
		return pt == Pawn && to == p.EnPassant
	}

	if m.IsPromotion() && pt != Pawn {
		return false
	}

	switch pt {
	case Pawn:
		return p.pawnMoveIsPseudoLegal(us, from, to, m)
	case Knight:
		return KnightAttacks(from)&SquareBB(to) != 0
	case Bishop:
		return BishopAttacks(from, p.AllOccupied)&SquareBB(to) != 0
	case Rook:
		return RookAttacks(from, p.AllOccupied)&SquareBB(to) != 0
	case Queen:
		return QueenAttacks(from, p.AllOccupied)&SquareBB(to) != 0
	case King:
		return KingAttacks(from)&SquareBB(to) != 0
	}
	return false
}

func (p *Position) pawnMoveIsPseudoLegal(us Color, from, to Square, m Move) bool {
	if m.IsPromotion() != (SquareBB(to)&(Rank1|Rank8) != 0) {
		return false
	}
	delta := int(to) - int(from)
	forward := 8
	startRank := Rank2
	if us == Black {
		forward = -8
		startRank = Rank7
	}

	if delta == forward && p.IsEmpty(to) {
		return true
	}
	if delta == 2*forward && SquareBB(from)&startRank != 0 &&
		p.IsEmpty(Square(int(from)+forward)) && p.IsEmpty(to) {
		return true
	}
	if (delta == forward+1 || delta == forward-1) && PawnAttacks(from, us)&SquareBB(to) != 0 {
		return p.Occupied[us.Other()]&SquareBB(to) != 0
	}
	return false
}

// IsLegal reports whether a pseudo-legal move is legal: it does not leave
// the mover's own king in check, including the en-passant discovered-check
// corner case and castling out of, through, or into check (every square from
// the king's origin to its destination must be unattacked).
func (p *Position) IsLegal(m Move) bool {
	us := p.SideToMove
	them := us.Other()
	from := m.From()
	ksq := p.KingSquare[us]

	if m.IsCastling() {
		side := 0
		if m.To() == p.rookFrom[us][1] {
			side = 1
		}
		lo, hi := from, p.kingTo[us][side]
		if lo > hi {
			lo, hi = hi, lo
		}
		for sq := lo; sq <= hi; sq++ {
			if p.IsSquareAttacked(sq, them) {
				return false
			}
		}
		return true
	}

	if m.IsEnPassant() {
		capSq := m.To() - Square(pawnPush(us))
		occAfter := (p.AllOccupied &^ SquareBB(from) &^ SquareBB(capSq)) | SquareBB(m.To())
		return (RookAttacks(ksq, occAfter)&(p.Pieces[them][Rook]|p.Pieces[them][Queen])) == 0 &&
			(BishopAttacks(ksq, occAfter)&(p.Pieces[them][Bishop]|p.Pieces[them][Queen])) == 0
	}

	if from == ksq {
		occ := p.AllOccupied &^ SquareBB(from)
		return p.AttackersByColor(m.To(), them, occ) == 0
	}

	if p.Blockers(us)&SquareBB(from) == 0 {
		return true // not pinned: cannot expose the king
	}
	return Aligned(from, m.To(), ksq)
}

// DoMove applies m, pushing a new PositionInfo snapshot and updating the
// incremental Zobrist/pawn hashes, occupancy, and derived check/pin state.
func (p *Position) DoMove(m Move) {
	prev := p.current()
	us := p.SideToMove
	them := us.Other()
	from, to := m.From(), m.To()
	piece := p.PieceAt(from)
	pt := piece.Type()

	next := PositionInfo{
		CastlingRights: prev.CastlingRights,
		EnPassant:      NoSquare,
		Captured:       NoPiece,
		Move:           m,
	}

	hash := p.Hash
	pawnKey := p.PawnKey

	hash ^= zobristSideToMove
	hash ^= zobristCastling[prev.CastlingRights]
	if prev.EnPassant != NoSquare {
		hash ^= zobristEnPassant[prev.EnPassant.File()]
	}

	if !m.IsCastling() {
		if m.IsEnPassant() {
			capSq := to - Square(pawnPush(us))
			captured := p.removePiece(capSq)
			next.Captured = captured
			hash ^= zobristPiece[them][Pawn][capSq]
			pawnKey ^= zobristPiece[them][Pawn][capSq]
		} else if captured := p.PieceAt(to); captured != NoPiece {
			next.Captured = captured
			p.removePiece(to)
			hash ^= zobristPiece[them][captured.Type()][to]
			if captured.Type() == Pawn {
				pawnKey ^= zobristPiece[them][Pawn][to]
			}
		}

		p.movePieceRaw(from, to)
		hash ^= zobristPiece[us][pt][from]
		hash ^= zobristPiece[us][pt][to]
		if pt == Pawn {
			pawnKey ^= zobristPiece[us][Pawn][from]
			pawnKey ^= zobristPiece[us][Pawn][to]
		}

		if m.IsPromotion() {
			promoPt := m.Promotion()
			p.Pieces[us][Pawn] &^= SquareBB(to)
			p.Pieces[us][promoPt] |= SquareBB(to)
			p.board[to] = NewPiece(promoPt, us)
			hash ^= zobristPiece[us][Pawn][to]
			hash ^= zobristPiece[us][promoPt][to]
			pawnKey ^= zobristPiece[us][Pawn][to]
		}
	} else {
		side := 0
		if to == p.rookFrom[us][1] {
			side = 1
		}
		rookFrom := p.rookFrom[us][side]
		rookTo := p.rookTo[us][side]
		kingTo := p.kingTo[us][side]

		p.removePiece(from)
		p.removePiece(rookFrom)
		p.setPiece(NewPiece(King, us), kingTo)
		p.setPiece(NewPiece(Rook, us), rookTo)

		hash ^= zobristPiece[us][King][from]
		hash ^= zobristPiece[us][King][kingTo]
		hash ^= zobristPiece[us][Rook][rookFrom]
		hash ^= zobristPiece[us][Rook][rookTo]
	}

	next.CastlingRights &^= p.castleMask[from] | p.castleMask[to]

	if pt == Pawn && abs(int(to)-int(from)) == 16 {
		epSquare := Square((int(from) + int(to)) / 2)
		next.EnPassant = epSquare
		hash ^= zobristEnPassant[epSquare.File()]
	}

	hash ^= zobristCastling[next.CastlingRights]

	if pt == Pawn || next.Captured != NoPiece {
		next.HalfMoveClock = 0
	} else {
		next.HalfMoveClock = prev.HalfMoveClock + 1
	}
	next.PliesFromNull = prev.PliesFromNull + 1

	if us == Black {
		p.FullMoveNumber++
	}

	p.SideToMove = them
	p.EnPassant = next.EnPassant
	p.CastlingRights = next.CastlingRights
	p.HalfMoveClock = next.HalfMoveClock
	p.Hash = hash
	p.PawnKey = pawnKey
	next.Zobrist = hash
	next.PawnKey = pawnKey

	p.history = append(p.history, next)
	p.refreshDerivedState()
	p.updateRepetitionFlag()
}

// UndoMove reverts the most recent DoMove, restoring the prior PositionInfo
// snapshot and popping the history stack.
func (p *Position) UndoMove(m Move) {
	captured := p.current().Captured
	them := p.SideToMove
	us := them.Other()
	from, to := m.From(), m.To()

	if us == Black {
		p.FullMoveNumber--
	}

	if m.IsPromotion() {
		promoPt := m.Promotion()
		p.Pieces[us][promoPt] &^= SquareBB(to)
		p.Pieces[us][Pawn] |= SquareBB(to)
		p.board[to] = NewPiece(Pawn, us)
	}

	if m.IsCastling() {
		side := 0
		if to == p.rookFrom[us][1] {
			side = 1
		}
		rookFrom := p.rookFrom[us][side]
		rookTo := p.rookTo[us][side]
		kingTo := p.kingTo[us][side]

		p.removePiece(kingTo)
		p.removePiece(rookTo)
		p.setPiece(NewPiece(King, us), from)
		p.setPiece(NewPiece(Rook, us), rookFrom)
	} else {
		p.movePieceRaw(to, from)
	}

	if captured != NoPiece {
		if m.IsEnPassant() {
			capSq := to - Square(pawnPush(us))
			p.setPiece(captured, capSq)
		} else if !m.IsCastling() {
			p.setPiece(captured, to)
		}
	}

	p.history = p.history[:len(p.history)-1]
	prev := p.current()

	p.SideToMove = us
	p.EnPassant = prev.EnPassant
	p.CastlingRights = prev.CastlingRights
	p.HalfMoveClock = prev.HalfMoveClock
	p.Hash = prev.Zobrist
	p.PawnKey = prev.PawnKey
	p.Checkers = prev.Checkers
}

// DoNullMove passes the turn without moving a piece, used by null-move
// pruning. The en-passant square is always cleared (a null move cannot be
// followed by an en-passant capture of the prior move).
func (p *Position) DoNullMove() {
	prev := p.current()
	hash := p.Hash ^ zobristSideToMove
	if prev.EnPassant != NoSquare {
		hash ^= zobristEnPassant[prev.EnPassant.File()]
	}

	next := PositionInfo{
		Zobrist:        hash,
		PawnKey:        p.PawnKey,
		CastlingRights: prev.CastlingRights,
		HalfMoveClock:  prev.HalfMoveClock + 1,
		PliesFromNull:  0,
		EnPassant:      NoSquare,
		Captured:       NoPiece,
		Move:           NullMove,
	}

	p.SideToMove = p.SideToMove.Other()
	p.EnPassant = NoSquare
	p.Hash = hash

	p.history = append(p.history, next)
	p.refreshDerivedState()
}

// UndoNullMove reverts DoNullMove.
func (p *Position) UndoNullMove() {
	p.history = p.history[:len(p.history)-1]
	prev := p.current()

	p.SideToMove = p.SideToMove.Other()
	p.EnPassant = prev.EnPassant
	p.Hash = prev.Zobrist
	p.Checkers = prev.Checkers
}

// HasLegalMoves returns true if the side to move has any legal move.
func (p *Position) HasLegalMoves() bool {
	ml := p.GeneratePseudoLegalMoves()
	for i := 0; i < ml.Len(); i++ {
		if p.IsLegal(ml.Get(i)) {
			return true
		}
	}
	return false
}

// IsCheckmate returns true if the side to move is in check with no legal move.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate returns true if the side to move is not in check but has no
// legal move.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

// IsInsufficientMaterial returns true if neither side has enough material
// to deliver checkmate by any sequence of legal moves.
func (p *Position) IsInsufficientMaterial() bool {
	if p.Pieces[White][Pawn]|p.Pieces[Black][Pawn] != 0 ||
		p.Pieces[White][Rook]|p.Pieces[Black][Rook] != 0 ||
		p.Pieces[White][Queen]|p.Pieces[Black][Queen] != 0 {
		return false
	}

	wMinors := p.Pieces[White][Knight].PopCount() + p.Pieces[White][Bishop].PopCount()
	bMinors := p.Pieces[Black][Knight].PopCount() + p.Pieces[Black][Bishop].PopCount()

	if wMinors+bMinors == 0 {
		return true
	}
	if wMinors <= 1 && bMinors == 0 {
		return true
	}
	if bMinors <= 1 && wMinors == 0 {
		return true
	}
	return false
}

// IsGameOver reports any rule-based game end: checkmate, stalemate,
// fifty-move rule, repetition, or insufficient material. Kept distinct
// from IsDraw (position.go), which covers only the fast fifty-move and
// repetition checks used mid-search.
func (p *Position) IsGameOver() bool {
	return p.IsDraw() || p.IsInsufficientMaterial() || !p.HasLegalMoves()
}

// SEE estimates the net material gain of playing m and letting both sides
// recapture on the destination square optimally, via the standard swap
// algorithm over a sequence of least-valuable-attacker captures.
func (p *Position) SEE(m Move) int {
	from, to := m.From(), m.To()
	attacker := p.PieceAt(from)
	if attacker == NoPiece {
		return 0
	}

	var gain0 int
	if m.IsEnPassant() {
		gain0 = PieceValue[Pawn]
	} else {
		victim := p.PieceAt(to)
		if victim == NoPiece {
			return 0
		}
		gain0 = PieceValue[victim.Type()]
	}
	if m.IsPromotion() {
		gain0 += PieceValue[m.Promotion()] - PieceValue[Pawn]
	}

	return p.seeSwap(to, from, attacker, gain0)
}

func (p *Position) seeSwap(target, excludeFrom Square, firstAttacker Piece, initialGain int) int {
	var gain [32]int
	d := 0
	gain[d] = initialGain

	occupied := p.AllOccupied &^ SquareBB(excludeFrom)
	attackerValue := PieceValue[firstAttacker.Type()]
	side := firstAttacker.Color().Other()

	for {
		d++
		gain[d] = attackerValue - gain[d-1]
		if max(-gain[d-1], gain[d]) < 0 {
			break
		}

		attackerSq, attackerPiece := p.leastValuableAttacker(target, side, occupied)
		if attackerSq == NoSquare {
			break
		}
		occupied &^= SquareBB(attackerSq)
		attackerValue = PieceValue[attackerPiece.Type()]
		side = side.Other()
	}

	for d--; d > 0; d-- {
		gain[d-1] = -max(-gain[d-1], gain[d])
	}
	return gain[0]
}

func (p *Position) leastValuableAttacker(target Square, side Color, occupied Bitboard) (Square, Piece) {
	pawns := p.Pieces[side][Pawn] & occupied
	if attackers := pawns & PawnAttacks(target, side.Other()); attackers != 0 {
		return attackers.LSB(), NewPiece(Pawn, side)
	}
	if attackers := p.Pieces[side][Knight] & occupied & KnightAttacks(target); attackers != 0 {
		return attackers.LSB(), NewPiece(Knight, side)
	}
	if attackers := p.Pieces[side][Bishop] & occupied & BishopAttacks(target, occupied); attackers != 0 {
		return attackers.LSB(), NewPiece(Bishop, side)
	}
	if attackers := p.Pieces[side][Rook] & occupied & RookAttacks(target, occupied); attackers != 0 {
		return attackers.LSB(), NewPiece(Rook, side)
	}
	if attackers := p.Pieces[side][Queen] & occupied & QueenAttacks(target, occupied); attackers != 0 {
		return attackers.LSB(), NewPiece(Queen, side)
	}
	if attackers := p.Pieces[side][King] & occupied & KingAttacks(target); attackers != 0 {
		return attackers.LSB(), NewPiece(King, side)
	}
	return NoSquare, NoPiece
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
