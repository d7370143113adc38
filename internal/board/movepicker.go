package board

// Orderer supplies the move-ordering statistics a MovePicker scores moves
// with. It is implemented by the search package's History; the interface
// lives here (rather than board importing search) to avoid a dependency
// cycle, since search necessarily imports board.
type Orderer interface {
	ButterflyScore(c Color, m Move) int
	CaptureScore(piece Piece, to Square, captured PieceType) int
	ContinuationScore(ply int, piece Piece, to Square) int
	IsKiller(c Color, ply int, m Move) bool
	Killers(c Color, ply int) (Move, Move)
}

// Stage identifies where a MovePicker is in its lazy generation sequence.
type Stage int

const (
	stageTTMove Stage = iota
	stageInitCaptures
	stageGoodCaptures
	stageKiller1
	stageKiller2
	stageInitQuiets
	stageGoodQuiets
	stageBadCaptures
	stageBadQuiets
	stageInitEvasions
	stageAllEvasions
	stageDone
)

const (
	goodCaptureBase = 100000
	quietBase       = 100000
	quietFloor      = -10000
)

type scoredMove struct {
	m     Move
	score int
}

// MovePicker lazily produces moves for a search node in best-first order:
// the TT move, then captures/promotions that look good by SEE, then the two
// killer moves, then quiets ordered by history score, then the captures
// that looked bad, then the rest of the quiets. Scoring and partitioning of
// each bucket is done once, on first visit to that bucket, and moves are
// handed out by repeated select-max-and-swap rather than a full sort, since
// most searches cut off before exhausting a bucket.
type MovePicker struct {
	pos     *Position
	orderer Orderer
	ply     int
	us      Color
	ttMove  Move

	stage      Stage
	skipQuiets bool
	inCheck    bool

	captures    []scoredMove
	capturesIdx int
	badCaptures []scoredMove
	badIdx      int

	quiets       []scoredMove
	quietsIdx    int
	badQuiets    []scoredMove
	badQuietsIdx int

	killer1, killer2 Move

	evasions    MoveList
	evasionsIdx int
}

// NewMovePicker starts a new staged move sequence for the side to move in
// pos. ttMove may be NoMove if none is available.
func NewMovePicker(pos *Position, orderer Orderer, ply int, ttMove Move) *MovePicker {
	mp := &MovePicker{
		pos:     pos,
		orderer: orderer,
		ply:     ply,
		us:      pos.SideToMove,
		ttMove:  ttMove,
		inCheck: pos.InCheck(),
	}
	if mp.inCheck {
		mp.stage = stageInitEvasions
	} else if ttMove != NoMove && pos.IsPseudoLegal(ttMove) {
		mp.stage = stageTTMove
	} else {
		mp.stage = stageInitCaptures
	}
	mp.killer1, mp.killer2 = orderer.Killers(mp.us, ply)
	return mp
}

// SkipQuiets suppresses every remaining quiet move, used by move-count
// pruning once a node has tried enough quiets without improving alpha.
func (mp *MovePicker) SkipQuiets() {
	mp.skipQuiets = true
}

// Next returns the next move in staged order, or NoMove when exhausted.
func (mp *MovePicker) Next() Move {
	for {
		switch mp.stage {
		case stageTTMove:
			mp.stage = stageInitCaptures
			return mp.ttMove

		case stageInitCaptures:
			mp.genCaptures()
			mp.stage = stageGoodCaptures

		case stageGoodCaptures:
			if m, ok := mp.popBest(&mp.captures, &mp.capturesIdx, true); ok {
				return m
			}
			mp.stage = stageKiller1

		case stageKiller1:
			mp.stage = stageKiller2
			if mp.usableKiller(mp.killer1) {
				return mp.killer1
			}

		case stageKiller2:
			mp.stage = stageInitQuiets
			if mp.usableKiller(mp.killer2) {
				return mp.killer2
			}

		case stageInitQuiets:
			if mp.skipQuiets {
				mp.stage = stageBadCaptures
				continue
			}
			mp.genQuiets()
			mp.stage = stageGoodQuiets

		case stageGoodQuiets:
			if mp.skipQuiets {
				mp.stage = stageBadCaptures
				continue
			}
			if m, ok := mp.popBest(&mp.quiets, &mp.quietsIdx, false); ok {
				return m
			}
			mp.stage = stageBadCaptures

		case stageBadCaptures:
			mp.stage = stageBadQuiets
			if mp.badIdx < len(mp.badCaptures) {
				m := mp.badCaptures[mp.badIdx].m
				mp.badIdx++
				mp.stage = stageBadCaptures
				if mp.isDup(m) {
					continue
				}
				return m
			}

		case stageBadQuiets:
			if mp.skipQuiets {
				return NoMove
			}
			if m, ok := mp.popBest(&mp.badQuiets, &mp.badQuietsIdx, false); ok {
				return m
			}
			return NoMove

		case stageInitEvasions:
			var ml MoveList
			mp.pos.generateEvasions(&ml)
			mp.evasions = *mp.pos.filterLegalMoves(&ml)
			mp.stage = stageAllEvasions

		case stageAllEvasions:
			if mp.evasionsIdx < mp.evasions.Len() {
				m := mp.evasions.Get(mp.evasionsIdx)
				mp.evasionsIdx++
				return m
			}
			return NoMove

		case stageDone:
			return NoMove
		}
	}
}

func (mp *MovePicker) usableKiller(k Move) bool {
	if k == NoMove || k == mp.ttMove || mp.skipQuiets {
		return false
	}
	return mp.pos.IsPseudoLegal(k) && k.IsQuiet(mp.pos)
}

func (mp *MovePicker) isDup(m Move) bool {
	return m == mp.ttMove || m == mp.killer1 || m == mp.killer2
}

func (mp *MovePicker) genCaptures() {
	var ml MoveList
	mp.pos.generateCaptures(&ml)
	mp.captures = make([]scoredMove, 0, ml.Len())
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		if mp.isDup(m) || !mp.pos.IsLegal(m) {
			continue
		}
		see := mp.pos.SEE(m)
		piece := mp.pos.PieceAt(m.From())
		captured := mp.pos.PieceAt(m.To()).Type()
		if m.IsEnPassant() || captured == NoPieceType {
			// En passant, or a non-capturing promotion push.
			captured = Pawn
		}
		hist := mp.orderer.CaptureScore(piece, m.To(), captured)
		score := see + hist
		if see >= 0 {
			score += goodCaptureBase
			mp.captures = append(mp.captures, scoredMove{m, score})
		} else {
			mp.badCaptures = append(mp.badCaptures, scoredMove{m, score})
		}
	}
}

func (mp *MovePicker) genQuiets() {
	var ml MoveList
	mp.pos.generateQuiets(&ml)
	mp.quiets = make([]scoredMove, 0, ml.Len())
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		if mp.isDup(m) || !mp.pos.IsLegal(m) {
			continue
		}
		piece := mp.pos.PieceAt(m.From())
		score := mp.orderer.ButterflyScore(mp.us, m) + mp.orderer.ContinuationScore(mp.ply, piece, m.To())
		if score <= quietFloor {
			// Below the floor: still a legal quiet that must eventually be
			// yielded (in BAD_QUIETS), just sorted behind every move that
			// cleared the floor rather than interleaved with them.
			mp.badQuiets = append(mp.badQuiets, scoredMove{m, score})
			continue
		}
		mp.quiets = append(mp.quiets, scoredMove{m, score + quietBase})
	}
}

// popBest selects the highest-scored remaining move in list[*idx:] via
// linear scan, swaps it to *idx, and returns it.
func (mp *MovePicker) popBest(list *[]scoredMove, idx *int, checkDup bool) (Move, bool) {
	s := *list
	i := *idx
	for i < len(s) {
		best := i
		for j := i + 1; j < len(s); j++ {
			if s[j].score > s[best].score {
				best = j
			}
		}
		s[i], s[best] = s[best], s[i]
		m := s[i].m
		i++
		*idx = i
		if checkDup && mp.isDup(m) {
			continue
		}
		return m, true
	}
	*idx = i
	return NoMove, false
}
