package search

import (
	"math"

	"github.com/chessplay/engine/internal/board"
	"github.com/chessplay/engine/internal/elog"
)

// instabilityWarnThreshold is how many consecutive best-move changes across
// iterative-deepening depths trigger a diagnostic warning: this many
// reversals usually means the position is sharp enough that the time
// manager's stability-based extension logic is doing real work.
const instabilityWarnThreshold = 4

const (
	Infinity    = 30000
	MateValue   = 29000
	MateInMax   = MateValue - MaxPly
)

// Evaluator produces a centipawn score for the side to move and maintains a
// per-search incremental accumulator stack, matching internal/nnue's
// Evaluator method set exactly so it can be passed in directly.
type Evaluator interface {
	Evaluate(pos *board.Position) int
	Push()
	Pop()
	Refresh(pos *board.Position)
	Update(pos *board.Position, m board.Move, captured board.Piece)
	Reset()
}

// PVTable records the principal variation discovered at each ply, filled in
// bottom-up as the search unwinds: a child's PV is copied into the parent's
// row once the child's move is confirmed to stay on the PV.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

func (pv *PVTable) update(ply int, m board.Move) {
	pv.moves[ply][ply] = m
	for i := ply + 1; i < pv.length[ply+1]; i++ {
		pv.moves[ply][i] = pv.moves[ply+1][i]
	}
	pv.length[ply] = pv.length[ply+1]
	if pv.length[ply] <= ply {
		pv.length[ply] = ply + 1
	}
}

// Line returns the PV rooted at ply 0 as a slice of moves.
func (pv *PVTable) Line() []board.Move {
	return append([]board.Move(nil), pv.moves[0][:pv.length[0]]...)
}

// lmrTable[depth][moveNumber] is the base late-move reduction in plies,
// following the standard log(depth)*log(moveCount) shape; every entry is at
// least 1, and negamax consults it only from depth 3 and the third move on.
var lmrTable [64][64]int

func init() {
	for d := 1; d < 64; d++ {
		for n := 1; n < 64; n++ {
			lmrTable[d][n] = int(1.25 + math.Log(float64(d))*math.Log(float64(n))/3.0)
		}
	}
}

// Searcher runs iterative-deepening PVS over one thread's private Position
// clone, sharing only the Table with its siblings. One Searcher exists per
// search thread; everything it owns (History, continuation stack, PV,
// evaluator accumulator stack) is thread-local.
type Searcher struct {
	pos  *board.Position
	tt   *Table
	hist *History
	cont *ContinuationStack
	eval Evaluator

	tm *TimeManager

	nodes     uint64
	seldepth  int
	pv        PVTable
	rootDepth int
	rootDelta int
	excluded  [MaxPly]board.Move
	stopped   bool

	// running iterative-deepening state, carried across successive calls to
	// IterativeDeepenOne so a Lazy SMP helper thread that starts at a staggered
	// depth still aspirates off its own prior iteration.
	avg                    int
	lastMove               board.Move
	stability, instability int
}

// NewSearcher builds a searcher over pos, sharing tt with other threads.
func NewSearcher(pos *board.Position, tt *Table, eval Evaluator, tm *TimeManager) *Searcher {
	return &Searcher{
		pos:  pos,
		tt:   tt,
		hist: NewHistory(),
		cont: NewContinuationStack(),
		eval: eval,
		tm:   tm,
	}
}

// Nodes returns the count of nodes visited so far this search.
func (s *Searcher) Nodes() uint64 { return s.nodes }

// PV returns the principal variation found at the root.
func (s *Searcher) PV() []board.Move { return s.pv.Line() }

// SelDepth returns the deepest ply reached so far this search.
func (s *Searcher) SelDepth() int { return s.seldepth }

// Stop requests the search abort at its next poll.
func (s *Searcher) Stop() { s.stopped = true }

// Stopped reports whether the search has halted, either because it was
// asked to or because the time manager cut it off.
func (s *Searcher) Stopped() bool { return s.stopped }

func (s *Searcher) checkStop() bool {
	if s.nodes&1023 == 0 {
		if s.tm != nil && s.tm.ShouldStop(s.nodes) {
			s.stopped = true
		}
	}
	return s.stopped
}

// IterativeDeepen runs increasing-depth searches with aspiration windows
// until the time manager or maxDepth cuts it off, returning the best move
// and score found at the deepest completed iteration. This is the
// single-thread entry point; Lazy SMP helper threads call
// IterativeDeepenOne directly so they can start at a staggered depth.
func (s *Searcher) IterativeDeepen(maxDepth int) (board.Move, int) {
	var bestMove board.Move
	var bestScore int

	for depth := 1; depth <= maxDepth; depth++ {
		move, score, ok := s.IterativeDeepenOne(depth)
		if !ok {
			break
		}
		bestMove, bestScore = move, score
		if s.stopped {
			break
		}
	}

	return bestMove, bestScore
}

// IterativeDeepenOne runs a single iterative-deepening iteration at depth,
// using and updating the searcher's running aspiration-window state (avg
// score, move stability). ok is false if the iteration should not be
// reported: either the time manager vetoed starting it, or it was aborted
// mid-search with no usable result (depth 1 always reports, since the
// search must produce some legal move).
func (s *Searcher) IterativeDeepenOne(depth int) (move board.Move, score int, ok bool) {
	if s.tm != nil && !s.tm.CanStartNewIteration() {
		return board.NoMove, 0, false
	}

	if depth < 5 || s.avg == 0 {
		score = s.negamax(depth, 0, -Infinity, Infinity, true)
	} else {
		delta := 20 + s.avg*s.avg/10000
		alpha := s.avg - delta
		beta := s.avg + delta
		failedHigh := 0
		for {
			s.rootDelta = beta - alpha
			newDepth := depth - failedHigh
			if newDepth < 1 {
				newDepth = 1
			}
			score = s.negamax(newDepth, 0, alpha, beta, true)
			if s.stopped {
				break
			}
			if score <= alpha {
				beta = (alpha + beta) / 2
				alpha = score - delta
				failedHigh = 0
			} else if score >= beta {
				beta = score + delta
				failedHigh++
			} else {
				break
			}
			delta += delta / 2
			if alpha < -Infinity {
				alpha = -Infinity
			}
			if beta > Infinity {
				beta = Infinity
			}
		}
	}

	if s.stopped && depth > 1 {
		return board.NoMove, 0, false
	}

	if s.pv.length[0] > 0 {
		move = s.pv.moves[0][0]
	}
	if s.avg == 0 {
		s.avg = score
	} else {
		s.avg = (s.avg + score) / 2
	}

	if move != board.NoMove {
		if move == s.lastMove {
			s.stability++
			s.instability = 0
		} else {
			s.instability++
			s.stability = 0
			if s.instability == instabilityWarnThreshold {
				elog.Get().Warningf("search: best move changed %d iterations in a row at depth %d (score %d)", s.instability, depth, score)
			}
		}
		s.lastMove = move
	}

	if s.tm != nil {
		s.tm.AdjustForStability(s.stability)
		s.tm.AdjustForInstability(s.instability)
	}

	return move, score, true
}

// negamax searches one node of the tree and returns a score from the side
// to move's perspective, following the 15-step node design: stop-flag
// poll, mate-distance pruning, TT probe, standpat/eval with TT-eval
// substitution, razoring, futility pruning, null-move pruning with
// verification, internal iterative deepening, then the move loop (LMR,
// singular extensions, move-count pruning, capture futility).
func (s *Searcher) negamax(depth, ply int, alpha, beta int, cutNode bool) int {
	pvNode := beta-alpha > 1
	rootNode := ply == 0

	s.pv.length[ply] = ply

	if depth <= 0 {
		return s.quiescence(ply, alpha, beta)
	}

	s.nodes++
	if s.checkStop() {
		return 0
	}
	if ply > s.seldepth {
		s.seldepth = ply
	}

	if !rootNode {
		// Mate-distance pruning: a shorter mate than already guaranteed
		// cannot improve the result at this node.
		alpha = maxInt(alpha, -MateValue+ply)
		beta = minInt(beta, MateValue-ply-1)
		if alpha >= beta {
			return alpha
		}

		if s.pos.IsDraw() || s.pos.HasGameCycled(ply) {
			return 0
		}
	}

	inCheck := s.pos.InCheck()
	excludedMove := s.excluded[ply]

	hash := s.pos.Hash
	ttEntry, ttHit := s.tt.Probe(hash)
	var ttMove board.Move
	var ttScore int
	ttScoreUsable := false
	if ttHit && excludedMove == board.NoMove {
		ttMove = ttEntry.Move
		ttScore = AdjustScoreFromTT(int(ttEntry.Score), ply, s.pos.HalfMoveClock)
		if !pvNode && int(ttEntry.Depth) >= depth {
			switch ttEntry.Bound() {
			case BoundExact:
				ttScoreUsable = true
			case BoundLower:
				ttScoreUsable = ttScore >= beta
			case BoundUpper:
				ttScoreUsable = ttScore <= alpha
			}
		}
	}
	if ttScoreUsable {
		return ttScore
	}

	var staticEval int
	if inCheck {
		staticEval = -MateValue
	} else if ttHit {
		staticEval = int(ttEntry.StaticEval)
		if staticEval == 0 {
			staticEval = s.eval.Evaluate(s.pos)
		}
	} else {
		staticEval = s.eval.Evaluate(s.pos)
	}
	s.hist.SetEval(s.pos.SideToMove, ply, staticEval)
	improving := !inCheck && ply >= 2 && staticEval > s.hist.Eval(s.pos.SideToMove, ply-2)

	if !pvNode && !inCheck && excludedMove == board.NoMove {
		// Razoring: hopeless-looking quiet node, fall to qsearch early.
		if depth <= 3 && staticEval+150*depth < alpha {
			q := s.quiescence(ply, alpha, alpha+1)
			if q <= alpha {
				return q
			}
		}

		// Futility pruning: a large static-eval margin over beta means
		// no quiet move here is likely to matter.
		if depth <= 8 && staticEval-75*depth >= beta && staticEval < MateInMax {
			return staticEval
		}

		// Null-move pruning.
		if depth >= 3 && staticEval >= beta && s.pos.HasNonPawnMaterial() {
			r := minInt((staticEval-beta)/200, 6) + depth/3 + 5
			newDepth := depth - r
			if newDepth < 1 {
				newDepth = 1
			}
			s.pos.DoNullMove()
			s.cont.Clear(ply)
			score := -s.negamax(newDepth, ply+1, -beta, -beta+1, !cutNode)
			s.pos.UndoNullMove()
			if s.stopped {
				return 0
			}
			if score >= beta {
				if score > MateInMax {
					score = beta
				}
				if newDepth >= depth-r && depth < 12 {
					return score
				}
				// Verification search at reduced depth before trusting a
				// deep null-move cutoff.
				verify := s.negamax(newDepth, ply, beta-1, beta, false)
				if verify >= beta {
					return score
				}
			}
		}
	}

	if pvNode && ttMove == board.NoMove && depth >= 6 {
		// Internal iterative deepening: no TT move to order with, so take
		// a cheap shallower pass purely to populate one.
		s.negamax(depth-4, ply, alpha, beta, cutNode)
		if e, ok := s.tt.Probe(hash); ok {
			ttMove = e.Move
		}
	}

	picker := board.NewMovePicker(s.pos, s.hist, ply, ttMove)

	bestScore := -Infinity
	bestMove := board.NoMove
	movesSearched := 0
	quietsTriedHere := make([]board.Move, 0, 32)
	capturesTriedHere := make([]board.Move, 0, 16)
	capPiecesTriedHere := make([]board.Piece, 0, 16)
	capTargetsTriedHere := make([]board.PieceType, 0, 16)

	for {
		m := picker.Next()
		if m == board.NoMove {
			break
		}
		if m == excludedMove {
			continue
		}
		if !s.pos.IsLegal(m) {
			continue
		}

		isCapture := m.IsCapture(s.pos) || m.IsPromotion()
		givesCheck := s.pos.GivesCheck(m)
		piece := s.pos.PieceAt(m.From())

		if !rootNode && bestScore > -MateInMax && s.pos.HasNonPawnMaterial() {
			// Move-count pruning: beyond a depth-scaled quiet-move
			// budget, stop trying further quiets at shallow depth.
			if !isCapture && !inCheck && !givesCheck {
				limit := 3 + depth*depth
				if movesSearched >= limit {
					picker.SkipQuiets()
					continue
				}
				// Capture-futility-equivalent for quiets: a quiet move
				// that cannot plausibly reach alpha even optimistically
				// is skipped outright at low depth.
				if depth <= 6 && !improving && staticEval+200*depth <= alpha {
					continue
				}
			} else if isCapture && depth <= 7 {
				// Capture futility: a losing (negative-SEE) capture that still
				// can't reach alpha given its SEE/material swing.
				see := s.pos.SEE(m)
				if see < 0 && staticEval+see+200 <= alpha {
					continue
				}
			}
		}

		extension := 0
		if !rootNode && excludedMove == board.NoMove && m == ttMove &&
			depth >= 8 && ttHit && int(ttEntry.Depth) >= depth-3 && ttEntry.Bound() != BoundUpper {
			singularBeta := ttScore - 2*depth
			singularDepth := (depth - 1) / 2
			s.excluded[ply] = m
			singularScore := s.negamax(singularDepth, ply, singularBeta-1, singularBeta, cutNode)
			s.excluded[ply] = board.NoMove
			if singularScore < singularBeta {
				extension = 1
			} else if singularBeta >= beta {
				// Multicut: even excluding the TT move, another move
				// fails high at a reduced depth, so the whole node does.
				return singularBeta
			} else if ttScore >= beta {
				extension = -2
			}
		}

		capturedBefore := capturedPieceBefore(s.pos, m)
		s.pos.DoMove(m)
		s.cont.Push(ply, piece, m.To())
		s.eval.Push()
		s.eval.Update(s.pos, m, capturedBefore)
		s.nodes++

		newDepth := depth - 1 + extension
		var score int
		if movesSearched == 0 {
			score = -s.negamax(newDepth, ply+1, -beta, -alpha, false)
		} else {
			r := 0
			if depth >= 3 && movesSearched >= 2 && !isCapture {
				r = lmrTable[minInt(depth, 63)][minInt(movesSearched, 63)]
				if !improving {
					r++
				}
				if pvNode {
					r--
				}
				if cutNode {
					r++
				}
				if s.rootDelta > 0 {
					r -= minInt(2, (beta-alpha)*3/s.rootDelta)
				}
				r = maxInt(0, r)
			}
			reducedDepth := maxInt(1, newDepth-r)
			score = -s.negamax(reducedDepth, ply+1, -alpha-1, -alpha, true)
			if score > alpha && r > 0 {
				score = -s.negamax(newDepth, ply+1, -alpha-1, -alpha, !cutNode)
			}
			if score > alpha && score < beta {
				score = -s.negamax(newDepth, ply+1, -beta, -alpha, false)
			}
		}

		s.eval.Pop()
		s.pos.UndoMove(m)
		s.cont.Clear(ply)
		movesSearched++

		if isCapture {
			capturesTriedHere = append(capturesTriedHere, m)
			capPiecesTriedHere = append(capPiecesTriedHere, piece)
			capTargetsTriedHere = append(capTargetsTriedHere, capturedType(s.pos, m))
		} else {
			quietsTriedHere = append(quietsTriedHere, m)
		}

		if s.stopped {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
			if score > alpha {
				alpha = score
				s.pv.update(ply, m)
				if score >= beta {
					break
				}
			}
		}
	}

	if movesSearched == 0 {
		if excludedMove != board.NoMove {
			return alpha
		}
		if inCheck {
			return -MateValue + ply
		}
		return 0
	}

	if bestScore >= beta && bestMove != board.NoMove {
		if bestMove.IsQuiet(s.pos) {
			piece := s.pos.PieceAt(bestMove.From())
			s.hist.UpdateQuiet(s.pos.SideToMove, ply, bestMove, quietsTriedHere, piece, depth, inCheck, s.cont)
		} else {
			piece := s.pos.PieceAt(bestMove.From())
			captured := capturedType(s.pos, bestMove)
			s.hist.UpdateCapture(bestMove, piece, captured, depth, capturesTriedHere, capPiecesTriedHere, capTargetsTriedHere)
		}
	}

	var bound Bound
	switch {
	case bestScore >= beta:
		bound = BoundLower
	case pvNode && bestMove != board.NoMove:
		bound = BoundExact
	default:
		bound = BoundUpper
	}
	if excludedMove == board.NoMove {
		s.tt.Store(hash, depth, AdjustScoreToTT(bestScore, ply), staticEval, bestMove, bound, pvNode)
	}

	return bestScore
}

// capturedPieceBefore reads off the piece a move is about to capture,
// before DoMove removes it from the board; needed by the evaluator's
// incremental update, which must see the pre-move board state to compute
// the correct feature deltas.
func capturedPieceBefore(pos *board.Position, m board.Move) board.Piece {
	if m.IsEnPassant() {
		return board.NewPiece(board.Pawn, pos.SideToMove.Other())
	}
	return pos.PieceAt(m.To())
}

func capturedType(pos *board.Position, m board.Move) board.PieceType {
	if m.IsEnPassant() {
		return board.Pawn
	}
	p := pos.PieceAt(m.To())
	if p == board.NoPiece {
		return board.Pawn
	}
	return p.Type()
}

// quiescence extends the search along captures and promotions only (all
// evasions when in check; quiet checking moves are not searched), until a
// position is "quiet" (no more profitable captures), applying a standpat
// cutoff, delta pruning, and SEE pruning.
func (s *Searcher) quiescence(ply, alpha, beta int) int {
	s.nodes++
	if s.checkStop() {
		return 0
	}
	if ply > s.seldepth {
		s.seldepth = ply
	}
	if ply >= MaxPly-1 {
		return s.eval.Evaluate(s.pos)
	}
	if s.pos.IsDraw() || s.pos.HasGameCycled(ply) {
		return 0
	}

	inCheck := s.pos.InCheck()
	s.pv.length[ply] = ply
	pvNode := beta-alpha > 1

	// Qsearch TT depth is 0 (no check) or 1 (in check, since the evasion
	// generator is run instead of captures-only); a stored entry is only
	// usable here if it was itself produced at that depth or deeper.
	probeDepth := 0
	if inCheck {
		probeDepth = 1
	}

	hash := s.pos.Hash
	ttEntry, ttHit := s.tt.Probe(hash)
	var ttMove board.Move
	if ttHit {
		ttMove = ttEntry.Move
		if !pvNode && int(ttEntry.Depth) >= probeDepth {
			ttScore := AdjustScoreFromTT(int(ttEntry.Score), ply, s.pos.HalfMoveClock)
			switch ttEntry.Bound() {
			case BoundExact:
				return ttScore
			case BoundLower:
				if ttScore >= beta {
					return ttScore
				}
			case BoundUpper:
				if ttScore <= alpha {
					return ttScore
				}
			}
		}
	}

	var standPat int
	if !inCheck {
		if ttHit {
			standPat = int(ttEntry.StaticEval)
		}
		if standPat == 0 {
			standPat = s.eval.Evaluate(s.pos)
		}
		if standPat >= beta {
			return standPat
		}
		if standPat > alpha {
			alpha = standPat
		}
	} else {
		standPat = -MateValue + ply
	}

	bestScore := standPat
	bestMove := board.NoMove
	picker := board.NewMovePicker(s.pos, s.hist, ply, ttMove)
	if !inCheck {
		picker.SkipQuiets()
	}

	moveCount := 0
	for {
		m := picker.Next()
		if m == board.NoMove {
			break
		}
		if !inCheck && !(m.IsCapture(s.pos) || m.IsPromotion()) {
			continue
		}
		if !s.pos.IsLegal(m) {
			continue
		}

		if !inCheck {
			// Delta pruning: even winning the captured piece outright
			// plus a safety margin can't reach alpha.
			captured := capturedType(s.pos, m)
			if standPat+board.PieceValue[captured]+200 <= alpha && !m.IsPromotion() {
				continue
			}
			if s.pos.SEE(m) < 0 {
				continue
			}
		}
		moveCount++

		capturedBefore := capturedPieceBefore(s.pos, m)
		s.pos.DoMove(m)
		s.eval.Push()
		s.eval.Update(s.pos, m, capturedBefore)
		score := -s.quiescence(ply+1, -beta, -alpha)
		s.eval.Pop()
		s.pos.UndoMove(m)

		if s.stopped {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
			if score > alpha {
				alpha = score
				s.pv.update(ply, m)
				if score >= beta {
					break
				}
			}
		}
	}

	if inCheck && moveCount == 0 {
		return -MateValue + ply
	}

	var bound Bound
	if bestScore >= beta {
		bound = BoundLower
	} else {
		bound = BoundUpper
	}
	s.tt.Store(hash, probeDepth, AdjustScoreToTT(bestScore, ply), standPat, bestMove, bound, pvNode)

	return bestScore
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
