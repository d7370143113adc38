package search

import (
	"github.com/chessplay/engine/internal/board"
)

// MaxPly bounds every ply-indexed array in the search package.
const MaxPly = 128

const (
	butterflyMax    = 7000
	captureMax      = 10000
	continuationMax = 25000
)

// continuationOffsets lists the relative plies a beta cutoff's continuation
// bonus/malus is applied at. Only the first two are used while in check,
// since plies -3/-4/-6 look through a move that (by definition) wasn't a
// reply to a check.
var continuationOffsets = [5]int{1, 2, 3, 4, 6}

// History holds the five fixed-shape move-ordering tables: killers,
// butterfly (from/to), continuation (ply offset, moving piece type, to),
// capture history, and the static-eval stack used for improving
// detection. One History lives per search thread; nothing here is shared
// across goroutines.
type History struct {
	killers      [2][MaxPly + 2][2]board.Move
	butterfly    [2][64][64]int
	continuation [MaxPly + 7][6][64]int
	capture      [6][64][6]int
	eval         [2][MaxPly]int
}

// NewHistory allocates a zeroed History.
func NewHistory() *History {
	return &History{}
}

// Clear resets every table to zero, as happens at the start of a new search.
func (h *History) Clear() {
	*h = History{}
}

// gravity applies Stockfish-style exponential-decay update: entry moves
// toward bonus, with the step shrinking as entry approaches +-max.
func gravity(entry, bonus, max int) int {
	return entry + bonus - entry*abs(bonus)/max
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Killer moves

func (h *History) Killers(c board.Color, ply int) (board.Move, board.Move) {
	k := &h.killers[c][ply+2]
	return k[0], k[1]
}

func (h *History) IsKiller(c board.Color, ply int, m board.Move) bool {
	k := &h.killers[c][ply+2]
	return k[0] == m || k[1] == m
}

// SetKiller records m as the newest killer at ply, demoting the previous
// first killer to second slot. A repeat of the existing first killer is a
// no-op.
func (h *History) SetKiller(c board.Color, ply int, m board.Move) {
	k := &h.killers[c][ply+2]
	if k[0] == m {
		return
	}
	k[1] = k[0]
	k[0] = m
}

// Butterfly history (quiet moves, indexed by side/from/to)

func (h *History) ButterflyScore(c board.Color, m board.Move) int {
	return h.butterfly[c][m.From()][m.To()]
}

func (h *History) updateButterfly(c board.Color, m board.Move, bonus int) {
	e := &h.butterfly[c][m.From()][m.To()]
	*e = gravity(*e, bonus, butterflyMax)
}

// Continuation history (indexed by ply+7, moving piece type and destination
// square; the move actually played at an earlier ply is not part of the key).

func (h *History) ContinuationScore(ply int, piece board.Piece, to board.Square) int {
	return h.continuation[ply+7][piece.Type()][to]
}

func (h *History) updateContinuation(ply int, piece board.Piece, to board.Square, bonus int) {
	e := &h.continuation[ply+7][piece.Type()][to]
	*e = gravity(*e, bonus, continuationMax)
}

// Capture history (indexed by moving piece/to/captured piece type).

func (h *History) CaptureScore(piece board.Piece, to board.Square, captured board.PieceType) int {
	return h.capture[piece.Type()][to][captured]
}

func (h *History) updateCapture(piece board.Piece, to board.Square, captured board.PieceType, bonus int) {
	e := &h.capture[piece.Type()][to][captured]
	*e = gravity(*e, bonus, captureMax)
}

// Static eval stack, used to detect "improving" nodes (current static eval
// better than the one two plies ago, same side to move).

func (h *History) SetEval(c board.Color, ply, eval int) {
	if ply >= 0 && ply < MaxPly {
		h.eval[c][ply] = eval
	}
}

func (h *History) Eval(c board.Color, ply int) int {
	if ply < 0 || ply >= MaxPly {
		return 0
	}
	return h.eval[c][ply]
}

// Bonus/malus magnitudes for a beta cutoff at the given depth, per the
// history-update rule: gains grow linearly with depth and saturate.
func historyBonus(depth int) int {
	b := 300*depth - 250
	if b > 1500 {
		b = 1500
	}
	if b < 0 {
		b = 0
	}
	return b
}

func historyMalus(depth int) int {
	m := 350*depth - 200
	if m > 1700 {
		m = 1700
	}
	if m < 0 {
		m = 0
	}
	return m
}

// UpdateQuiet applies the beta-cutoff reward/penalty set for a quiet best
// move: the move itself becomes the newest killer and gets a positive
// butterfly/continuation bonus; every other quiet move tried before it at
// this node gets a butterfly malus only (their continuation entries are not
// penalized). inCheck restricts the continuation
// plies touched to -1/-2, since -3/-4/-6 aren't replies to a check.
func (h *History) UpdateQuiet(c board.Color, ply int, best board.Move, tried []board.Move, piece board.Piece, depth int, inCheck bool, stack *ContinuationStack) {
	bonus := historyBonus(depth)
	malus := historyMalus(depth)

	h.SetKiller(c, ply, best)
	h.updateButterfly(c, best, bonus)
	applyContinuation(h, stack, ply, piece, best.To(), bonus, inCheck)

	for _, m := range tried {
		if m == best {
			continue
		}
		h.updateButterfly(c, m, -malus)
	}
}

// UpdateCapture applies the beta-cutoff reward/penalty set for a capture
// best move.
func (h *History) UpdateCapture(best board.Move, piece board.Piece, captured board.PieceType, depth int, tried []board.Move, triedPieces []board.Piece, triedCaptured []board.PieceType) {
	bonus := historyBonus(depth)
	malus := historyMalus(depth)

	h.updateCapture(piece, best.To(), captured, bonus)
	for i, m := range tried {
		if m == best {
			continue
		}
		h.updateCapture(triedPieces[i], m.To(), triedCaptured[i], -malus)
	}
}

func applyContinuation(h *History, stack *ContinuationStack, ply int, piece board.Piece, to board.Square, bonus int, inCheck bool) {
	limit := len(continuationOffsets)
	if inCheck {
		limit = 2
	}
	for i := 0; i < limit; i++ {
		back := continuationOffsets[i]
		p, sq, ok := stack.At(ply - back)
		if !ok {
			continue
		}
		_ = p
		_ = sq
		h.updateContinuation(ply-back, piece, to, bonus)
	}
}

// ContinuationStack tracks the (piece, to) pair played at each ply so that
// continuation-history lookups/updates can walk backward from the current
// node. It is separate from History because it is per-search-path state,
// not an accumulated table.
type ContinuationStack struct {
	piece [MaxPly + 7]board.Piece
	to    [MaxPly + 7]board.Square
	set   [MaxPly + 7]bool
}

func NewContinuationStack() *ContinuationStack {
	cs := &ContinuationStack{}
	for i := range cs.piece {
		cs.piece[i] = board.NoPiece
	}
	return cs
}

func (cs *ContinuationStack) Push(ply int, piece board.Piece, to board.Square) {
	idx := ply + 7
	if idx < 0 || idx >= len(cs.piece) {
		return
	}
	cs.piece[idx] = piece
	cs.to[idx] = to
	cs.set[idx] = true
}

func (cs *ContinuationStack) Clear(ply int) {
	idx := ply + 7
	if idx < 0 || idx >= len(cs.piece) {
		return
	}
	cs.set[idx] = false
}

func (cs *ContinuationStack) At(ply int) (board.Piece, board.Square, bool) {
	idx := ply + 7
	if idx < 0 || idx >= len(cs.piece) || !cs.set[idx] {
		return board.NoPiece, board.NoSquare, false
	}
	return cs.piece[idx], cs.to[idx], true
}
