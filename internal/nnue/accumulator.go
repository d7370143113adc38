package nnue

import "github.com/chessplay/engine/internal/board"

// Accumulator holds both perspectives' hidden-layer values at one ply.
type Accumulator struct {
	Values   [2][HiddenSize]int16
	Computed [2]bool
}

// maxStackPly bounds the accumulator stack depth; matches the search
// package's MaxPly (duplicated here rather than imported, since a ply-array
// bound is ambient to the whole engine, not specific to the search package).
const maxStackPly = 128

// AccumulatorStack holds one Accumulator per ply of search, so Push/Pop can
// run in lockstep with the search's do/undo move stack.
type AccumulatorStack struct {
	stack [maxStackPly]Accumulator
	top   int
}

// NewAccumulatorStack creates an empty accumulator stack.
func NewAccumulatorStack() *AccumulatorStack {
	return &AccumulatorStack{}
}

// Push copies the current frame onto a new top, ready for Update to mutate
// in place.
func (s *AccumulatorStack) Push() {
	if s.top < len(s.stack)-1 {
		s.stack[s.top+1] = s.stack[s.top]
		s.top++
	}
}

// Pop discards the top frame, returning to the one below it.
func (s *AccumulatorStack) Pop() {
	if s.top > 0 {
		s.top--
	}
}

// Current returns the accumulator at the top of the stack.
func (s *AccumulatorStack) Current() *Accumulator {
	return &s.stack[s.top]
}

// Reset returns the stack to its single bottom frame, marked uncomputed.
func (s *AccumulatorStack) Reset() {
	s.top = 0
	s.stack[0].Computed = [2]bool{}
}

// RefreshTable is a Finny table: a small per-color cache of accumulator
// values keyed by king half and bucket, each holding a snapshot of the
// piece bitboards it was last built from. A refresh diffs the current
// position against that snapshot instead of rescanning every piece.
type RefreshTable struct {
	entries [KingBuckets * 2]refreshEntry
}

type refreshEntry struct {
	values [HiddenSize]int16
	pieces [2][6]board.Bitboard
}

// NewRefreshTable creates an empty refresh table; its slots are lazily
// seeded from the network bias the first time each is used, since a slot's
// all-zero piece snapshot is otherwise unreachable (both kings are always
// on the board).
func NewRefreshTable() *RefreshTable {
	return &RefreshTable{}
}

func slotIndex(c board.Color, kingSq board.Square) int {
	half := 0
	if kingSideHalf(kingSq) {
		half = 1
	}
	return half*KingBuckets + kingBucket[c][kingSq]
}

// Refresh rebuilds acc's perspective-c accumulator from the table's cached
// slot for kingSq, diffing only the pieces that differ from the slot's
// snapshot, then updates the snapshot and marks acc computed.
func (rt *RefreshTable) Refresh(c board.Color, kingSq board.Square, net *Network, pos *board.Position, acc *Accumulator) {
	slot := &rt.entries[slotIndex(c, kingSq)]

	if slot.pieces == ([2][6]board.Bitboard{}) {
		copy(slot.values[:], net.L0Bias[:])
	}

	for color := board.White; color <= board.Black; color++ {
		for pt := board.Pawn; pt <= board.King; pt++ {
			oldBB := slot.pieces[color][pt]
			newBB := pos.Pieces[color][pt]

			removed := oldBB &^ newBB
			for removed != 0 {
				sq := removed.PopLSB()
				idx := FeatureIndex(c, kingSq, pt, color, sq)
				subtractFeature(&slot.values, net, idx)
			}

			added := newBB &^ oldBB
			for added != 0 {
				sq := added.PopLSB()
				idx := FeatureIndex(c, kingSq, pt, color, sq)
				addFeature(&slot.values, net, idx)
			}

			slot.pieces[color][pt] = newBB
		}
	}

	acc.Values[c] = slot.values
	acc.Computed[c] = true
}

func addFeature(values *[HiddenSize]int16, net *Network, idx int) {
	w := &net.L0Weights[idx]
	for i := 0; i < HiddenSize; i++ {
		values[i] += w[i]
	}
}

func subtractFeature(values *[HiddenSize]int16, net *Network, idx int) {
	w := &net.L0Weights[idx]
	for i := 0; i < HiddenSize; i++ {
		values[i] -= w[i]
	}
}

// updateDelta applies the ordinary (non-refresh) incremental update to
// perspective c's accumulator for move m, already played on pos.
func (e *Evaluator) updateDelta(pos *board.Position, acc *Accumulator, c board.Color, m board.Move, moved board.Piece, captured board.Piece) {
	kingSq := pos.KingSquare[c]
	from, to := m.From(), m.To()
	movedType, movedColor := moved.Type(), moved.Color()

	subtractFeature(&acc.Values[c], e.net, FeatureIndex(c, kingSq, movedType, movedColor, from))

	addType := movedType
	if m.IsPromotion() {
		addType = m.Promotion()
	}
	addFeature(&acc.Values[c], e.net, FeatureIndex(c, kingSq, addType, movedColor, to))

	if captured != board.NoPiece {
		capSq := to
		if m.IsEnPassant() {
			if movedColor == board.White {
				capSq = to - 8
			} else {
				capSq = to + 8
			}
		}
		subtractFeature(&acc.Values[c], e.net, FeatureIndex(c, kingSq, captured.Type(), captured.Color(), capSq))
	}
}

// updateCastleDelta applies the castling accumulator delta for perspective c:
// us's king and rook each leave their origin square and land on the
// classical castling destination squares. kingSq is perspective c's own
// (unchanged, since any crossing case routes to a table refresh instead)
// king square, used to index c's features.
func (e *Evaluator) updateCastleDelta(acc *Accumulator, c, us board.Color, kingFrom, kingTo, rookFrom, rookTo, kingSq board.Square) {
	subtractFeature(&acc.Values[c], e.net, FeatureIndex(c, kingSq, board.King, us, kingFrom))
	addFeature(&acc.Values[c], e.net, FeatureIndex(c, kingSq, board.King, us, kingTo))
	subtractFeature(&acc.Values[c], e.net, FeatureIndex(c, kingSq, board.Rook, us, rookFrom))
	addFeature(&acc.Values[c], e.net, FeatureIndex(c, kingSq, board.Rook, us, rookTo))
}
