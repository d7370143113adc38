// Package nnue implements an efficiently updatable neural network evaluator:
// two perspective accumulators (one per color) maintained incrementally as
// moves are made and unmade, feeding a single hidden layer into one scalar
// output.
package nnue

import "github.com/chessplay/engine/internal/board"

// Network architecture constants.
const (
	KingBuckets   = 16
	PieceChannels = 12 // 6 piece types * 2 colors
	NumSquares    = 64

	// InputSize is the feature count per perspective: king bucket * piece
	// channel * square.
	InputSize = KingBuckets * PieceChannels * NumSquares // 12288

	HiddenSize = 512 // accumulator width, per perspective

	// ClippedReLUMax is the saturation point of the hidden layer activation.
	ClippedReLUMax = 255

	// OutputDivisor scales the int32 L1 dot product down to centipawns.
	OutputDivisor = 32 * 128
)

// ClippedReLU clamps x to [0, ClippedReLUMax].
func ClippedReLU(x int16) int32 {
	if x < 0 {
		return 0
	}
	if x > ClippedReLUMax {
		return ClippedReLUMax
	}
	return int32(x)
}

// Evaluator is the main NNUE evaluator: a shared, read-only Network plus a
// per-search accumulator stack and refresh cache. Every search thread needs
// its own Evaluator (via NewEvaluator sharing the same *Network) since the
// stack and refresh tables are mutated during search.
type Evaluator struct {
	net    *Network
	stack  *AccumulatorStack
	tables [2]*RefreshTable
}

// NewEvaluator builds an evaluator around a (possibly shared) network.
func NewEvaluator(net *Network) *Evaluator {
	return &Evaluator{
		net:    net,
		stack:  NewAccumulatorStack(),
		tables: [2]*RefreshTable{NewRefreshTable(), NewRefreshTable()},
	}
}

// LoadEvaluator loads a network from a weight file and wraps it in an
// Evaluator. If filename is empty, the network is initialized with
// deterministic random weights, useful only for smoke-testing plumbing.
func LoadEvaluator(filename string) (*Evaluator, error) {
	net := NewNetwork()
	if filename != "" {
		if err := net.LoadWeights(filename); err != nil {
			return nil, err
		}
	} else {
		net.InitRandom(12345)
	}
	return NewEvaluator(net), nil
}

// Evaluate returns the evaluation in centipawns from the side to move's
// perspective.
func (e *Evaluator) Evaluate(pos *board.Position) int {
	e.ensureComputed(pos, board.White)
	e.ensureComputed(pos, board.Black)

	acc := e.stack.Current()
	us, them := pos.SideToMove, pos.SideToMove.Other()
	return e.net.Forward(&acc.Values[us], &acc.Values[them])
}

// Push copies the current accumulator onto a new stack frame, called before
// a move is made so Update can mutate the new top in place.
func (e *Evaluator) Push() {
	e.stack.Push()
}

// Pop discards the top accumulator frame, called after a move is unmade.
func (e *Evaluator) Pop() {
	e.stack.Pop()
}

// Refresh fully recomputes both perspectives' accumulators for pos, routing
// through the refresh tables so their cached snapshots stay consistent.
func (e *Evaluator) Refresh(pos *board.Position) {
	acc := e.stack.Current()
	for _, c := range [2]board.Color{board.White, board.Black} {
		e.tables[c].Refresh(c, pos.KingSquare[c], e.net, pos, acc)
	}
}

// Update incrementally maintains both accumulators after m has been played
// on pos (pos already reflects the post-move state; captured is the piece
// that stood on the capture square before the move, or board.NoPiece).
func (e *Evaluator) Update(pos *board.Position, m board.Move, captured board.Piece) {
	acc := e.stack.Current()

	if m.IsCastling() {
		us := pos.SideToMove.Other() // pos already reflects the post-move side to move
		kingFrom, rookFrom := m.From(), m.To()
		side := 0
		if rookFrom < kingFrom {
			side = 1
		}
		kingTo, rookTo := pos.CastleDestinations(us, side)

		for _, c := range [2]board.Color{board.White, board.Black} {
			if c == us {
				if kingSideHalf(kingFrom) != kingSideHalf(kingTo) || kingBucket[c][kingFrom] != kingBucket[c][kingTo] {
					e.tables[c].Refresh(c, kingTo, e.net, pos, acc)
					continue
				}
			}
			e.updateCastleDelta(acc, c, us, kingFrom, kingTo, rookFrom, rookTo, pos.KingSquare[c])
		}
		return
	}

	moved := pos.PieceAt(m.To())
	if m.IsPromotion() {
		// The square now holds the promoted piece; a pawn left from.
		moved = board.NewPiece(board.Pawn, moved.Color())
	}
	movedType := moved.Type()
	movedColor := moved.Color()

	for _, c := range [2]board.Color{board.White, board.Black} {
		if movedType == board.King && movedColor == c {
			oldKingSq, newKingSq := m.From(), pos.KingSquare[c]
			if kingSideHalf(oldKingSq) != kingSideHalf(newKingSq) || kingBucket[c][oldKingSq] != kingBucket[c][newKingSq] {
				e.tables[c].Refresh(c, newKingSq, e.net, pos, acc)
				continue
			}
		}
		e.updateDelta(pos, acc, c, m, moved, captured)
	}
}

// Reset clears the accumulator stack back to a single, uncomputed frame. The
// refresh-table caches are left intact: they diff against whatever position
// is refreshed next regardless of what they last held.
func (e *Evaluator) Reset() {
	e.stack.Reset()
}

func (e *Evaluator) ensureComputed(pos *board.Position, c board.Color) {
	if e.stack.Current().Computed[c] {
		return
	}
	e.tables[c].Refresh(c, pos.KingSquare[c], e.net, pos, e.stack.Current())
}
