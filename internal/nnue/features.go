package nnue

import "github.com/chessplay/engine/internal/board"

// kingBucket[c][sq] groups each of a color's 64 possible king squares into
// one of 16 buckets, folding the queenside/kingside mirror (file 0..3) and
// pairing adjacent ranks. Black's table is built from the vertically
// mirrored square so both colors read "their own" king position the same
// way.
var kingBucket [2][64]int

func init() {
	for sq := board.Square(0); sq < 64; sq++ {
		kingBucket[board.White][sq] = bucketOf(sq)
		kingBucket[board.Black][sq] = bucketOf(sq.Mirror())
	}
}

func bucketOf(sq board.Square) int {
	file := int(sq) % 8
	rank := int(sq) / 8
	folded := file
	if folded > 3 {
		folded = 7 - folded
	}
	return (rank/2)*4 + folded
}

// kingSideHalf reports whether sq lies on the e-h files. Castling never
// changes a king's rank and this fold is file-only, so it is identical
// whether measured before or after the perspective's vertical mirror.
func kingSideHalf(sq board.Square) bool {
	return int(sq)%8 >= 4
}

// orient maps a square into perspective's own frame: vertical flip for
// Black, identity for White.
func orient(perspective board.Color, sq board.Square) board.Square {
	if perspective == board.Black {
		return sq.Mirror()
	}
	return sq
}

// FeatureIndex computes perspective's input feature slot for a piece of
// type pt and color pieceColor standing on sq, given that perspective's own
// king is on kingSq.
func FeatureIndex(perspective board.Color, kingSq board.Square, pt board.PieceType, pieceColor board.Color, sq board.Square) int {
	s := int(orient(perspective, sq))
	if kingSideHalf(kingSq) {
		s ^= 7
	}

	channel := int(pt)
	if pieceColor != perspective {
		channel += 6
	}

	bucket := kingBucket[perspective][kingSq]
	return s + channel*NumSquares + bucket*NumSquares*PieceChannels
}
