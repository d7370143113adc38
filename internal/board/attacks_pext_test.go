package board

import "testing"

// occupancySamples returns a handful of representative occupancy bitboards
// for a square's slider mask: empty, full mask, and a few partial patterns,
// so the PEXT and magic paths are compared across more than just the corners
// of the occupancy space.
func occupancySamples(mask Bitboard) []Bitboard {
	samples := []Bitboard{0, mask}
	bits := mask.PopCount()
	for _, i := range []int{1, 3, 7, (1 << bits) - 2} {
		if i < 0 || i >= 1<<bits {
			continue
		}
		samples = append(samples, indexToOccupancy(i, bits, mask))
	}
	return samples
}

func TestBishopAttacksPEXTMatchesMagic(t *testing.T) {
	for sq := A1; sq <= H8; sq++ {
		mask := bishopMagics[sq].Mask
		for _, occ := range occupancySamples(mask) {
			want := getBishopAttacks(sq, occ)
			got := BishopAttacksPEXT(sq, occ)
			if want != got {
				t.Fatalf("bishop sq=%s occ=%#x: magic=%#x pext=%#x", sq, uint64(occ), uint64(want), uint64(got))
			}
		}
	}
}

func TestRookAttacksPEXTMatchesMagic(t *testing.T) {
	for sq := A1; sq <= H8; sq++ {
		mask := rookMagics[sq].Mask
		for _, occ := range occupancySamples(mask) {
			want := getRookAttacks(sq, occ)
			got := RookAttacksPEXT(sq, occ)
			if want != got {
				t.Fatalf("rook sq=%s occ=%#x: magic=%#x pext=%#x", sq, uint64(occ), uint64(want), uint64(got))
			}
		}
	}
}

// TestBishopAndRookAttacksDispatch exercises the public BishopAttacks/
// RookAttacks entry points under both the PEXT and magic paths, restoring
// usePext afterward so later tests see the host's actual startup choice.
func TestBishopAndRookAttacksDispatch(t *testing.T) {
	defer func(v bool) { usePext = v }(usePext)

	occ := SquareBB(D4) | SquareBB(D6) | SquareBB(B4)
	for _, usePext = range []bool{false, true} {
		if got, want := BishopAttacks(D4, occ), getBishopAttacks(D4, occ); got != want {
			t.Fatalf("usePext=%v: BishopAttacks=%#x want %#x", usePext, uint64(got), uint64(want))
		}
		if got, want := RookAttacks(D4, occ), getRookAttacks(D4, occ); got != want {
			t.Fatalf("usePext=%v: RookAttacks=%#x want %#x", usePext, uint64(got), uint64(want))
		}
	}
}
