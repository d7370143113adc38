package board

import "golang.org/x/sys/cpu"

// Software-PEXT slider attacks. The hardware BMI2 PEXT instruction extracts
// the bits of occupied selected by mask into a dense low-order index; Go has
// no portable intrinsic for it, so this is the textbook bit-by-bit software
// equivalent, provided as a BMI2-PEXT-style alternative lookup that must
// produce attack bitboards identical to the magic-bitboard path. attacks.go's
// usePext flag (set from hasHardwarePEXT at startup) picks this path over
// magic.go's on hosts advertising BMI2; attacks_pext_test.go cross-checks
// both paths agree on every square and occupancy.
var (
	bishopPextTable [64][]Bitboard
	rookPextTable   [64][]Bitboard
)

func initPextTables() {
	for sq := A1; sq <= H8; sq++ {
		bMask := bishopMagics[sq].Mask
		rMask := rookMagics[sq].Mask

		bBits := bMask.PopCount()
		rBits := rMask.PopCount()

		bishopPextTable[sq] = make([]Bitboard, 1<<bBits)
		rookPextTable[sq] = make([]Bitboard, 1<<rBits)

		for i := 0; i < 1<<bBits; i++ {
			occ := indexToOccupancy(i, bBits, bMask)
			bishopPextTable[sq][pext(uint64(occ), uint64(bMask))] = bishopAttacksSlow(sq, occ)
		}
		for i := 0; i < 1<<rBits; i++ {
			occ := indexToOccupancy(i, rBits, rMask)
			rookPextTable[sq][pext(uint64(occ), uint64(rMask))] = rookAttacksSlow(sq, occ)
		}
	}
}

// pext is the software equivalent of the x86 BMI2 PEXT instruction: extract
// bits of x selected by mask into consecutive low-order bits of the result.
func pext(x, mask uint64) uint64 {
	var result uint64
	var bit uint64 = 1
	for mask != 0 {
		lsb := mask & -mask
		if x&lsb != 0 {
			result |= bit
		}
		mask &= mask - 1
		bit <<= 1
	}
	return result
}

// hasHardwarePEXT reports whether the host CPU advertises BMI2 support. Its
// result initializes usePext, which picks this file's table lookup over the
// magic lookup; the extraction itself is always the software pext() above,
// since Go has no BMI2 intrinsic.
func hasHardwarePEXT() bool {
	return cpu.X86.HasBMI2
}

// BishopAttacksPEXT returns bishop attacks via the PEXT-style table. Must
// always equal BishopAttacks(sq, occupied).
func BishopAttacksPEXT(sq Square, occupied Bitboard) Bitboard {
	mask := bishopMagics[sq].Mask
	return bishopPextTable[sq][pext(uint64(occupied), uint64(mask))]
}

// RookAttacksPEXT returns rook attacks via the PEXT-style table. Must always
// equal RookAttacks(sq, occupied).
func RookAttacksPEXT(sq Square, occupied Bitboard) Bitboard {
	mask := rookMagics[sq].Mask
	return rookPextTable[sq][pext(uint64(occupied), uint64(mask))]
}
