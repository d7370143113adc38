package search

import (
	"sync/atomic"

	"github.com/chessplay/engine/internal/board"
)

// Bound indicates which side of the search window a stored score is exact
// or a bound for.
type Bound uint8

const (
	BoundNone  Bound = iota
	BoundExact       // PV node: the score is exact
	BoundLower       // fail-high (beta cutoff): score is a lower bound
	BoundUpper       // fail-low: score is an upper bound
)

const (
	pvBit     uint8 = 1 << 2
	boundMask uint8 = 0x3
)

// Entry is the 16-byte transposition table record: a 32-bit key (the high
// bits of the zobrist hash; the low bits select the bucket), 16-bit score,
// 16-bit static eval, 16-bit move, 8-bit depth, 8-bit flags (PV bit in bit
// 2, bound in bits 0-1), 8-bit age. Entries are written non-atomically; the
// key-match check in Probe is what keeps a torn read from being trusted.
type Entry struct {
	Key       uint32
	Score     int16
	StaticEval int16
	Move      board.Move
	Depth     uint8
	Flags     uint8
	Age       uint8
	_         uint8 // pad to 16 bytes
}

func (e *Entry) Bound() Bound { return Bound(e.Flags & boundMask) }
func (e *Entry) PV() bool     { return e.Flags&pvBit != 0 }

func makeFlags(b Bound, pv bool) uint8 {
	f := uint8(b) & boundMask
	if pv {
		f |= pvBit
	}
	return f
}

// Table is the shared, lock-free-enough transposition table: a flat
// power-of-two array mask-indexed by the low bits of the zobrist key, one
// entry per bucket (single-slot replacement), read/written concurrently by
// every search thread. Writes are not atomic; torn reads are expected to
// either miss the key check or hand back a move that IsPseudoLegal
// rejects. This implementation does not additionally employ the optional
// store-key-XOR-data trick, since a torn write only needs to be harmless,
// not detectable, and a plain key-verified probe already guarantees that.
type Table struct {
	entries    []Entry
	mask       uint64
	generation atomic.Uint32
}

// NewTable allocates a table sized (rounded down to a power of two) to fit
// within mb megabytes.
func NewTable(mb int) *Table {
	t := &Table{}
	t.Resize(mb)
	return t
}

// Resize reallocates the table to the given size in megabytes, rounding the
// entry count down to a power of two. Resizing is not safe concurrently
// with probes/stores; the caller must ensure no search is in flight.
func (t *Table) Resize(mb int) {
	const entrySize = 16
	numEntries := uint64(mb) * 1024 * 1024 / entrySize
	numEntries = roundDownToPowerOf2(numEntries)
	if numEntries == 0 {
		numEntries = 1
	}
	t.entries = make([]Entry, numEntries)
	t.mask = numEntries - 1
}

func roundDownToPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Clear zero-initializes every entry.
func (t *Table) Clear() {
	for i := range t.entries {
		t.entries[i] = Entry{}
	}
	t.generation.Store(0)
}

// NewSearch bumps the shared generation counter, wrapping at 256. Entries
// from a prior generation become preferred replacement targets regardless
// of their stored depth.
func (t *Table) NewSearch() {
	t.generation.Add(1)
}

func (t *Table) generationByte() uint8 {
	return uint8(t.generation.Load())
}

// index selects the bucket for a key. The low bits index; the high 32 bits
// are stored for the verification check. Either half could serve as the
// index as long as index and stored key are disjoint; this implementation
// uses the low bits for the index and the high 32 bits for the stored key,
// consistent with Entry's doc comment.
func (t *Table) index(key uint64) uint64 {
	return key & t.mask
}

// Probe looks up hash, returning the entry and whether the stored key
// matched. A depth-0, unset slot never matches (Key 0 with a freshly
// zeroed, never-written entry is indistinguishable from a torn/absent
// entry, which is the intended fail-safe).
func (t *Table) Probe(hash uint64) (Entry, bool) {
	e := t.entries[t.index(hash)]
	if e.Bound() == BoundNone {
		return Entry{}, false
	}
	if e.Key != uint32(hash>>32) {
		return Entry{}, false
	}
	return e, true
}

// Store writes an entry, applying the replacement policy: prefer the new
// entry when it is an exact bound, or the stored key differs (a genuine
// collision), or the stored generation differs from the current one, or
// the incoming depth is at least the stored depth.
func (t *Table) Store(hash uint64, depth int, score, staticEval int, move board.Move, bound Bound, pv bool) {
	idx := t.index(hash)
	e := &t.entries[idx]
	key := uint32(hash >> 32)
	gen := t.generationByte()

	replace := bound == BoundExact ||
		e.Key != key ||
		e.Age != gen ||
		depth >= int(e.Depth)
	if !replace {
		return
	}

	if move == board.NoMove && e.Key == key {
		move = e.Move // keep the previous best move when none was provided
	}

	e.Key = key
	e.Score = int16(score)
	e.StaticEval = int16(staticEval)
	e.Move = move
	e.Depth = uint8(depth)
	e.Flags = makeFlags(bound, pv)
	e.Age = gen
}

// HashFull approximates the permille of the table in use by the current
// generation, sampling the first 1000 entries.
func (t *Table) HashFull() int {
	sample := 1000
	if uint64(sample) > uint64(len(t.entries)) {
		sample = len(t.entries)
	}
	if sample == 0 {
		return 0
	}
	gen := t.generationByte()
	used := 0
	for i := 0; i < sample; i++ {
		e := &t.entries[i]
		if e.Bound() != BoundNone && e.Age == gen {
			used++
		}
	}
	return used * 1000 / sample
}

// Prefetch is advisory; Go has no portable cache-prefetch intrinsic, so
// this touches the target bucket to pull it into cache via the normal
// memory read path.
func (t *Table) Prefetch(hash uint64) {
	_ = t.entries[t.index(hash)]
}

// AdjustScoreToTT converts a search-local mate score (distance from the
// current ply) into a root-relative score suitable for storage, so that a
// mate found at a different ply compares correctly when probed again.
func AdjustScoreToTT(score, ply int) int {
	if score >= MateInMax {
		return score + ply
	}
	if score <= -MateInMax {
		return score - ply
	}
	return score
}

// AdjustScoreFromTT is the inverse of AdjustScoreToTT, and additionally
// demotes a stored mate score to a non-mate score when the fifty-move
// counter is close enough to expiring that the mate could not actually be
// delivered before a forced draw.
func AdjustScoreFromTT(score, ply, halfMoveClock int) int {
	if score >= MateInMax {
		if halfMoveClock > 0 && MateValue-score+halfMoveClock >= 100 {
			return MateInMax - 1
		}
		return score - ply
	}
	if score <= -MateInMax {
		if halfMoveClock > 0 && MateValue+score+halfMoveClock >= 100 {
			return -MateInMax + 1
		}
		return score + ply
	}
	return score
}
