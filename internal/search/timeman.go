package search

import (
	"math"
	"time"

	"github.com/chessplay/engine/internal/board"
)

// Limits mirrors the fields a UCI `go` command may set. Zero/false means
// "not specified".
type Limits struct {
	WTime, BTime   time.Duration
	WInc, BInc     time.Duration
	MovesToGo      int
	Depth          int
	Nodes          uint64
	MoveTime       time.Duration
	Infinite       bool
}

// TimeManager computes the optimal and maximum time budgets for a move and
// exposes the cooperative stop flag polled by the searcher. Optimum/maximum
// budgets are derived from log10-scaled formulas over the remaining clock
// and increment, rather than a plain fixed-fraction division.
type TimeManager struct {
	start       time.Time
	optimumTime time.Duration
	maximumTime time.Duration
	movetime    bool
	infinite    bool
	depthLimit  int
	nodeLimit   uint64
	forceStop   bool
}

// NewTimeManager returns an unconfigured TimeManager; call Init before use.
func NewTimeManager() *TimeManager {
	return &TimeManager{}
}

// Init computes the optimal/maximum budgets for the side to move, given the
// UCI limits and the current ply (used to scale the search toward deeper
// time use as the game progresses).
func (tm *TimeManager) Init(limits Limits, us board.Color, ply int) {
	tm.start = timeNow()
	tm.forceStop = false
	tm.infinite = limits.Infinite
	tm.depthLimit = limits.Depth
	tm.nodeLimit = limits.Nodes

	if limits.MoveTime > 0 {
		tm.movetime = true
		tm.optimumTime = limits.MoveTime
		tm.maximumTime = limits.MoveTime
		return
	}
	tm.movetime = false

	if limits.Infinite || (limits.WTime == 0 && limits.BTime == 0) {
		tm.optimumTime = time.Duration(math.MaxInt64)
		tm.maximumTime = time.Duration(math.MaxInt64)
		return
	}

	myTime, myInc := limits.WTime, limits.WInc
	if us == board.Black {
		myTime, myInc = limits.BTime, limits.BInc
	}

	overheadMS := 10.0
	if myInc > 0 {
		overheadMS = 0.0
	}

	mtg := limits.MovesToGo
	if mtg <= 0 || mtg > 50 {
		mtg = 50
	}

	timeMS := float64(myTime.Milliseconds())
	incMS := float64(myInc.Milliseconds())
	timeLeftMS := timeMS + incMS*float64(mtg) - overheadMS*float64(mtg)
	if timeLeftMS < 1 {
		timeLeftMS = 1
	}

	var optimalScale, maxScale float64
	if limits.MovesToGo <= 0 {
		// Unknown movestogo: log-scaled constants derived from the
		// remaining time budget.
		logTimeLeft := math.Log10(timeLeftMS / 1000.0)
		optimalScale = math.Min(0.01+math.Sqrt(float64(ply))*0.0023, 0.2*timeMS/timeLeftMS)
		maxScale = math.Min(6.0, 3.5+3.0*logTimeLeft+float64(ply)/10.0)
	} else {
		optimalScale = math.Min(float64(ply)/500.0+0.5/float64(mtg), 0.9*timeMS/timeLeftMS)
		maxScale = math.Min(6.0, 1.5+0.1*float64(mtg))
	}
	if optimalScale < 0 {
		optimalScale = 0
	}
	if maxScale < 0 {
		maxScale = 0
	}

	optimalMS := timeLeftMS * optimalScale
	maxMS := math.Min(0.7*timeMS-overheadMS, maxScale*optimalMS)
	if maxMS < optimalMS {
		maxMS = optimalMS
	}
	if maxMS < 1 {
		maxMS = 1
	}
	if optimalMS < 1 {
		optimalMS = 1
	}

	tm.optimumTime = time.Duration(optimalMS) * time.Millisecond
	tm.maximumTime = time.Duration(maxMS) * time.Millisecond
}

// Elapsed returns the time spent searching so far.
func (tm *TimeManager) Elapsed() time.Duration {
	return timeNow().Sub(tm.start)
}

// OptimumTime returns the soft budget: the searcher should not start a new
// iterative-deepening iteration once this is exceeded.
func (tm *TimeManager) OptimumTime() time.Duration { return tm.optimumTime }

// MaximumTime returns the hard budget: the searcher must abort mid-search
// once this is exceeded.
func (tm *TimeManager) MaximumTime() time.Duration { return tm.maximumTime }

// PastOptimum reports whether the soft budget has been exceeded.
func (tm *TimeManager) PastOptimum() bool {
	return tm.Elapsed() >= tm.optimumTime
}

// ShouldStop reports whether the search must halt: the hard time budget was
// exceeded, the node limit was reached, or Stop() was called.
func (tm *TimeManager) ShouldStop(nodes uint64) bool {
	if tm.forceStop {
		return true
	}
	if tm.infinite {
		return false
	}
	if tm.nodeLimit > 0 && nodes >= tm.nodeLimit {
		return true
	}
	return tm.Elapsed() >= tm.maximumTime
}

// CanStartNewIteration reports whether a fresh iterative-deepening
// iteration is worth beginning given the elapsed time and budget, so the
// searcher doesn't begin a deep iteration it cannot finish.
func (tm *TimeManager) CanStartNewIteration() bool {
	if tm.forceStop {
		return false
	}
	if tm.infinite || tm.movetime {
		return true
	}
	return tm.Elapsed() < tm.optimumTime
}

// Stop sets the cooperative stop flag, observed by the searcher at its next
// poll (every 1024 nodes).
func (tm *TimeManager) Stop() {
	tm.forceStop = true
}

// Stopped reports whether Stop was called.
func (tm *TimeManager) Stopped() bool {
	return tm.forceStop
}

// AdjustForStability scales the optimal-time budget down as the best move
// at the root stays unchanged across iterations: a stable PV is unlikely to
// change further, so searching deeper is worth less.
func (tm *TimeManager) AdjustForStability(stability int) {
	scale := 1.0
	switch {
	case stability >= 6:
		scale = 0.40
	case stability >= 4:
		scale = 0.60
	case stability >= 2:
		scale = 0.80
	}
	tm.optimumTime = time.Duration(float64(tm.optimumTime) * scale)
}

// AdjustForInstability scales the optimal-time budget up when the root best
// move has been changing across iterations, buying more time to settle on
// a choice.
func (tm *TimeManager) AdjustForInstability(changes int) {
	scale := 1.0
	switch {
	case changes >= 4:
		scale = 2.00
	case changes >= 2:
		scale = 1.50
	}
	tm.optimumTime = time.Duration(float64(tm.optimumTime) * scale)
}

// timeNow exists only so tests can monkey-patch wall-clock time; production
// code always calls time.Now.
var timeNow = time.Now
