package search

import (
	"runtime"
	"sync"
	"time"

	"github.com/chessplay/engine/internal/board"
	"github.com/chessplay/engine/internal/elog"
)

// NumThreads is the default number of parallel search threads, matching the
// host's available cores.
var NumThreads = runtime.GOMAXPROCS(0)

// EvaluatorFactory builds a fresh, thread-local Evaluator sharing whatever
// read-only weights the implementation loaded at startup. Each search thread
// needs its own accumulator stack, not its own copy of the network weights.
type EvaluatorFactory func() Evaluator

// Info is one progress report emitted during a search, suitable for
// translation directly into a UCI "info" line.
type Info struct {
	Depth    int
	SelDepth int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int
}

// Engine coordinates Lazy SMP search: every thread runs its own Searcher
// over an independent Position clone, sharing only the transposition table.
// Threads never communicate except through that table and the shared
// TimeManager's stop flag.
type Engine struct {
	tt      *Table
	newEval EvaluatorFactory

	mu        sync.Mutex
	searchers []*Searcher
	tm        *TimeManager

	// OnInfo, if set, is called from the result-collection goroutine with
	// the best info known so far after every depth reported by any thread.
	OnInfo func(Info)
}

// NewEngine builds an Engine around a shared transposition table sized in
// megabytes and a factory for per-thread evaluators.
func NewEngine(ttMB int, newEval EvaluatorFactory) *Engine {
	return &Engine{
		tt:      NewTable(ttMB),
		newEval: newEval,
	}
}

// ResizeTT reallocates the shared transposition table. Must not be called
// while a search is in flight.
func (e *Engine) ResizeTT(mb int) {
	e.tt.Resize(mb)
	elog.Get().Infof("search: transposition table resized to %d MB", mb)
}

// SetEvaluatorFactory swaps the evaluator every future search thread is
// built from, e.g. after a UCI "setoption name EvalFile" loads new weights.
// Must not be called while a search is in flight.
func (e *Engine) SetEvaluatorFactory(f EvaluatorFactory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.newEval = f
}

// Stop requests that an in-flight search halt at its next poll.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tm != nil {
		e.tm.Stop()
	}
}

// threadResult is one depth's completed iteration from one thread.
type threadResult struct {
	thread   int
	depth    int
	seldepth int
	score    int
	move     board.Move
	pv       []board.Move
	nodes    uint64
}

// Search runs a Lazy SMP search over pos using the given UCI limits and
// thread count, blocking until the search stops (by time, depth, node
// limit, or an external Stop call), and returns the best move found.
func (e *Engine) Search(pos *board.Position, limits Limits, threads int) board.Move {
	if threads < 1 {
		threads = 1
	}

	ply := 2 * (pos.FullMoveNumber - 1)
	if pos.SideToMove == board.Black {
		ply++
	}

	tm := NewTimeManager()
	tm.Init(limits, pos.SideToMove, ply)
	e.tt.NewSearch()

	e.mu.Lock()
	e.tm = tm
	e.mu.Unlock()

	maxDepth := MaxPly - 1
	if limits.Depth > 0 && limits.Depth < maxDepth {
		maxDepth = limits.Depth
	}

	searchers := make([]*Searcher, threads)
	for i := range searchers {
		threadPos := pos.Copy()
		ev := e.newEval()
		ev.Refresh(threadPos)
		searchers[i] = NewSearcher(threadPos, e.tt, ev, tm)
	}

	e.mu.Lock()
	e.searchers = searchers
	e.mu.Unlock()

	resultCh := make(chan threadResult, threads*maxDepth)
	var wg sync.WaitGroup
	for i, s := range searchers {
		wg.Add(1)
		go e.runThread(i, s, maxDepth, resultCh, &wg)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(resultCh)
		close(done)
	}()

	start := time.Now()
	var bestMove board.Move
	var bestScore int
	var bestDepth int
	var bestSelDepth int
	var bestPV []board.Move

collect:
	for {
		select {
		case r, ok := <-resultCh:
			if !ok {
				break collect
			}
			if r.move == board.NoMove {
				continue
			}
			if r.depth > bestDepth || (r.depth == bestDepth && r.thread == 0) {
				bestDepth = r.depth
				bestSelDepth = r.seldepth
				bestScore = r.score
				bestMove = r.move
				bestPV = r.pv

				if e.OnInfo != nil {
					e.OnInfo(Info{
						Depth:    bestDepth,
						SelDepth: bestSelDepth,
						Score:    bestScore,
						Nodes:    e.totalNodes(),
						Time:     time.Since(start),
						PV:       bestPV,
						HashFull: e.tt.HashFull(),
					})
				}

				if bestScore >= MateInMax || bestScore <= -MateInMax {
					tm.Stop()
				}
			}
			if limits.Nodes > 0 && e.totalNodes() >= limits.Nodes {
				tm.Stop()
			}
		case <-done:
			break collect
		}
	}

	tm.Stop()
	<-done
	return bestMove
}

// totalNodes sums the node counts of every active thread.
func (e *Engine) totalNodes() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var total uint64
	for _, s := range e.searchers {
		total += s.Nodes()
	}
	return total
}

// runThread runs one search thread's iterative deepening loop, staggering
// helper threads' starting depth so they don't duplicate the main thread's
// shallow work, and reporting every completed iteration on resultCh.
func (e *Engine) runThread(id int, s *Searcher, maxDepth int, resultCh chan<- threadResult, wg *sync.WaitGroup) {
	defer wg.Done()

	startDepth := 1
	switch {
	case id >= 6:
		startDepth = 4
	case id >= 3:
		startDepth = 3
	case id >= 1:
		startDepth = 2
	}

	for depth := startDepth; depth <= maxDepth; depth++ {
		move, score, ok := s.IterativeDeepenOne(depth)
		if !ok || s.Stopped() {
			return
		}
		resultCh <- threadResult{
			thread:   id,
			depth:    depth,
			seldepth: s.SelDepth(),
			score:    score,
			move:     move,
			pv:       s.PV(),
			nodes:    s.Nodes(),
		}
	}
}
