// Package uci is the thin UCI text-protocol front end: it parses the
// "position"/"go"/"stop"/"setoption" command stream on stdin, drives the
// search engine, and writes "info"/"bestmove" lines to stdout. All
// diagnostics go to stderr (or the shared elog logger) so they never
// corrupt the protocol stream.
package uci

import (
	"bufio"
	"fmt"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chessplay/engine/internal/board"
	"github.com/chessplay/engine/internal/elog"
	"github.com/chessplay/engine/internal/nnue"
	"github.com/chessplay/engine/internal/search"
)

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *search.Engine
	position *board.Position
	chess960 bool
	threads  int

	evalFile string

	// Search state
	searching     bool
	searchDone    chan struct{}
	stopRequested atomic.Bool

	// CPU profiling
	profileFile *os.File
}

// New creates a new UCI protocol handler around an already-constructed
// search engine.
func New(eng *search.Engine) *UCI {
	return &UCI{
		engine:   eng,
		position: board.NewPosition(),
		threads:  search.NumThreads,
	}
}

// Run starts the UCI main loop, blocking until "quit" is received.
func (u *UCI) Run() {
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			fmt.Println("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "quit":
			u.handleQuit()
		case "setoption":
			u.handleSetOption(args)
		case "d":
			fmt.Println(u.position.String())
		case "perft":
			u.handlePerft(args)
		}
	}
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	fmt.Println("id name ChessPlay")
	fmt.Println("id author ChessPlay Team")
	fmt.Println()
	fmt.Printf("option name Hash type spin default 64 min 1 max 4096\n")
	fmt.Printf("option name Threads type spin default %d min 1 max 512\n", search.NumThreads)
	fmt.Println("option name EvalFile type string default <empty>")
	fmt.Println("option name UCI_Chess960 type check default false")
	fmt.Println("uciok")
}

// handleNewGame resets the engine and board for a new game.
func (u *UCI) handleNewGame() {
	u.engine.ResizeTT(64)
	u.position = board.NewPosition()
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	var moveStart int

	switch args[0] {
	case "startpos":
		u.position = board.NewPosition()
		moveStart = len(args)
		for i, arg := range args {
			if arg == "moves" {
				moveStart = i + 1
				break
			}
		}
	case "fen":
		fenEnd := len(args)
		for i, arg := range args[1:] {
			if arg == "moves" {
				fenEnd = i + 1
				break
			}
		}

		fenStr := strings.Join(args[1:fenEnd], " ")
		pos, err := board.ParseFEN(fenStr, u.chess960)
		if err != nil {
			elog.Get().Warningf("uci: invalid FEN %q: %v", fenStr, err)
			return
		}
		u.position = pos

		moveStart = len(args)
		for i, arg := range args {
			if arg == "moves" {
				moveStart = i + 1
				break
			}
		}
	default:
		return
	}

	for _, moveStr := range args[moveStart:] {
		move := u.parseMove(moveStr)
		if move == board.NoMove {
			elog.Get().Warningf("uci: invalid move in position command: %s", moveStr)
			return
		}
		u.position.DoMove(move)
	}
}

// parseMove converts a UCI long-algebraic move string to a board.Move legal
// in the current position.
func (u *UCI) parseMove(moveStr string) board.Move {
	if len(moveStr) < 4 {
		return board.NoMove
	}

	fromFile := int(moveStr[0] - 'a')
	fromRank := int(moveStr[1] - '1')
	toFile := int(moveStr[2] - 'a')
	toRank := int(moveStr[3] - '1')
	if fromFile < 0 || fromFile > 7 || fromRank < 0 || fromRank > 7 ||
		toFile < 0 || toFile > 7 || toRank < 0 || toRank > 7 {
		return board.NoMove
	}

	from := board.NewSquare(fromFile, fromRank)
	to := board.NewSquare(toFile, toRank)

	var promo board.PieceType
	if len(moveStr) == 5 {
		switch moveStr[4] {
		case 'q':
			promo = board.Queen
		case 'r':
			promo = board.Rook
		case 'b':
			promo = board.Bishop
		case 'n':
			promo = board.Knight
		}
	}

	moves := u.position.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.From() != from {
			continue
		}
		// Castling is stored with To() on the rook's square; the classical
		// king-destination spelling that Move.String prints is accepted too.
		if m.To() != to && !(m.IsCastling() && m.String()[:4] == moveStr[:4]) {
			continue
		}
		if promo != 0 {
			if m.IsPromotion() && m.Promotion() == promo {
				return m
			}
		} else if !m.IsPromotion() {
			return m
		}
	}

	return board.NoMove
}

// GoOptions holds parsed "go" command options.
type GoOptions struct {
	Depth     int
	Nodes     uint64
	MoveTime  time.Duration
	Infinite  bool
	WTime     time.Duration
	BTime     time.Duration
	WInc      time.Duration
	BInc      time.Duration
	MovesToGo int
}

// handleGo starts a search with the given parameters.
func (u *UCI) handleGo(args []string) {
	opts := u.parseGoOptions(args)
	limits := u.calculateLimits(opts)

	u.engine.OnInfo = func(info search.Info) {
		u.sendInfo(info)
	}

	u.searching = true
	u.stopRequested.Store(false)
	u.searchDone = make(chan struct{})

	pos := u.position.Copy()
	threads := u.threads

	go func() {
		defer close(u.searchDone)

		bestMove := u.engine.Search(pos, limits, threads)
		u.searching = false

		if bestMove != board.NoMove {
			fmt.Printf("bestmove %s\n", bestMove.String())
			return
		}

		// The search returns NoMove only when the root has no legal moves
		// (checkmate or stalemate); nothing sensible to play.
		elog.Get().Warningf("uci: search returned no move at root (checkmate or stalemate)")
		fmt.Println("bestmove 0000")
	}()
}

// parseGoOptions parses "go" command arguments.
func (u *UCI) parseGoOptions(args []string) GoOptions {
	opts := GoOptions{}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			if i+1 < len(args) {
				opts.Depth, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "nodes":
			if i+1 < len(args) {
				n, _ := strconv.ParseUint(args[i+1], 10, 64)
				opts.Nodes = n
				i++
			}
		case "movetime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.MoveTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "infinite":
			opts.Infinite = true
		case "wtime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.WTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "btime":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.BTime = time.Duration(ms) * time.Millisecond
				i++
			}
		case "winc":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.WInc = time.Duration(ms) * time.Millisecond
				i++
			}
		case "binc":
			if i+1 < len(args) {
				ms, _ := strconv.Atoi(args[i+1])
				opts.BInc = time.Duration(ms) * time.Millisecond
				i++
			}
		case "movestogo":
			if i+1 < len(args) {
				opts.MovesToGo, _ = strconv.Atoi(args[i+1])
				i++
			}
		}
	}

	return opts
}

// calculateLimits converts GoOptions to search.Limits. All the actual time
// budgeting (optimum/maximum time, stability-based extension) lives in
// search.TimeManager; this just forwards the raw UCI numbers through.
func (u *UCI) calculateLimits(opts GoOptions) search.Limits {
	return search.Limits{
		WTime:     opts.WTime,
		BTime:     opts.BTime,
		WInc:      opts.WInc,
		BInc:      opts.BInc,
		MovesToGo: opts.MovesToGo,
		Depth:     opts.Depth,
		Nodes:     opts.Nodes,
		MoveTime:  opts.MoveTime,
		Infinite:  opts.Infinite,
	}
}

// sendInfo outputs search progress in UCI format.
func (u *UCI) sendInfo(info search.Info) {
	var parts []string

	parts = append(parts, fmt.Sprintf("depth %d", info.Depth))
	if info.SelDepth > 0 {
		parts = append(parts, fmt.Sprintf("seldepth %d", info.SelDepth))
	}

	switch {
	case info.Score >= search.MateInMax:
		mateIn := (search.MateValue - info.Score + 1) / 2
		parts = append(parts, fmt.Sprintf("score mate %d", mateIn))
	case info.Score <= -search.MateInMax:
		mateIn := -(search.MateValue + info.Score + 1) / 2
		parts = append(parts, fmt.Sprintf("score mate %d", mateIn))
	default:
		parts = append(parts, fmt.Sprintf("score cp %d", info.Score))
	}

	parts = append(parts, fmt.Sprintf("nodes %d", info.Nodes))
	parts = append(parts, fmt.Sprintf("time %d", info.Time.Milliseconds()))
	if info.Time > 0 {
		nps := uint64(float64(info.Nodes) / info.Time.Seconds())
		parts = append(parts, fmt.Sprintf("nps %d", nps))
	}
	if info.HashFull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	}

	if len(info.PV) > 0 {
		moveStrs := make([]string, len(info.PV))
		for i, m := range info.PV {
			moveStrs[i] = m.String()
		}
		parts = append(parts, "pv "+strings.Join(moveStrs, " "))
	}

	fmt.Printf("info %s\n", strings.Join(parts, " "))
}

// handleStop stops the current search and waits for it to report its move.
func (u *UCI) handleStop() {
	if u.searching {
		u.stopRequested.Store(true)
		u.engine.Stop()
		<-u.searchDone
	}
}

// handleQuit stops any search, finalizes profiling, and exits.
func (u *UCI) handleQuit() {
	u.handleStop()
	if u.profileFile != nil {
		pprof.StopCPUProfile()
		u.profileFile.Close()
	}
	os.Exit(0)
}

// handleSetOption processes "setoption" commands.
func (u *UCI) handleSetOption(args []string) {
	var name, value string
	readingName, readingValue := false, false

	for _, arg := range args {
		switch arg {
		case "name":
			readingName, readingValue = true, false
		case "value":
			readingName, readingValue = false, true
		default:
			if readingName {
				if name != "" {
					name += " "
				}
				name += arg
			} else if readingValue {
				if value != "" {
					value += " "
				}
				value += arg
			}
		}
	}

	switch strings.ToLower(name) {
	case "hash":
		if mb, err := strconv.Atoi(value); err == nil && mb > 0 {
			u.engine.ResizeTT(mb)
		}
	case "threads":
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			u.threads = n
		}
	case "evalfile":
		u.evalFile = value
		net, err := loadNetwork(value)
		if err != nil {
			elog.Get().Errorf("uci: failed to load EvalFile %q: %v", value, err)
			return
		}
		u.engine.SetEvaluatorFactory(func() search.Evaluator {
			return nnue.NewEvaluator(net)
		})
	case "uci_chess960":
		u.chess960 = strings.ToLower(value) == "true"
	case "cpuprofile":
		if u.profileFile != nil {
			pprof.StopCPUProfile()
			u.profileFile.Close()
			u.profileFile = nil
		}
		if value != "" && value != "stop" {
			f, err := os.Create(value)
			if err != nil {
				elog.Get().Errorf("uci: failed to create CPU profile %q: %v", value, err)
				return
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				f.Close()
				elog.Get().Errorf("uci: failed to start CPU profile: %v", err)
				return
			}
			u.profileFile = f
		}
	}
}

// loadNetwork loads a standalone NNUE weight file.
func loadNetwork(path string) (*nnue.Network, error) {
	net := nnue.NewNetwork()
	if err := net.LoadWeights(path); err != nil {
		return nil, err
	}
	return net, nil
}

// handlePerft runs a perft (node-count) test from the current position.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		depth, _ = strconv.Atoi(args[0])
	}

	start := time.Now()
	nodes := perft(u.position, depth)
	elapsed := time.Since(start)

	fmt.Printf("Nodes: %d\n", nodes)
	fmt.Printf("Time: %v\n", elapsed)
	if elapsed > 0 {
		fmt.Printf("NPS: %.0f\n", float64(nodes)/elapsed.Seconds())
	}
}

// perft counts leaf nodes at depth by brute-force move generation.
func perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}

	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		pos.DoMove(m)
		nodes += perft(pos, depth-1)
		pos.UndoMove(m)
	}
	return nodes
}
