// Command chessplay-uci is the UCI entrypoint: it loads NNUE weights (if
// available), builds the search engine, and runs the UCI protocol loop over
// stdin/stdout.
package main

import (
	"flag"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/chessplay/engine/internal/elog"
	"github.com/chessplay/engine/internal/nnue"
	"github.com/chessplay/engine/internal/search"
	"github.com/chessplay/engine/internal/uci"
)

const defaultNet = "chessplay.nnue"

var (
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	evalFile   = flag.String("evalfile", "", "path to NNUE weight file (default: auto-discover)")
	hashMB     = flag.Int("hash", 64, "transposition table size in MB")
)

func main() {
	flag.Parse()
	log := elog.Get()

	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatalf("could not create CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("could not start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
		log.Infof("CPU profiling enabled, writing to %s", profilePath)
	}

	net := nnue.NewNetwork()
	if path := resolveEvalFile(); path != "" {
		if err := net.LoadWeights(path); err != nil {
			log.Warningf("could not load NNUE weights from %s: %v (using random fallback weights)", path, err)
			net.InitRandom(12345)
		}
	} else {
		log.Warningf("no NNUE weight file found; using random fallback weights")
		net.InitRandom(12345)
	}

	eng := search.NewEngine(*hashMB, func() search.Evaluator {
		return nnue.NewEvaluator(net)
	})

	protocol := uci.New(eng)
	protocol.Run()
}

// resolveEvalFile returns the NNUE weight file to load: the -evalfile flag
// if given, otherwise the first match among a handful of standard
// locations.
func resolveEvalFile() string {
	if *evalFile != "" {
		return *evalFile
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	candidates := []string{
		filepath.Join(home, ".chessplay", defaultNet),
		filepath.Join(".", "nnue", defaultNet),
		filepath.Join(".", defaultNet),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
