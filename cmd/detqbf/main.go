package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/rhartert/detqbf/internal/aiger"
	"github.com/rhartert/detqbf/internal/engine"
	"github.com/rhartert/detqbf/internal/qdimacs"
)

var flagCPUProfile = flag.Bool(
	"cpuprof",
	false,
	"save pprof CPU profile in cpuprof",
)

var flagMemProfile = flag.Bool(
	"memprof",
	false,
	"save pprof memory profile in memprof",
)

var flagCEGAR = flag.Bool(
	"cegar",
	true,
	"enable the CEGAR refinement loop over universal assumptions",
)

var flagCaseSplits = flag.Bool(
	"casesplits",
	true,
	"enable the case-split driver on notorious interface literals",
)

var flagCompliance = flag.Bool(
	"compliance",
	false,
	"print a trailing \"s cnf 0\" line after the result, as QDIMACS solvers do",
)

var flagMaxConflicts = flag.Int64(
	"max-conflicts",
	0,
	"abort the search after this many conflicts (0 disables the cap)",
)

var flagTimeout = flag.Duration(
	"timeout",
	0,
	"abort the search after this long (0 disables the timeout)",
)

var flagCertFile = flag.String(
	"cert",
	"",
	"on SAT, write a simplified Skolem-function certificate to this file",
)

func parseConfig() (*config, error) {
	flag.Parse()

	if flag.NArg() == 0 || flag.Arg(0) == "" {
		return nil, fmt.Errorf("missing instance file")
	}
	return &config{
		instanceFile: flag.Arg(0),
		memProfile:   *flagMemProfile,
		cpuProfile:   *flagCPUProfile,
		cegar:        *flagCEGAR,
		caseSplits:   *flagCaseSplits,
		compliance:   *flagCompliance,
		maxConflicts: *flagMaxConflicts,
		timeout:      *flagTimeout,
		certFile:     *flagCertFile,
	}, nil
}

type config struct {
	instanceFile string
	memProfile   bool
	cpuProfile   bool
	cegar        bool
	caseSplits   bool
	compliance   bool
	maxConflicts int64
	timeout      time.Duration
	certFile     string
}

// exit codes, mirrored after the QDIMACS solver convention: 10 SAT, 20
// UNSAT, 30 UNKNOWN, 1 usage/input error.
const (
	exitSAT     = 10
	exitUNSAT   = 20
	exitUnknown = 30
	exitUsage   = 1
)

func run(cfg *config) (int, error) {
	q, err := qdimacs.Load(cfg.instanceFile)
	if err != nil {
		return exitUsage, fmt.Errorf("could not parse instance: %s", err)
	}

	opts := engine.DefaultOptions
	opts.CEGAR = cfg.cegar
	opts.CaseSplits = cfg.caseSplits

	e := engine.New(q, opts)

	if cfg.timeout > 0 {
		timer := time.AfterFunc(cfg.timeout, e.Abort)
		defer timer.Stop()
	}
	if cfg.maxConflicts > 0 {
		stop := make(chan struct{})
		defer close(stop)
		go watchConflictCap(e, cfg.maxConflicts, stop)
	}

	fmt.Printf("c variables:  %d\n", q.NumVariables())
	fmt.Printf("c clauses:    %d\n", q.NumClauses())

	t := time.Now()
	state, err := e.Solve()
	elapsed := time.Since(t)
	if err != nil {
		return exitUsage, fmt.Errorf("rejected instance: %s", err)
	}

	fmt.Printf("c time (sec): %f\n", elapsed.Seconds())
	fmt.Printf("c conflicts:  %d (%.2f /sec)\n", e.TotalConflicts(), float64(e.TotalConflicts())/elapsed.Seconds())
	fmt.Printf("c restarts:   %d\n", e.TotalRestarts())
	fmt.Printf("c status:     %s\n", state.String())

	switch state {
	case engine.SAT:
		if cfg.certFile != "" {
			if err := writeCertificate(cfg.certFile, e); err != nil {
				return exitUsage, fmt.Errorf("could not write certificate: %s", err)
			}
		}
		if cfg.compliance {
			fmt.Println("s cnf 0")
		}
		return exitSAT, nil
	case engine.UNSAT:
		for _, lit := range e.RefutingAssignment() {
			fmt.Printf("v %d\n", int(lit))
		}
		if cfg.compliance {
			fmt.Println("s cnf 0")
		}
		return exitUNSAT, nil
	default:
		return exitUnknown, nil
	}
}

// watchConflictCap polls the engine's conflict counter and aborts the search
// once it crosses max, the way -timeout aborts it on a deadline instead.
func watchConflictCap(e *engine.Engine, max int64, stop <-chan struct{}) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if e.TotalConflicts() >= max {
				e.Abort()
				return
			}
		}
	}
}

func writeCertificate(filename string, e *engine.Engine) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return aiger.WriteCertificate(f, e.QCNF(), e.Skolem())
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.cpuProfile {
		f, err := os.Create("cpuprof")
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
	}

	code, err := run(cfg)
	if err != nil {
		log.Fatal(err)
	}

	// os.Exit below skips deferred calls, so the profiles are flushed
	// explicitly rather than via defer.
	if cfg.cpuProfile {
		pprof.StopCPUProfile()
	}
	if cfg.memProfile {
		f, err := os.Create("memprof")
		if err != nil {
			log.Fatal(err)
		}
		pprof.WriteHeapProfile(f)
		f.Close()
	}

	os.Exit(code)
}
