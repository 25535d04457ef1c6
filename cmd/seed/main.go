package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/orsheep/internal/seeding"
	"github.com/okian/orsheep/pkg/logger"
)

const (
	workersPerCPU = 2
	runTimeout    = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", seeding.DefaultBaseURL, "Base URL of the service")
		students    = flag.Int("students", seeding.DefaultStudents, "Number of students to create")
		completions = flag.Int("completions", seeding.DefaultCompletions, "Number of completion events to post")
		workers     = flag.Int("workers", runtime.NumCPU()*workersPerCPU, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", seeding.DefaultTimeout, "HTTP request timeout")
		settle      = flag.Duration("settle", seeding.DefaultSettle, "How long to wait for events to be persisted")
		policy      = flag.String("policy", "average", "Ranking policy to request")
		limit       = flag.Int("limit", seeding.DefaultLimit, "Leaderboard size to request")
		seed        = flag.Uint64("seed", 0, "Random seed; 0 uses the clock")
		verbose     = flag.Bool("verbose", false, "Log every failed request")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seeding.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg := &seeding.Config{
		BaseURL:     *baseURL,
		Students:    *students,
		Completions: *completions,
		Workers:     *workers,
		Timeout:     *timeout,
		Settle:      *settle,
		Policy:      *policy,
		Limit:       *limit,
		Seed:        *seed,
		Verbose:     *verbose,
	}
	if _, err := seeding.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "seeding failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}
