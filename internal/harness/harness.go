// Package harness wires discovery, the fixture registry, the task matrix,
// and the worker pool into one run.
package harness

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"crosscheck/internal/config"
	"crosscheck/internal/execute"
	"crosscheck/internal/fixture"
	"crosscheck/internal/matrix"
	"crosscheck/internal/pool"
	"crosscheck/internal/sample"
	"crosscheck/internal/verify"
)

// Params configures one run. Fixtures and Gen default to the production
// registry and generator; tests inject substitutes.
type Params struct {
	Config *config.Config

	// Args are the sample path arguments from the command line.
	Args []string

	Fixtures []fixture.Fixture
	Gen      execute.Invoker

	Log *zap.Logger
}

// Tally aggregates non-fatal outcomes of a full run.
type Tally struct {
	Passed    int
	Tolerated int
	Skipped   int
}

// Total is the number of work items that produced an outcome.
func (t Tally) Total() int {
	return t.Passed + t.Tolerated + t.Skipped
}

// Run executes the whole matrix. Any returned error is a hard failure and
// the process should exit non-zero; tolerated mismatches and skips are
// reported in the Tally only.
func Run(ctx context.Context, p Params) (Tally, error) {
	cfg := p.Config
	log := p.Log
	start := time.Now()

	fixtures := p.Fixtures
	if fixtures == nil {
		fixtures = fixture.Registry(cfg.ValidatorBin)
	}
	var gen execute.Invoker = p.Gen
	if gen == nil {
		gen = execute.NewGenerator(cfg.ToolBin)
	}

	selected, err := fixture.Filter(fixtures, cfg.OnlyFixture)
	if err != nil {
		return Tally{}, err
	}

	exceptions, err := config.LoadExceptions(cfg.ExceptionsPath)
	if err != nil {
		return Tally{}, err
	}

	samples, err := sample.Discover(p.Args, config.DefaultSampleDir, config.RestrictedSampleDir, cfg.Restricted())
	if err != nil {
		return Tally{}, err
	}

	items := matrix.Build(fixture.Names(selected), samples)
	workers := pool.Workers(cfg.Workers, cfg.CI)
	log.Info("starting run",
		zap.Int("fixtures", len(selected)),
		zap.Int("samples", len(samples)),
		zap.Int("items", len(items)),
		zap.Int("workers", workers),
		zap.String("branch", cfg.Branch))

	engine := &verify.Engine{
		Fixtures:   fixture.ByName(selected),
		Gen:        gen,
		Exceptions: exceptions,
		Keep:       cfg.KeepSandboxes,
		Log:        log.Named("verify"),
	}

	var (
		mu    sync.Mutex
		tally Tally
	)
	setup := setupPhase(selected, log.Named("setup"))
	work := func(ctx context.Context, idx int) error {
		outcome, err := engine.Execute(ctx, items[idx])
		if err != nil {
			return err
		}
		mu.Lock()
		switch outcome.Kind {
		case verify.Passed:
			tally.Passed++
		case verify.Tolerated:
			tally.Tolerated++
		case verify.Skipped:
			tally.Skipped++
		}
		mu.Unlock()
		log.Debug("item finished",
			zap.String("fixture", items[idx].Fixture),
			zap.String("sample", items[idx].Sample.Name()),
			zap.Stringer("outcome", outcome.Kind))
		return nil
	}

	if err := pool.Run(ctx, workers, len(items), setup, work); err != nil {
		return tally, err
	}

	log.Info("run complete",
		zap.Int("passed", tally.Passed),
		zap.Int("tolerated", tally.Tolerated),
		zap.Int("skipped", tally.Skipped),
		zap.Duration("elapsed", time.Since(start)))
	return tally, nil
}

// setupPhase runs every fixture's setup action concurrently; all must finish
// before the pool dispatches the first item. Actions are independent, each
// scoped to its own template directory.
func setupPhase(fixtures []fixture.Fixture, log *zap.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)
		for _, f := range fixtures {
			sf, ok := f.(fixture.SetupFixture)
			if !ok {
				continue
			}
			g.Go(func() error {
				log.Info("running fixture setup", zap.String("fixture", sf.Name()))
				return sf.Setup(ctx)
			})
		}
		return g.Wait()
	}
}
