// Package fleet schedules one workflow per account, either one after another
// or through a bounded worker pool, and collects exactly one result per
// account in credential order.
package fleet

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bgricker/checkin/internal/credential"
	checkinerrors "github.com/bgricker/checkin/internal/errors"
	"github.com/bgricker/checkin/internal/logging"
	"github.com/bgricker/checkin/internal/report"
	"github.com/bgricker/checkin/internal/workflow"
)

// Mode selects how accounts are scheduled.
type Mode string

const (
	Sequential Mode = "sequential"
	Concurrent Mode = "concurrent"
)

const (
	// MinWorkers keeps the pool from deadlocking on a zero-capacity semaphore.
	MinWorkers = 1
	// MaxWorkers caps the pool; remote services throttle long before this.
	MaxWorkers = 64
	// DefaultWorkers is the pool size when none is configured.
	DefaultWorkers = 3
)

// ParseMode accepts the mode names and the numeric shorthand 1 and 2.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "1", "sequential", "seq":
		return Sequential, nil
	case "2", "concurrent", "parallel":
		return Concurrent, nil
	default:
		return "", checkinerrors.Configf("unknown mode %q (want sequential or concurrent)", s)
	}
}

// Runnable runs one account and always returns its result.
type Runnable interface {
	Run(ctx context.Context) report.AccountResult
}

// Factory builds the runnable for one account.
type Factory func(cred credential.Credential) (Runnable, error)

// Options configure a Scheduler.
type Options struct {
	Service string
	Mode    Mode
	Workers int
	// Delay separates consecutive accounts in sequential mode.
	Delay workflow.Range

	Sleep  func(ctx context.Context, d time.Duration) error
	Rand   func(n int64) int64
	Logger *zap.Logger
	Now    func() time.Time
}

// Scheduler runs a fleet of accounts.
type Scheduler struct {
	opts Options
	log  *zap.Logger
}

// New creates a scheduler, clamping the worker count into range.
func New(opts Options) *Scheduler {
	if opts.Mode == "" {
		opts.Mode = Sequential
	}
	if opts.Sleep == nil {
		opts.Sleep = workflow.Sleep
	}
	if opts.Rand == nil {
		opts.Rand = rand.Int64N
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	switch {
	case opts.Workers == 0:
		opts.Workers = DefaultWorkers
	case opts.Workers < MinWorkers || opts.Workers > MaxWorkers:
		opts.Logger.Warn("worker count out of range, using default",
			zap.Int("workers", opts.Workers), zap.Int("min", MinWorkers), zap.Int("max", MaxWorkers), zap.Int("default", DefaultWorkers))
		opts.Workers = DefaultWorkers
	}
	return &Scheduler{opts: opts, log: opts.Logger}
}

// Workers returns the effective pool size.
func (s *Scheduler) Workers() int {
	return s.opts.Workers
}

// Run executes every account and aggregates the results. It returns one
// result per credential, in the order of creds, whatever happens inside the
// individual workflows.
func (s *Scheduler) Run(ctx context.Context, creds []credential.Credential, factory Factory) ([]report.AccountResult, report.FleetResult) {
	start := s.opts.Now()
	s.log.Info("fleet starting",
		zap.String("service", s.opts.Service),
		zap.String("mode", string(s.opts.Mode)),
		zap.Int("accounts", len(creds)),
		zap.Int("workers", s.effectiveWorkers(len(creds))))

	var results []report.AccountResult
	if s.opts.Mode == Concurrent {
		results = s.runConcurrent(ctx, creds, factory)
	} else {
		results = s.runSequential(ctx, creds, factory)
	}

	fleet := report.Aggregate(s.opts.Service, string(s.opts.Mode), results, s.opts.Now().Sub(start))
	s.log.Info("fleet finished",
		zap.Int("total", fleet.Total),
		zap.Int("succeeded", fleet.Succeeded),
		zap.Int("failed", fleet.Failed),
		zap.Duration("elapsed", fleet.Duration))
	return results, fleet
}

func (s *Scheduler) effectiveWorkers(n int) int {
	if s.opts.Mode != Concurrent {
		return 1
	}
	return max(MinWorkers, min(s.opts.Workers, n))
}

func (s *Scheduler) runSequential(ctx context.Context, creds []credential.Credential, factory Factory) []report.AccountResult {
	results := make([]report.AccountResult, 0, len(creds))
	for i, cred := range creds {
		if i > 0 {
			if d := s.opts.Delay.Pick(s.opts.Rand); d > 0 {
				s.log.Info("waiting before next account", zap.Duration("delay", d), zap.Int("next", i+1), zap.Int("of", len(creds)))
				if err := s.opts.Sleep(ctx, d); err != nil {
					s.log.Warn("inter-account delay interrupted", zap.Error(err))
				}
			}
		}
		s.log.Info("processing account", zap.Int("position", i+1), zap.Int("of", len(creds)), logging.Account(cred))
		results = append(results, s.runOne(ctx, cred, factory))
	}
	return results
}

type indexed struct {
	pos    int
	result report.AccountResult
}

func (s *Scheduler) runConcurrent(ctx context.Context, creds []credential.Credential, factory Factory) []report.AccountResult {
	workers := s.effectiveWorkers(len(creds))
	sem := make(chan struct{}, workers)
	done := make(chan indexed, len(creds))

	for i, cred := range creds {
		go func(pos int, cred credential.Credential) {
			select {
			case <-ctx.Done():
				done <- indexed{pos: pos, result: failure(cred, checkinerrors.Wrap(ctx.Err(), "not started"))}
				return
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()
			done <- indexed{pos: pos, result: s.runOne(ctx, cred, factory)}
		}(i, cred)
	}

	// Only this loop writes results.
	results := make([]report.AccountResult, len(creds))
	for range creds {
		r := <-done
		results[r.pos] = r.result
	}
	return results
}

// runOne is the scheduler's failure boundary: factory errors, panics and
// missing runnables all become a failing result for cred.
func (s *Scheduler) runOne(ctx context.Context, cred credential.Credential, factory Factory) (result report.AccountResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("account panicked", logging.Account(cred), zap.Any("panic", r))
			result = failure(cred, checkinerrors.Newf("unexpected error: %v", r))
		}
		result.Index = cred.Index
		result.Account = cred.Masked()
		s.log.Info("account done", logging.Account(cred), zap.Bool("success", result.Success), zap.String("message", result.Message))
	}()

	runnable, err := factory(cred)
	if err != nil {
		return failure(cred, err)
	}
	if runnable == nil {
		return failure(cred, fmt.Errorf("no workflow for account"))
	}
	return runnable.Run(ctx)
}

func failure(cred credential.Credential, err error) report.AccountResult {
	return report.AccountResult{
		Index:   cred.Index,
		Account: cred.Masked(),
		Success: false,
		Message: err.Error(),
		Phase:   workflow.PhaseInit.String(),
	}
}
