// Package workflow runs one account through the check-in state machine:
// authenticate, optionally solve a challenge, perform the daily action,
// optionally query status, and summarize into a report.AccountResult.
//
// Which optional steps run is decided by the service's Capabilities, so every
// remote flavor shares the same pipeline.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/bgricker/checkin/internal/credential"
	checkinerrors "github.com/bgricker/checkin/internal/errors"
	"github.com/bgricker/checkin/internal/logging"
	"github.com/bgricker/checkin/internal/report"
)

const (
	stepLogin     = "login"
	stepChallenge = "challenge"
	stepAction    = "checkin"
	stepStatus    = "status"
)

// Options configure a workflow.
type Options struct {
	// CallTimeout bounds every remote call, including each solver attempt.
	CallTimeout time.Duration
	// ChallengeAttempts is the fixed number of solver calls before giving up.
	ChallengeAttempts int
	// ChallengeDelay separates solver attempts.
	ChallengeDelay time.Duration
	// SettleDelay is slept after a successful login.
	SettleDelay Range
	// StatusRequired makes a failed status query fail the account. It has no
	// effect for services without a status step.
	StatusRequired bool

	Sleep  func(ctx context.Context, d time.Duration) error
	Rand   func(n int64) int64
	Logger *zap.Logger
	Now    func() time.Time
}

// Workflow is the state machine for one account.
type Workflow struct {
	svc    Service
	solver Solver
	cred   credential.Credential
	opts   Options
	log    *zap.Logger
	phase  Phase
}

// state is the per-run context the steps share. It never leaves Run.
type state struct {
	ticket  *Ticket
	failure *Outcome
	action  *Outcome
	status  *Outcome
}

type step struct {
	name  string
	reach Phase
	// opportunistic steps still run after the action step failed.
	opportunistic bool
	run           func(ctx context.Context, sess Session, st *state) Outcome
}

// New creates a workflow for cred. solver may be nil when the service does
// not need challenges.
func New(svc Service, solver Solver, cred credential.Credential, opts Options) *Workflow {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 30 * time.Second
	}
	if opts.ChallengeAttempts <= 0 {
		opts.ChallengeAttempts = 3
	}
	if opts.ChallengeDelay < 0 {
		opts.ChallengeDelay = 0
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
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
	return &Workflow{
		svc:    svc,
		solver: solver,
		cred:   cred,
		opts:   opts,
		log:    opts.Logger.With(logging.Account(cred)),
	}
}

// Phase returns the furthest state reached so far.
func (w *Workflow) Phase() Phase {
	return w.phase
}

// Run executes the pipeline and always returns a terminal result; it never
// panics past its own boundary.
func (w *Workflow) Run(ctx context.Context) (result report.AccountResult) {
	start := w.opts.Now()
	st := &state{}

	defer func() {
		if r := recover(); r != nil {
			reason := w.cred.Redact(fmt.Sprint(r))
			w.log.Error("workflow panicked", zap.String("panic", reason), zap.Stringer("phase", w.phase))
			if st.action == nil {
				out := Failed(checkinerrors.Newf("unexpected error: %s", reason))
				st.failure = &out
			}
			result = w.summarize(st, start)
		}
	}()

	w.log.Info("starting", zap.String("service", w.svc.Name()))

	sess := w.svc.Open(w.cred)
	if sess == nil {
		out := Failed(checkinerrors.Newf("%s: no session", w.svc.Name()))
		st.failure = &out
		return w.summarize(st, start)
	}
	defer sess.Close()

	for _, s := range w.pipeline() {
		if st.failure != nil && !(s.opportunistic && st.action != nil) {
			continue
		}
		out := s.run(ctx, sess, st)
		switch {
		case out.OK():
			if st.failure == nil {
				w.phase = s.reach
			}
			w.log.Debug("step done", zap.String("step", s.name), zap.String("message", out.Message))
		case s.opportunistic:
			w.log.Warn("step failed", zap.String("step", s.name), zap.String("reason", out.Message))
		default:
			st.failure = &out
			w.log.Warn("step failed", zap.String("step", s.name), zap.Stringer("verdict", out.Verdict), zap.String("reason", out.Message))
		}
	}

	return w.summarize(st, start)
}

func (w *Workflow) pipeline() []step {
	caps := w.svc.Capabilities()
	steps := []step{{name: stepLogin, reach: PhaseAuthenticated, run: w.authenticate}}
	if caps.Challenge {
		steps = append(steps, step{name: stepChallenge, reach: PhaseVerified, run: w.solveChallenge})
	}
	steps = append(steps, step{name: stepAction, reach: PhaseActionDone, run: w.performAction})
	if caps.Status {
		steps = append(steps, step{name: stepStatus, reach: PhaseStatusQueried, opportunistic: true, run: w.queryStatus})
	}
	return steps
}

func (w *Workflow) authenticate(ctx context.Context, sess Session, _ *state) Outcome {
	callCtx, cancel := context.WithTimeout(ctx, w.opts.CallTimeout)
	out := w.redact(sess.Authenticate(callCtx))
	cancel()
	if !out.OK() {
		return mandatory(out)
	}
	if d := w.opts.SettleDelay.Pick(w.opts.Rand); d > 0 {
		w.log.Info("settling after login", zap.Duration("delay", d))
		if err := w.opts.Sleep(ctx, d); err != nil {
			return Failed(checkinerrors.Wrap(err, "interrupted after login"))
		}
	}
	return out
}

func (w *Workflow) solveChallenge(ctx context.Context, _ Session, st *state) Outcome {
	if w.solver == nil {
		return Failed(checkinerrors.ChallengeUnavailable(0, errors.New("no solver configured")))
	}

	attempts := w.opts.ChallengeAttempts
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, w.opts.CallTimeout)
		ticket, err := w.solver.Solve(callCtx)
		cancel()
		if err == nil && ticket.Value == "" {
			err = errors.New("solver returned an empty ticket")
		}
		if err == nil {
			st.ticket = &ticket
			return Succeeded("challenge solved")
		}

		lastErr = err
		w.log.Warn("challenge attempt failed", zap.Int("attempt", attempt), zap.Int("maxAttempts", attempts), zap.Error(err))
		if attempt == attempts {
			break
		}
		if err := w.opts.Sleep(ctx, w.opts.ChallengeDelay); err != nil {
			lastErr = err
			break
		}
	}
	return Failed(checkinerrors.ChallengeUnavailable(attempts, lastErr))
}

func (w *Workflow) performAction(ctx context.Context, sess Session, st *state) Outcome {
	callCtx, cancel := context.WithTimeout(ctx, w.opts.CallTimeout)
	out := mandatory(w.redact(sess.PerformAction(callCtx, st.ticket)))
	cancel()
	st.action = &out
	return out
}

func (w *Workflow) queryStatus(ctx context.Context, sess Session, st *state) Outcome {
	callCtx, cancel := context.WithTimeout(ctx, w.opts.CallTimeout)
	out := w.redact(sess.QueryStatus(callCtx))
	cancel()
	st.status = &out
	return out
}

// redact masks the account wherever the remote echoed it back.
func (w *Workflow) redact(out Outcome) Outcome {
	out.Message = w.cred.Redact(out.Message)
	if len(out.Lines) > 0 {
		lines := make([]string, len(out.Lines))
		for i, line := range out.Lines {
			lines[i] = w.cred.Redact(line)
		}
		out.Lines = lines
	}
	return out
}

// mandatory folds an ambiguous outcome into a failure.
func mandatory(out Outcome) Outcome {
	if out.Verdict == Ambiguous {
		out.Verdict = Failure
	}
	return out
}

// summarize combines the step outcomes. The action outcome dominates; the
// status lines are attached whenever the status query succeeded.
func (w *Workflow) summarize(st *state, start time.Time) report.AccountResult {
	success := false
	var message string
	var lines []string

	switch {
	case st.action != nil:
		success = st.action.OK()
		message = st.action.Message
	case st.failure != nil:
		message = st.failure.Message
	default:
		message = "workflow ended without an action"
	}

	if st.status != nil {
		if st.status.OK() {
			lines = append(lines, st.status.Lines...)
		} else if success && w.opts.StatusRequired {
			success = false
			message = fmt.Sprintf("%s; status unavailable: %s", message, st.status.Message)
		}
	}

	reached := w.phase
	w.phase = PhaseSummarized
	elapsed := w.opts.Now().Sub(start)

	w.log.Info("finished", zap.Bool("success", success), zap.String("message", message), zap.Stringer("reached", reached), zap.Duration("elapsed", elapsed))

	return report.AccountResult{
		Index:      w.cred.Index,
		Account:    w.cred.Masked(),
		Success:    success,
		Message:    message,
		Lines:      lines,
		Phase:      reached.String(),
		Duration:   elapsed,
		DurationMS: elapsed.Milliseconds(),
	}
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
