package workflow

import (
	"context"
	"time"

	"github.com/bgricker/checkin/internal/credential"
	checkinerrors "github.com/bgricker/checkin/internal/errors"
)

// Phase is the furthest state an account's workflow reached.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseAuthenticated
	PhaseVerified
	PhaseActionDone
	PhaseStatusQueried
	PhaseSummarized
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseVerified:
		return "verified"
	case PhaseActionDone:
		return "action-done"
	case PhaseStatusQueried:
		return "status-queried"
	case PhaseSummarized:
		return "summarized"
	default:
		return "unknown"
	}
}

// Verdict tags a step outcome.
type Verdict int

const (
	Failure Verdict = iota
	Success
	// Ambiguous means the response could not be classified. Mandatory steps
	// treat it as a failure.
	Ambiguous
)

func (v Verdict) String() string {
	switch v {
	case Success:
		return "success"
	case Ambiguous:
		return "ambiguous"
	default:
		return "failure"
	}
}

// Outcome is the result of one workflow step.
type Outcome struct {
	Verdict Verdict
	Message string
	// Lines carries auxiliary info such as remaining quota or points.
	Lines []string
	Err   error
}

// OK reports whether the step succeeded.
func (o Outcome) OK() bool {
	return o.Verdict == Success
}

// Succeeded builds a successful outcome.
func Succeeded(message string, lines ...string) Outcome {
	return Outcome{Verdict: Success, Message: message, Lines: lines}
}

// Failed builds a failed outcome from err.
func Failed(err error) Outcome {
	if err == nil {
		err = checkinerrors.New("step failed without an error")
	}
	return Outcome{Verdict: Failure, Message: err.Error(), Err: err}
}

// Unclear builds an ambiguous outcome carrying a parse error for step.
func Unclear(step, message string) Outcome {
	err := checkinerrors.Parse(step, message, nil)
	return Outcome{Verdict: Ambiguous, Message: err.Error(), Err: err}
}

// Capabilities selects the optional steps a remote service flavor needs.
type Capabilities struct {
	Challenge bool
	Status    bool
}

// Ticket is an anti-bot proof returned by a challenge solver.
type Ticket struct {
	Value string
	Nonce string
}

// Service is one remote check-in flavor. Implementations must be safe for
// concurrent Open calls; everything mutable lives in the returned Session.
type Service interface {
	Name() string
	Capabilities() Capabilities
	Open(cred credential.Credential) Session
}

// Session owns one account's remote session state: cookies, tokens and any
// data a later step needs from an earlier one. A Session is used by exactly
// one workflow and discarded when it returns.
type Session interface {
	Authenticate(ctx context.Context) Outcome
	// PerformAction runs the daily action. ticket is nil when the service
	// does not require a challenge.
	PerformAction(ctx context.Context, ticket *Ticket) Outcome
	QueryStatus(ctx context.Context) Outcome
	Close()
}

// Solver obtains a challenge ticket with a single request.
type Solver interface {
	Solve(ctx context.Context) (Ticket, error)
}

// Range is an inclusive duration range. A zero Max picks Min.
type Range struct {
	Min time.Duration
	Max time.Duration
}

// Pick returns a duration within the range using rnd(n) in [0, n).
func (r Range) Pick(rnd func(n int64) int64) time.Duration {
	if r.Max <= r.Min || rnd == nil {
		return r.Min
	}
	return r.Min + time.Duration(rnd(int64(r.Max-r.Min)+1))
}
