package fleet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bgricker/checkin/internal/credential"
	"github.com/bgricker/checkin/internal/report"
	"github.com/bgricker/checkin/internal/workflow"
)

type runFunc func(ctx context.Context) report.AccountResult

func (f runFunc) Run(ctx context.Context) report.AccountResult { return f(ctx) }

func creds(n int) []credential.Credential {
	out := make([]credential.Credential, n)
	for i := range out {
		out[i] = credential.Credential{Index: i + 1, Identifier: fmt.Sprintf("user%d@x.com", i+1), Secret: "pw"}
	}
	return out
}

func succeedAll(cred credential.Credential) (Runnable, error) {
	return runFunc(func(context.Context) report.AccountResult {
		return report.AccountResult{Index: cred.Index, Account: cred.Masked(), Success: true, Message: "ok"}
	}), nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestRunPreservesCredentialOrder(t *testing.T) {
	for _, mode := range []Mode{Sequential, Concurrent} {
		t.Run(string(mode), func(t *testing.T) {
			accounts := creds(7)
			// Later accounts finish first in concurrent mode.
			factory := func(cred credential.Credential) (Runnable, error) {
				return runFunc(func(context.Context) report.AccountResult {
					time.Sleep(time.Duration(len(accounts)-cred.Index) * time.Millisecond)
					return report.AccountResult{Index: cred.Index, Success: true}
				}), nil
			}

			results, fleet := New(Options{Mode: mode, Workers: 3, Sleep: noSleep}).Run(context.Background(), accounts, factory)
			if len(results) != len(accounts) {
				t.Fatalf("expected %d results, got %d", len(accounts), len(results))
			}
			for i, r := range results {
				if r.Index != i+1 {
					t.Fatalf("result %d has index %d", i, r.Index)
				}
				if r.Account != accounts[i].Masked() {
					t.Fatalf("result %d has account %q", i, r.Account)
				}
			}
			if fleet.Total != 7 || fleet.Succeeded != 7 || !fleet.Success || fleet.Mode != string(mode) {
				t.Fatalf("unexpected fleet %+v", fleet)
			}
		})
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	for _, mode := range []Mode{Sequential, Concurrent} {
		t.Run(string(mode), func(t *testing.T) {
			factory := func(cred credential.Credential) (Runnable, error) {
				switch cred.Index {
				case 2:
					return nil, errors.New("cannot build session")
				case 3:
					return runFunc(func(context.Context) report.AccountResult { panic("kaboom") }), nil
				case 4:
					return nil, nil
				}
				return succeedAll(cred)
			}

			results, fleet := New(Options{Mode: mode, Sleep: noSleep}).Run(context.Background(), creds(5), factory)
			if fleet.Total != 5 || fleet.Succeeded != 2 || fleet.Failed != 3 || fleet.Success {
				t.Fatalf("unexpected fleet %+v", fleet)
			}
			if !strings.Contains(results[1].Message, "cannot build session") {
				t.Fatalf("factory error not reported: %+v", results[1])
			}
			if !strings.Contains(results[2].Message, "kaboom") || results[2].Index != 3 {
				t.Fatalf("panic not converted: %+v", results[2])
			}
			if results[3].Success {
				t.Fatalf("nil runnable must fail")
			}
			if !results[4].Success {
				t.Fatalf("accounts after a failure must still run")
			}
		})
	}
}

func TestConcurrentRespectsWorkerCeiling(t *testing.T) {
	var running, peak atomic.Int32
	factory := func(cred credential.Credential) (Runnable, error) {
		return runFunc(func(context.Context) report.AccountResult {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return report.AccountResult{Index: cred.Index, Success: true}
		}), nil
	}

	results, _ := New(Options{Mode: Concurrent, Workers: 2}).Run(context.Background(), creds(10), factory)
	if len(results) != 10 {
		t.Fatalf("expected 10 results, got %d", len(results))
	}
	if peak.Load() > 2 {
		t.Fatalf("worker ceiling exceeded: %d concurrent", peak.Load())
	}
}

func TestSequentialDelayOnlyBetweenAccounts(t *testing.T) {
	var mu sync.Mutex
	var events []string
	sleep := func(_ context.Context, d time.Duration) error {
		mu.Lock()
		events = append(events, "sleep "+d.String())
		mu.Unlock()
		return nil
	}
	factory := func(cred credential.Credential) (Runnable, error) {
		return runFunc(func(context.Context) report.AccountResult {
			mu.Lock()
			events = append(events, fmt.Sprintf("run %d", cred.Index))
			mu.Unlock()
			return report.AccountResult{Success: true}
		}), nil
	}

	opts := Options{Delay: workflow.Range{Min: 3 * time.Second}, Sleep: sleep}
	New(opts).Run(context.Background(), creds(3), factory)

	want := "run 1,sleep 3s,run 2,sleep 3s,run 3"
	if got := strings.Join(events, ","); got != want {
		t.Fatalf("events = %q, want %q", got, want)
	}
}

func TestConcurrentSkipsDelay(t *testing.T) {
	var sleeps atomic.Int32
	sleep := func(context.Context, time.Duration) error {
		sleeps.Add(1)
		return nil
	}
	opts := Options{Mode: Concurrent, Delay: workflow.Range{Min: time.Second}, Sleep: sleep}
	New(opts).Run(context.Background(), creds(4), succeedAll)
	if sleeps.Load() != 0 {
		t.Fatalf("concurrent mode must not sleep between accounts")
	}
}

func TestCanceledContextStillYieldsResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	factory := func(cred credential.Credential) (Runnable, error) {
		return runFunc(func(ctx context.Context) report.AccountResult {
			return report.AccountResult{Success: ctx.Err() == nil}
		}), nil
	}
	results, fleet := New(Options{Mode: Concurrent, Workers: 1}).Run(ctx, creds(4), factory)
	if len(results) != 4 || fleet.Succeeded != 0 {
		t.Fatalf("expected 4 failing results, got %+v", fleet)
	}
}

func TestEmptyFleet(t *testing.T) {
	results, fleet := New(Options{Mode: Concurrent}).Run(context.Background(), nil, succeedAll)
	if len(results) != 0 || fleet.Total != 0 || fleet.Success {
		t.Fatalf("unexpected empty fleet %+v", fleet)
	}
}

func TestNewClampsWorkers(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultWorkers},
		{-4, DefaultWorkers},
		{1, 1},
		{64, 64},
		{65, DefaultWorkers},
	}
	for _, tt := range tests {
		if got := New(Options{Workers: tt.in}).Workers(); got != tt.want {
			t.Fatalf("Workers(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"":           Sequential,
		"1":          Sequential,
		"Sequential": Sequential,
		"2":          Concurrent,
		"parallel":   Concurrent,
	}
	for in, want := range tests {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMode("3"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
