package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/bgricker/checkin/internal/credential"
	"github.com/bgricker/checkin/internal/report"
)

var sampleResults = []report.AccountResult{
	{Index: 1, Account: "a***@x.com", Success: true, Message: "你获得了 512MB 流量", Lines: []string{"remaining: 12.5 GB"}, Duration: 1500 * time.Millisecond},
	{Index: 2, Account: "b***@x.com", Message: "login: bad password", Duration: 200 * time.Millisecond},
}

var sampleFleet = report.FleetResult{Service: "ikuuu", Mode: "sequential", Total: 2, Succeeded: 1, Failed: 1, Duration: 2 * time.Second}

func TestPrettyRenderFleet(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewPretty(buf).RenderFleet(sampleResults, sampleFleet); err != nil {
		t.Fatalf("render fleet: %v", err)
	}

	want := strings.Join([]string{
		"Ikuuu (sequential)",
		"  ✅ [01] a***@x.com 你获得了 512MB 流量 (1.5s)",
		"       remaining: 12.5 GB",
		"  ❌ [02] b***@x.com login: bad password (200ms)",
		"SUMMARY: 1 succeeded, 1 failed of 2 (2s)",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", got, want)
	}
}

func TestPrettyRenderAccounts(t *testing.T) {
	creds := []credential.Credential{
		{Index: 1, Identifier: "alice@example.com", Secret: "pw"},
		{Index: 3, Identifier: "13812345678", Secret: "pw"},
	}
	warnings := []credential.Warning{{Source: "yuyun.txt", Entry: 2, Message: `missing "#" delimiter`}}

	buf := &bytes.Buffer{}
	if err := NewPretty(buf).RenderAccounts(creds, warnings); err != nil {
		t.Fatalf("render accounts: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Accounts (2)", "• [01] al***@example.com", "• [03] 138****", `! yuyun.txt entry 2: missing "#" delimiter`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, "alice@") || strings.Contains(out, "13812345678") || strings.Contains(out, "pw") {
		t.Fatalf("raw account data leaked: %q", out)
	}
}

func TestPrettyRenderPlan(t *testing.T) {
	buf := &bytes.Buffer{}
	plan := Plan{Service: "rainyun", Mode: "concurrent", Workers: 3, Accounts: []credential.Credential{{Index: 1, Identifier: "13812345678"}}}
	if err := NewPretty(buf).RenderPlan(plan); err != nil {
		t.Fatalf("render plan: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Plan rainyun (concurrent, 3 workers)") || !strings.Contains(out, "DRY RUN: 1 account(s)") {
		t.Fatalf("unexpected plan %q", out)
	}
}

func TestMessage(t *testing.T) {
	title, body := Message("", sampleResults, sampleFleet)
	if title != "Ikuuu check-in" {
		t.Fatalf("unexpected title %q", title)
	}
	want := strings.Join([]string{
		"❌ 1/2 succeeded",
		"",
		"✅ [01] a***@x.com: 你获得了 512MB 流量",
		"    remaining: 12.5 GB",
		"❌ [02] b***@x.com: login: bad password",
	}, "\n")
	if body != want {
		t.Fatalf("unexpected body:\n%s\nwant:\n%s", body, want)
	}

	if title, _ := Message("Daily run", nil, report.FleetResult{}); title != "Daily run" {
		t.Fatalf("configured title ignored: %q", title)
	}
}

func TestTitle(t *testing.T) {
	if got := Title("rainyun"); got != "Rainyun" {
		t.Fatalf("Title = %q", got)
	}
	if got := Title(""); got != "Check-in" {
		t.Fatalf("Title empty = %q", got)
	}
}
