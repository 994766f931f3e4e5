package filter

import (
	"testing"

	"github.com/bgricker/checkin/internal/credential"
)

func sampleAccounts() []credential.Credential {
	return []credential.Credential{
		{Index: 1, Identifier: "alice@gmail.com", Secret: "a"},
		{Index: 2, Identifier: "bob@outlook.com", Secret: "b"},
		{Index: 3, Identifier: "carol@gmail.com", Secret: "c"},
	}
}

func TestAccountsOnlySubstring(t *testing.T) {
	only, err := Compile([]string{"GMAIL"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	got := Accounts(sampleAccounts(), only, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(got))
	}
	if got[0].Index != 1 || got[1].Index != 3 {
		t.Fatalf("expected original ordinals to survive, got %+v", got)
	}
}

func TestAccountsSkipRegex(t *testing.T) {
	skip, err := Compile([]string{"/^(alice|bob)@/"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	got := Accounts(sampleAccounts(), nil, skip)
	if len(got) != 1 || got[0].Identifier != "carol@gmail.com" {
		t.Fatalf("expected only carol, got %+v", got)
	}
}

func TestAccountsNoPatterns(t *testing.T) {
	got := Accounts(sampleAccounts(), nil, nil)
	if len(got) != 3 {
		t.Fatalf("expected all accounts, got %d", len(got))
	}
	if Accounts(nil, nil, nil) != nil {
		t.Fatalf("expected nil for empty input")
	}
}

func TestCompileInvalidRegex(t *testing.T) {
	if _, err := Compile([]string{"/(/"}); err == nil {
		t.Fatalf("expected error for invalid regexp")
	}
}

func TestCompileSkipsBlank(t *testing.T) {
	patterns, err := Compile([]string{"", "  ", "x"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(patterns) != 1 || patterns[0].String() != "x" {
		t.Fatalf("unexpected patterns: %+v", patterns)
	}
}

func TestAccountsByOrdinal(t *testing.T) {
	only, err := Compile([]string{"#3", "#1"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	skip, err := Compile([]string{"#1"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	got := Accounts(sampleAccounts(), only, skip)
	if len(got) != 1 || got[0].Index != 3 {
		t.Fatalf("expected only the third account, got %+v", got)
	}
}

func TestCompileInvalidOrdinal(t *testing.T) {
	for _, raw := range []string{"#", "#0", "#x"} {
		if _, err := Compile([]string{raw}); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
