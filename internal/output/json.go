package output

import (
	"encoding/json"
	"io"

	"github.com/bgricker/checkin/internal/report"
)

// JSONRenderer emits structured run data.
type JSONRenderer struct {
	out io.Writer
}

// NewJSON creates a JSON renderer writing to out.
func NewJSON(out io.Writer) *JSONRenderer {
	return &JSONRenderer{out: out}
}

// Report captures JSON output schema.
type Report struct {
	RunID    string                 `json:"run_id,omitempty"`
	Fleet    report.FleetResult     `json:"fleet"`
	Accounts []report.AccountResult `json:"accounts"`
	Warnings []string               `json:"warnings,omitempty"`
}

// Account is the JSON form of a listed account.
type Account struct {
	Index   int    `json:"index"`
	Account string `json:"account"`
}

// AccountList is the JSON form of the accounts listing and of a dry run.
type AccountList struct {
	Service  string    `json:"service"`
	DryRun   bool      `json:"dry_run,omitempty"`
	Accounts []Account `json:"accounts"`
	Warnings []string  `json:"warnings,omitempty"`
}

// Render encodes the report as JSON.
func (j *JSONRenderer) Render(r Report) error {
	if r.Accounts == nil {
		r.Accounts = []report.AccountResult{}
	}
	return j.encode(r)
}

// RenderAccounts encodes an account listing as JSON.
func (j *JSONRenderer) RenderAccounts(list AccountList) error {
	if list.Accounts == nil {
		list.Accounts = []Account{}
	}
	return j.encode(list)
}

func (j *JSONRenderer) encode(v any) error {
	enc := json.NewEncoder(j.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
