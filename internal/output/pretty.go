package output

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bgricker/checkin/internal/credential"
	"github.com/bgricker/checkin/internal/report"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	headStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
)

// PrettyRenderer renders fleet results in a human-friendly format.
type PrettyRenderer struct {
	out   io.Writer
	color bool
}

// Plan is what a dry run would execute.
type Plan struct {
	Service  string
	Mode     string
	Workers  int
	Accounts []credential.Credential
}

// NewPretty creates a PrettyRenderer writing to the provided writer.
func NewPretty(out io.Writer) *PrettyRenderer {
	return &PrettyRenderer{out: out}
}

// WithColor enables styled glyphs and headers.
func (p *PrettyRenderer) WithColor(on bool) *PrettyRenderer {
	p.color = on
	return p
}

// RenderAccounts lists parsed accounts, masked, followed by parse warnings.
func (p *PrettyRenderer) RenderAccounts(creds []credential.Credential, warnings []credential.Warning) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n", p.style(headStyle, fmt.Sprintf("Accounts (%d)", len(creds))))
	for _, c := range creds {
		fmt.Fprintf(&buf, "  • %s\n", c.Label())
	}
	if len(warnings) > 0 {
		fmt.Fprintf(&buf, "%s\n", p.style(headStyle, "Warnings"))
		for _, w := range warnings {
			fmt.Fprintf(&buf, "  ! %s\n", w)
		}
	}
	_, err := buf.WriteTo(p.out)
	return err
}

// RenderPlan shows the accounts a run would process without contacting any service.
func (p *PrettyRenderer) RenderPlan(plan Plan) error {
	var buf bytes.Buffer
	mode := plan.Mode
	if plan.Mode == "concurrent" {
		mode = fmt.Sprintf("%s, %d workers", plan.Mode, plan.Workers)
	}
	fmt.Fprintf(&buf, "%s\n", p.style(headStyle, fmt.Sprintf("Plan %s (%s)", plan.Service, mode)))
	for _, c := range plan.Accounts {
		fmt.Fprintf(&buf, "  - %s\n", c.Label())
	}
	fmt.Fprintf(&buf, "DRY RUN: %d account(s), no requests sent\n", len(plan.Accounts))
	_, err := buf.WriteTo(p.out)
	return err
}

// RenderFleet shows one line per account with its glyph, then a summary line.
func (p *PrettyRenderer) RenderFleet(results []report.AccountResult, fleet report.FleetResult) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n", p.style(headStyle, fmt.Sprintf("%s (%s)", Title(fleet.Service), fleet.Mode)))
	for _, r := range results {
		glyph := p.glyph(r.Success)
		fmt.Fprintf(&buf, "  %s %s %s %s\n", glyph, label(r), r.Message, p.style(dimStyle, "("+formatDuration(r.Duration)+")"))
		for _, line := range r.Lines {
			fmt.Fprintf(&buf, "       %s\n", line)
		}
	}
	fmt.Fprintf(&buf, "SUMMARY: %d succeeded, %d failed of %d (%s)\n", fleet.Succeeded, fleet.Failed, fleet.Total, formatDuration(fleet.Duration))
	_, err := buf.WriteTo(p.out)
	return err
}

func (p *PrettyRenderer) glyph(success bool) string {
	if success {
		return p.style(okStyle, glyphOK)
	}
	return p.style(failStyle, glyphFail)
}

func (p *PrettyRenderer) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

const (
	glyphOK   = "✅"
	glyphFail = "❌"
)

func glyph(success bool) string {
	if success {
		return glyphOK
	}
	return glyphFail
}

func label(r report.AccountResult) string {
	return fmt.Sprintf("[%02d] %s", r.Index, r.Account)
}

func indent(s, pad string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = pad + lines[i]
	}
	return strings.Join(lines, "\n")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Truncate(time.Millisecond).String()
}
