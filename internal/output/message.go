package output

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bgricker/checkin/internal/report"
)

// Title is the default notification title for a service.
func Title(service string) string {
	if service == "" {
		return "Check-in"
	}
	return cases.Title(language.English).String(service)
}

// Message builds the notification for a finished fleet. Every account is
// listed with its glyph and masked identifier. A non-empty title overrides
// the default.
func Message(title string, results []report.AccountResult, fleet report.FleetResult) (string, string) {
	if strings.TrimSpace(title) == "" {
		title = Title(fleet.Service) + " check-in"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %d/%d succeeded\n\n", glyph(fleet.Success), fleet.Succeeded, fleet.Total)
	for _, r := range results {
		fmt.Fprintf(&b, "%s %s: %s\n", glyph(r.Success), label(r), r.Message)
		if len(r.Lines) > 0 {
			fmt.Fprintf(&b, "%s\n", indent(strings.Join(r.Lines, "\n"), "    "))
		}
	}
	return title, strings.TrimRight(b.String(), "\n")
}
