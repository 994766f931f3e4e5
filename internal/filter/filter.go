// Package filter selects accounts for a run. A pattern is a substring, a
// /regex/ or an ordinal like #2; operators only ever see masked identifiers,
// so the ordinal printed in every label is a stable way to pick one account.
package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bgricker/checkin/internal/credential"
)

// Pattern is one compiled --only or --skip value.
type Pattern struct {
	source  string
	ordinal int
	re      *regexp.Regexp
	needle  string
}

// Compile parses patterns, dropping blank ones.
func Compile(patterns []string) ([]Pattern, error) {
	var out []Pattern
	for _, source := range patterns {
		source = strings.TrimSpace(source)
		if source == "" {
			continue
		}
		p, err := compileOne(source)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func compileOne(source string) (Pattern, error) {
	p := Pattern{source: source}
	switch {
	case strings.HasPrefix(source, "#"):
		n, err := strconv.Atoi(source[1:])
		if err != nil || n < 1 {
			return p, fmt.Errorf("ordinal %q must be #1 or higher", source)
		}
		p.ordinal = n
	case len(source) >= 2 && source[0] == '/' && source[len(source)-1] == '/':
		re, err := regexp.Compile(source[1 : len(source)-1])
		if err != nil {
			return p, fmt.Errorf("pattern %s: %w", source, err)
		}
		p.re = re
	default:
		p.needle = strings.ToLower(source)
	}
	return p, nil
}

// Match reports whether the account is selected by p. Substrings and regexes
// are tested against the raw identifier, case-insensitively for substrings.
func (p Pattern) Match(c credential.Credential) bool {
	switch {
	case p.ordinal > 0:
		return c.Index == p.ordinal
	case c.Identifier == "":
		return false
	case p.re != nil:
		return p.re.MatchString(c.Identifier)
	default:
		return strings.Contains(strings.ToLower(c.Identifier), p.needle)
	}
}

func (p Pattern) String() string {
	return p.source
}

// Accounts keeps credentials matched by any only pattern (all when there are
// none) and by no skip pattern. Ordinals are those of the source.
func Accounts(creds []credential.Credential, only, skip []Pattern) []credential.Credential {
	if len(creds) == 0 {
		return nil
	}
	kept := make([]credential.Credential, 0, len(creds))
	for _, c := range creds {
		if len(only) > 0 && !anyMatch(only, c) {
			continue
		}
		if anyMatch(skip, c) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func anyMatch(patterns []Pattern, c credential.Credential) bool {
	for _, p := range patterns {
		if p.Match(c) {
			return true
		}
	}
	return false
}
