// Package credential parses account credentials from environment variables
// and files and provides the identifier masking used on every output surface.
package credential

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	checkinerrors "github.com/bgricker/checkin/internal/errors"
)

// Format describes how a raw credential source is encoded.
type Format struct {
	// Delimiter separates the identifier from the secret inside an entry.
	Delimiter string
	// Separator splits entries on one line. Entries are always split on newlines.
	Separator string
}

// Warning records a skipped entry. It never carries the entry text, which
// may contain a secret.
type Warning struct {
	Source  string `json:"source"`
	Entry   int    `json:"entry"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s entry %d: %s", w.Source, w.Entry, w.Message)
}

// Parse splits raw into credentials. Blank entries are ignored, malformed
// entries are skipped with a warning. Indices are assigned 1..N over the
// valid entries.
func Parse(raw string, f Format) ([]Credential, []Warning) {
	return parseFrom("input", raw, f, 0)
}

func parseFrom(source, raw string, f Format, offset int) ([]Credential, []Warning) {
	delim := f.Delimiter
	if delim == "" {
		delim = ":"
	}

	var creds []Credential
	var warnings []Warning
	entry := 0
	for _, line := range strings.Split(raw, "\n") {
		parts := []string{line}
		if f.Separator != "" {
			parts = strings.Split(line, f.Separator)
		}
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" || strings.HasPrefix(part, "#") {
				continue
			}
			entry++
			id, secret, ok := strings.Cut(part, delim)
			if !ok {
				warnings = append(warnings, Warning{Source: source, Entry: entry, Message: fmt.Sprintf("missing %q delimiter", delim)})
				continue
			}
			id = strings.TrimSpace(id)
			secret = strings.TrimSpace(secret)
			if id == "" || secret == "" {
				warnings = append(warnings, Warning{Source: source, Entry: entry, Message: "empty identifier or secret"})
				continue
			}
			creds = append(creds, Credential{Index: offset + len(creds) + 1, Identifier: id, Secret: secret})
		}
	}
	return creds, warnings
}

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// ReadFunc reads a credential file.
type ReadFunc func(path string) ([]byte, error)

// Source names where credentials come from. Env is tried first, then Files,
// then the single-account IdentifierEnv/SecretEnv pair.
type Source struct {
	Env           string
	Files         []string
	IdentifierEnv string
	SecretEnv     string
}

// Load reads credentials from src. Missing files are ignored. It returns a
// config error when no valid credential is found anywhere.
func Load(src Source, f Format, lookup LookupFunc, read ReadFunc) ([]Credential, []Warning, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if read == nil {
		read = os.ReadFile
	}

	var warnings []Warning

	if src.Env != "" {
		if raw, ok := lookup(src.Env); ok && strings.TrimSpace(raw) != "" {
			creds, warns := parseFrom(src.Env, raw, f, 0)
			warnings = append(warnings, warns...)
			if len(creds) > 0 {
				return creds, warnings, nil
			}
		}
	}

	var fromFiles []Credential
	for _, path := range src.Files {
		data, err := read(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, warnings, checkinerrors.Wrap(err, fmt.Sprintf("read credentials %q", path))
		}
		creds, warns := parseFrom(path, string(data), f, len(fromFiles))
		warnings = append(warnings, warns...)
		fromFiles = append(fromFiles, creds...)
	}
	if len(fromFiles) > 0 {
		return fromFiles, warnings, nil
	}

	if src.IdentifierEnv != "" && src.SecretEnv != "" {
		id, _ := lookup(src.IdentifierEnv)
		secret, _ := lookup(src.SecretEnv)
		id, secret = strings.TrimSpace(id), strings.TrimSpace(secret)
		if id != "" && secret != "" {
			return []Credential{{Index: 1, Identifier: id, Secret: secret}}, warnings, nil
		}
	}

	return nil, warnings, checkinerrors.Configf("no valid credentials found (%s)", describe(src))
}

func describe(src Source) string {
	var places []string
	if src.Env != "" {
		places = append(places, "$"+src.Env)
	}
	for _, path := range src.Files {
		places = append(places, path)
	}
	if src.IdentifierEnv != "" && src.SecretEnv != "" {
		places = append(places, "$"+src.IdentifierEnv+" + $"+src.SecretEnv)
	}
	if len(places) == 0 {
		return "no source configured"
	}
	return "checked " + strings.Join(places, ", ")
}
