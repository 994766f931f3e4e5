package credential

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Credential is one account identity and its secret. Values are immutable
// once parsed.
type Credential struct {
	Index      int
	Identifier string
	Secret     string
}

// Masked returns the redacted identifier used on every output surface.
func (c Credential) Masked() string {
	return Mask(c.Identifier)
}

// Label is the "[02] abc***@x.com" form used as a log and console prefix.
func (c Credential) Label() string {
	return fmt.Sprintf("[%02d] %s", c.Index, c.Masked())
}

// String never exposes the identifier or the secret.
func (c Credential) String() string {
	return c.Label()
}

// Redact replaces every occurrence of the raw identifier with its masked form
// and of the secret with asterisks. Remote services sometimes quote the
// account back in their messages.
func (c Credential) Redact(s string) string {
	if id := strings.TrimSpace(c.Identifier); id != "" {
		s = strings.ReplaceAll(s, id, c.Masked())
	}
	if secret := strings.TrimSpace(c.Secret); secret != "" {
		s = strings.ReplaceAll(s, secret, "****")
	}
	return s
}

// Mask redacts an identifier, keeping a short prefix. For email addresses the
// domain is kept so operators can tell providers apart.
func Mask(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "***"
	}
	if at := strings.LastIndex(identifier, "@"); at > 0 {
		return maskPrefix(identifier[:at]) + "***" + identifier[at:]
	}
	return maskPrefix(identifier) + "****"
}

// maskPrefix keeps at most three runes and never more than half of s.
func maskPrefix(s string) string {
	n := utf8.RuneCountInString(s) / 2
	if n > 3 {
		n = 3
	}
	if n < 1 {
		n = 1
	}
	runes := []rune(s)
	return string(runes[:n])
}
