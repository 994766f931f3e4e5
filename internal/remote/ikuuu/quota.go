package ikuuu

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	checkinerrors "github.com/bgricker/checkin/internal/errors"
)

var (
	originBodyRe = regexp.MustCompile(`originBody\s*=\s*["']([A-Za-z0-9+/=\s]+)["']`)
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	remainingRe  = regexp.MustCompile(`剩余流量\s*[:：]?\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGTP]?B)`)
	usedTodayRe  = regexp.MustCompile(`今日已用\s*[:：]?\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGTP]?B)`)
)

// Amount is a traffic amount as the site prints it.
type Amount struct {
	Value float64
	Unit  string
}

func (a Amount) String() string {
	return strconv.FormatFloat(a.Value, 'f', -1, 64) + " " + a.Unit
}

// Quota is the traffic snapshot read from the user page.
type Quota struct {
	Remaining Amount
	UsedToday *Amount
}

// Lines renders the snapshot as report lines.
func (q Quota) Lines() []string {
	lines := []string{"remaining: " + q.Remaining.String()}
	if q.UsedToday != nil {
		lines = append(lines, "used today: "+q.UsedToday.String())
	}
	return lines
}

// ParseQuota extracts the quota from the user page. Some deployments ship the
// page base64-encoded in an originBody variable; that blob is decoded first.
func ParseQuota(page string) (Quota, error) {
	const step = "status"

	if m := originBodyRe.FindStringSubmatch(page); m != nil {
		raw := strings.Join(strings.Fields(m[1]), "")
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return Quota{}, checkinerrors.Parse(step, "originBody is not valid base64", err)
		}
		page = string(decoded)
	}

	text := strings.Join(strings.Fields(tagRe.ReplaceAllString(page, " ")), " ")

	remaining, ok, err := findAmount(remainingRe, text)
	if err != nil {
		return Quota{}, checkinerrors.Parse(step, "unreadable remaining traffic", err)
	}
	if !ok {
		return Quota{}, checkinerrors.Parse(step, "remaining traffic not found on the user page", nil)
	}

	q := Quota{Remaining: remaining}
	if used, ok, err := findAmount(usedTodayRe, text); err == nil && ok {
		q.UsedToday = &used
	}
	return q, nil
}

func findAmount(re *regexp.Regexp, text string) (Amount, bool, error) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return Amount{}, false, nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Amount{}, false, fmt.Errorf("parse %q: %w", m[1], err)
	}
	return Amount{Value: v, Unit: m[2]}, true, nil
}
