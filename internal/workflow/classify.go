package workflow

import (
	"strings"

	checkinerrors "github.com/bgricker/checkin/internal/errors"
)

// AlreadyDoneMarkers are the phrases remote services use to answer that the
// daily action was already performed today. Such answers are successes: the
// service's own daily idempotence is the source of truth. Matching is a
// case-insensitive substring test; new wording only needs a new entry here.
var AlreadyDoneMarkers = []string{
	"已签到",
	"已经签到",
	"签到过",
	"今日已领取",
	"already checked in",
	"already signed in",
	"already claimed",
}

// AlreadyDone reports whether msg says the daily action was already performed.
func AlreadyDone(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range AlreadyDoneMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

// ClassifyAuth maps a structured login answer onto an outcome.
func ClassifyAuth(step string, ok bool, msg string) Outcome {
	msg = strings.TrimSpace(msg)
	if ok {
		if msg == "" {
			msg = "logged in"
		}
		return Succeeded(msg)
	}
	if msg == "" {
		msg = "rejected without a message"
	}
	return Failed(checkinerrors.Rejection(step, msg))
}

// ClassifyAction maps a structured action answer onto an outcome, applying
// the already-done policy. The remote text is kept verbatim.
func ClassifyAction(step string, ok bool, msg string) Outcome {
	msg = strings.TrimSpace(msg)
	switch {
	case ok:
		if msg == "" {
			msg = "checked in"
		}
		return Succeeded(msg)
	case AlreadyDone(msg):
		return Succeeded(msg)
	case msg == "":
		return Unclear(step, "failure answer without a message")
	default:
		return Failed(checkinerrors.Rejection(step, msg))
	}
}
