// Package rainyun implements the token-session flavor: JSON login that
// issues a CSRF cookie, a reward task guarded by a challenge ticket, and a
// points balance read from the user endpoint.
package rainyun

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/bgricker/checkin/internal/credential"
	checkinerrors "github.com/bgricker/checkin/internal/errors"
	"github.com/bgricker/checkin/internal/remote"
	"github.com/bgricker/checkin/internal/workflow"
)

// Name identifies the flavor in configuration.
const Name = "rainyun"

// DefaultBaseURL is the API root.
const DefaultBaseURL = "https://api.v2.rainyun.com"

// TaskName is the reward task claimed every day.
const TaskName = "每日签到"

const (
	csrfCookie = "X-CSRF-Token"
	csrfHeader = "x-csrf-token"

	loginPath  = "/user/login"
	rewardPath = "/user/reward/tasks"
	userPath   = "/user/"
)

// Options configure the service.
type Options struct {
	BaseURL string
	Client  remote.Options
}

// Service is the rainyun flavor.
type Service struct {
	client remote.Options
}

// New creates the service.
func New(opts Options) *Service {
	client := opts.Client
	client.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if client.BaseURL == "" {
		client.BaseURL = DefaultBaseURL
	}
	if client.Headers == nil {
		client.Headers = map[string]string{}
	}
	client.Headers["Content-Type"] = "application/json"
	return &Service{client: client}
}

func (s *Service) Name() string { return Name }

func (s *Service) Capabilities() workflow.Capabilities {
	return workflow.Capabilities{Challenge: true, Status: true}
}

func (s *Service) Open(cred credential.Credential) workflow.Session {
	return &session{cred: cred, client: remote.New(s.client)}
}

type session struct {
	cred    credential.Credential
	client  *remote.Client
	csrf    string
	cookies []*http.Cookie
}

type answer struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type profile struct {
	Name          string      `json:"Name"`
	Email         string      `json:"Email"`
	Points        json.Number `json:"Points"`
	LastIP        string      `json:"LastIP"`
	LastLoginArea string      `json:"LastLoginArea"`
}

func (s *session) Authenticate(ctx context.Context) workflow.Outcome {
	const step = "login"
	req := s.client.Request(ctx).SetBody(map[string]string{
		"field":    s.cred.Identifier,
		"password": s.cred.Secret,
	})
	resp, err := remote.Do(step, req, http.MethodPost, loginPath)
	if err != nil {
		return workflow.Failed(err)
	}

	var ans answer
	decodeErr := remote.DecodeJSON(step, resp, &ans)
	if resp.IsError() {
		msg := ans.Message
		if decodeErr != nil || msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode())
		}
		return workflow.Failed(checkinerrors.Rejection(step, msg))
	}
	if decodeErr == nil && ans.Code != 0 && ans.Code != http.StatusOK {
		return workflow.ClassifyAuth(step, false, ans.Message)
	}

	cookie, ok := remote.Cookie(resp, csrfCookie)
	if !ok || cookie.Value == "" {
		return workflow.Failed(checkinerrors.Parse(step, "login answer carries no "+csrfCookie+" cookie", nil))
	}
	s.csrf = cookie.Value
	s.cookies = resp.Cookies()
	return workflow.ClassifyAuth(step, true, ans.Message)
}

func (s *session) PerformAction(ctx context.Context, ticket *workflow.Ticket) workflow.Outcome {
	const step = "checkin"
	if ticket == nil {
		return workflow.Failed(checkinerrors.ChallengeUnavailable(0, fmt.Errorf("no ticket")))
	}
	req := s.authorized(ctx).SetBody(map[string]string{
		"task_name":  TaskName,
		"verifyCode": "",
		"vticket":    ticket.Value,
		"vrandstr":   ticket.Nonce,
	})
	resp, err := remote.Do(step, req, http.MethodPost, rewardPath)
	if err != nil {
		return workflow.Failed(err)
	}

	var ans answer
	if err := remote.DecodeJSON(step, resp, &ans); err != nil {
		return workflow.Outcome{Verdict: workflow.Ambiguous, Message: err.Error(), Err: err}
	}
	msg := ans.Message
	if msg == "" && ans.Code != http.StatusOK {
		msg = fmt.Sprintf("code %d", ans.Code)
	}
	return workflow.ClassifyAction(step, ans.Code == http.StatusOK, msg)
}

func (s *session) QueryStatus(ctx context.Context) workflow.Outcome {
	const step = "status"
	req := s.authorized(ctx).SetQueryParam("no_cache", "false")
	resp, err := remote.Do(step, req, http.MethodGet, userPath)
	if err != nil {
		return workflow.Failed(err)
	}

	var ans answer
	if err := remote.DecodeJSON(step, resp, &ans); err != nil {
		return workflow.Failed(err)
	}
	if len(ans.Data) == 0 || string(ans.Data) == "null" {
		return workflow.Failed(checkinerrors.Parse(step, "user answer has no data", nil))
	}
	var p profile
	if err := json.Unmarshal(ans.Data, &p); err != nil {
		return workflow.Failed(checkinerrors.Parse(step, "unreadable user data", err))
	}
	return workflow.Succeeded("profile read", p.Lines()...)
}

func (s *session) Close() {
	s.csrf = ""
	s.cookies = nil
}

func (s *session) authorized(ctx context.Context) *resty.Request {
	return s.client.Request(ctx).
		SetCookies(s.cookies).
		SetHeader(csrfHeader, s.csrf)
}

// Lines renders the profile as report lines.
func (p profile) Lines() []string {
	var lines []string
	if p.Points != "" {
		lines = append(lines, "points: "+p.Points.String())
	}
	if p.LastLoginArea != "" || p.LastIP != "" {
		lines = append(lines, strings.TrimSpace(fmt.Sprintf("last login: %s (%s)", p.LastLoginArea, p.LastIP)))
	}
	return lines
}
