// Package ikuuu implements the cookie-session flavor: form login, a daily
// check-in call authorized by the login cookies, and a traffic quota read
// from the user page.
package ikuuu

import (
	"context"
	"net/http"
	"strings"

	"github.com/bgricker/checkin/internal/credential"
	"github.com/bgricker/checkin/internal/remote"
	"github.com/bgricker/checkin/internal/workflow"
)

// Name identifies the flavor in configuration.
const Name = "ikuuu"

// DefaultHost is used when no host is configured.
const DefaultHost = "ikuuu.one"

const (
	loginPath   = "/auth/login"
	checkinPath = "/user/checkin"
	userPath    = "/user"
)

// Options configure the service.
type Options struct {
	// Host is sent in the login form and names the site.
	Host string
	// BaseURL overrides https://<Host>.
	BaseURL string
	Client  remote.Options
}

// Service is the ikuuu flavor.
type Service struct {
	host    string
	baseURL string
	client  remote.Options
}

// New creates the service.
func New(opts Options) *Service {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = DefaultHost
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://" + host
	}
	client := opts.Client
	client.BaseURL = base
	return &Service{host: host, baseURL: base, client: client}
}

func (s *Service) Name() string { return Name }

func (s *Service) Capabilities() workflow.Capabilities {
	return workflow.Capabilities{Status: true}
}

func (s *Service) Open(cred credential.Credential) workflow.Session {
	return &session{
		svc:    s,
		cred:   cred,
		client: remote.New(s.client),
	}
}

// session holds one account's cookies between steps.
type session struct {
	svc     *Service
	cred    credential.Credential
	client  *remote.Client
	cookies []*http.Cookie
}

type answer struct {
	Ret remote.Flag `json:"ret"`
	Msg string      `json:"msg"`
}

func (s *session) Authenticate(ctx context.Context) workflow.Outcome {
	const step = "login"
	req := s.client.Request(ctx).SetFormData(map[string]string{
		"host":        s.svc.host,
		"email":       s.cred.Identifier,
		"passwd":      s.cred.Secret,
		"code":        "",
		"remember_me": "off",
	})
	resp, err := remote.Do(step, req, http.MethodPost, loginPath)
	if err != nil {
		return workflow.Failed(err)
	}

	var ans answer
	if err := remote.DecodeJSON(step, resp, &ans); err != nil {
		return workflow.Failed(err)
	}
	out := workflow.ClassifyAuth(step, ans.Ret == 1, ans.Msg)
	if out.OK() {
		s.cookies = resp.Cookies()
	}
	return out
}

func (s *session) PerformAction(ctx context.Context, _ *workflow.Ticket) workflow.Outcome {
	const step = "checkin"
	req := s.client.Request(ctx).
		SetCookies(s.cookies).
		SetHeader("Referer", s.svc.baseURL+checkinPath).
		SetHeader("Origin", s.svc.baseURL)
	resp, err := remote.Do(step, req, http.MethodPost, checkinPath)
	if err != nil {
		return workflow.Failed(err)
	}

	var ans answer
	if err := remote.DecodeJSON(step, resp, &ans); err != nil {
		return workflow.Outcome{Verdict: workflow.Ambiguous, Message: err.Error(), Err: err}
	}
	return workflow.ClassifyAction(step, ans.Ret == 1, ans.Msg)
}

func (s *session) QueryStatus(ctx context.Context) workflow.Outcome {
	const step = "status"
	req := s.client.Request(ctx).SetCookies(s.cookies)
	resp, err := remote.Do(step, req, http.MethodGet, userPath)
	if err != nil {
		return workflow.Failed(err)
	}
	quota, err := ParseQuota(resp.String())
	if err != nil {
		return workflow.Failed(err)
	}
	return workflow.Succeeded("quota read", quota.Lines()...)
}

func (s *session) Close() {
	s.cookies = nil
}
