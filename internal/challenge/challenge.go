// Package challenge talks to the external slide-verify solver. One Solve call
// is one request; the workflow owns the retry budget.
package challenge

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	checkinerrors "github.com/bgricker/checkin/internal/errors"
	"github.com/bgricker/checkin/internal/remote"
	"github.com/bgricker/checkin/internal/workflow"
)

// Defaults for the public solver.
const (
	DefaultURL   = "https://txdx.vvvcx.me/solve_captcha"
	DefaultAppID = "2039519451"
)

const step = "challenge"

// Client requests tickets from a solver service.
type Client struct {
	URL   string
	AppID string
	// Type is the solver's challenge type parameter.
	Type int

	http *remote.Client
}

// New creates a solver client.
func New(url, appID string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	if appID == "" {
		appID = DefaultAppID
	}
	return &Client{
		URL:   url,
		AppID: appID,
		Type:  1,
		http:  remote.New(remote.Options{Timeout: timeout}),
	}
}

type answer struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Ticket  string `json:"ticket"`
		Randstr string `json:"randstr"`
	} `json:"data"`
}

// Solve requests one ticket.
func (c *Client) Solve(ctx context.Context) (workflow.Ticket, error) {
	req := c.http.Request(ctx).SetQueryParams(map[string]string{
		"aid":  c.AppID,
		"type": strconv.Itoa(c.Type),
	})
	resp, err := remote.Do(step, req, http.MethodGet, c.URL)
	if err != nil {
		return workflow.Ticket{}, err
	}
	if resp.IsError() {
		return workflow.Ticket{}, checkinerrors.Transport(step, fmt.Errorf("HTTP %d", resp.StatusCode()))
	}

	var ans answer
	if err := remote.DecodeJSON(step, resp, &ans); err != nil {
		return workflow.Ticket{}, err
	}
	if ans.Code != http.StatusOK || ans.Message != "Success" {
		return workflow.Ticket{}, checkinerrors.Rejection(step, fmt.Sprintf("solver answered code %d: %s", ans.Code, ans.Message))
	}
	if ans.Data.Ticket == "" || ans.Data.Randstr == "" {
		return workflow.Ticket{}, checkinerrors.Parse(step, "solver answer has no ticket", nil)
	}
	return workflow.Ticket{Value: ans.Data.Ticket, Nonce: ans.Data.Randstr}, nil
}
