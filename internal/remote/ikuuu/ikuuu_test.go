package ikuuu

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bgricker/checkin/internal/credential"
	"github.com/bgricker/checkin/internal/fleet"
	"github.com/bgricker/checkin/internal/remote"
	"github.com/bgricker/checkin/internal/workflow"
)

const userPage = `<div class="card"><h4>剩余流量</h4><span class="counter">12.5</span> GB</div>
<div class="card"><h4>今日已用</h4><span>300</span> MB</div>`

type fakeSite struct {
	checkinMsg string
	checkinRet int
	checkins   atomic.Int32
}

func (f *fakeSite) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("host") != "ikuuu.test" || r.Form.Get("remember_me") != "off" {
			t.Errorf("unexpected login form %v", r.Form)
		}
		if r.Form.Get("passwd") != "secret1" {
			writeJSON(w, map[string]any{"ret": 0, "msg": "bad password"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "key", Value: "k-" + r.Form.Get("email")})
		writeJSON(w, map[string]any{"ret": 1, "msg": "登录成功"})
	})
	mux.HandleFunc("/user/checkin", func(w http.ResponseWriter, r *http.Request) {
		f.checkins.Add(1)
		if c, err := r.Cookie("key"); err != nil || !strings.HasPrefix(c.Value, "k-") {
			writeJSON(w, map[string]any{"ret": 0, "msg": "not logged in"})
			return
		}
		if !strings.HasSuffix(r.Header.Get("Referer"), "/user/checkin") || r.Header.Get("Origin") == "" {
			t.Errorf("missing referer/origin headers: %v", r.Header)
		}
		writeJSON(w, map[string]any{"ret": f.checkinRet, "msg": f.checkinMsg})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("key"); err != nil {
			http.Error(w, "login required", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte(userPage))
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newService(url string) *Service {
	return New(Options{Host: "ikuuu.test", BaseURL: url, Client: remote.Options{Timeout: 5 * time.Second}})
}

func TestFleetScenarioOneBadPassword(t *testing.T) {
	for _, mode := range []fleet.Mode{fleet.Sequential, fleet.Concurrent} {
		t.Run(string(mode), func(t *testing.T) {
			site := &fakeSite{checkinRet: 1, checkinMsg: "你获得了 512MB 流量"}
			srv := httptest.NewServer(site.handler(t))
			defer srv.Close()

			creds, warnings := credential.Parse("a@x.com:secret1,b@x.com:secret2", credential.Format{Delimiter: ":", Separator: ","})
			if len(warnings) != 0 || len(creds) != 2 {
				t.Fatalf("unexpected parse: %v %v", creds, warnings)
			}

			svc := newService(srv.URL)
			factory := func(cred credential.Credential) (fleet.Runnable, error) {
				return workflow.New(svc, nil, cred, workflow.Options{}), nil
			}
			results, summary := fleet.New(fleet.Options{Service: Name, Mode: mode, Workers: 2}).Run(context.Background(), creds, factory)

			if summary.Total != 2 || summary.Succeeded != 1 || summary.Failed != 1 || summary.Success {
				t.Fatalf("unexpected fleet result %+v", summary)
			}
			if len(results) != 2 || results[0].Index != 1 || results[1].Index != 2 {
				t.Fatalf("results out of order: %+v", results)
			}
			if !results[0].Success || results[0].Account != "a***@x.com" {
				t.Fatalf("first account: %+v", results[0])
			}
			if results[1].Success || !strings.Contains(results[1].Message, "bad password") {
				t.Fatalf("second account: %+v", results[1])
			}
			if site.checkins.Load() != 1 {
				t.Fatalf("check-in must only be attempted for the logged-in account, got %d calls", site.checkins.Load())
			}
		})
	}
}

func TestCheckinWithStatus(t *testing.T) {
	site := &fakeSite{checkinRet: 1, checkinMsg: "你获得了 512MB 流量"}
	srv := httptest.NewServer(site.handler(t))
	defer srv.Close()

	cred := credential.Credential{Index: 1, Identifier: "a@x.com", Secret: "secret1"}
	res := workflow.New(newService(srv.URL), nil, cred, workflow.Options{}).Run(context.Background())

	if !res.Success || res.Message != "你获得了 512MB 流量" {
		t.Fatalf("unexpected result %+v", res)
	}
	want := []string{"remaining: 12.5 GB", "used today: 300 MB"}
	if strings.Join(res.Lines, "|") != strings.Join(want, "|") {
		t.Fatalf("lines = %v, want %v", res.Lines, want)
	}
}

func TestAlreadyCheckedIn(t *testing.T) {
	site := &fakeSite{checkinRet: 0, checkinMsg: "已签到"}
	srv := httptest.NewServer(site.handler(t))
	defer srv.Close()

	cred := credential.Credential{Index: 1, Identifier: "a@x.com", Secret: "secret1"}
	res := workflow.New(newService(srv.URL), nil, cred, workflow.Options{}).Run(context.Background())
	if !res.Success || res.Message != "已签到" {
		t.Fatalf("expected idempotent success, got %+v", res)
	}
}

func TestNonJSONCheckinFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"ret": 1, "msg": "ok"})
	})
	mux.HandleFunc("/user/checkin", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cred := credential.Credential{Index: 1, Identifier: "a@x.com", Secret: "secret1"}
	res := workflow.New(newService(srv.URL), nil, cred, workflow.Options{}).Run(context.Background())
	if res.Success || !strings.Contains(res.Message, "not JSON") {
		t.Fatalf("expected parse failure, got %+v", res)
	}
}

func TestServerErrorIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	cred := credential.Credential{Index: 1, Identifier: "a@x.com", Secret: "secret1"}
	res := workflow.New(newService(srv.URL), nil, cred, workflow.Options{}).Run(context.Background())
	if res.Success || !strings.Contains(res.Message, "HTTP 502") {
		t.Fatalf("expected transport failure, got %+v", res)
	}
}

func TestParseQuota(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(userPage))
	tests := []struct {
		name    string
		page    string
		want    []string
		wantErr string
	}{
		{name: "plain", page: userPage, want: []string{"remaining: 12.5 GB", "used today: 300 MB"}},
		{name: "origin body", page: `<script>var originBody = "` + encoded + `";</script>`, want: []string{"remaining: 12.5 GB", "used today: 300 MB"}},
		{name: "remaining only", page: "剩余流量：3 TB", want: []string{"remaining: 3 TB"}},
		{name: "missing", page: "<p>hello</p>", wantErr: "remaining traffic not found"},
		{name: "bad base64", page: `originBody = "@@@"`, wantErr: "remaining traffic not found"},
		{name: "corrupt base64", page: `originBody = "abc"`, wantErr: "not valid base64"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseQuota(tt.page)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseQuota: %v", err)
			}
			if got := strings.Join(q.Lines(), "|"); got != strings.Join(tt.want, "|") {
				t.Fatalf("lines = %q", got)
			}
		})
	}
}
