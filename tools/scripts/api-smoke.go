// Package main provides a CI-friendly smoke test for the Quill HTTP API.
//
// It validates:
//   - /healthz liveness
//   - invite exchange (POST /session) and the session cookie
//   - authenticated session introspection (GET /session)
//   - history read on a fresh conversation
//   - session revocation (DELETE /session)
//
// Run it against a server started with QUILL_DEV_INVITE_CODE set:
//
//	go run ./tools/scripts -base http://127.0.0.1:8080 -invite <code>
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxReadBytes = 1 << 20 // 1MiB

type sessionEnvelope struct {
	OK      bool `json:"ok"`
	Session struct {
		Authenticated bool       `json:"authenticated"`
		ExpiresAt     *time.Time `json:"expiresAt"`
		InviteLabel   string     `json:"inviteLabel"`
	} `json:"session"`
}

type historyEnvelope struct {
	OK       bool   `json:"ok"`
	ChatID   string `json:"chatId"`
	Shared   bool   `json:"shared"`
	Messages []any  `json:"messages"`
}

func main() {
	base := flag.String("base", "http://127.0.0.1:8080", "server base URL")
	invite := flag.String("invite", "", "invite code to exchange (required)")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	flag.Parse()

	if strings.TrimSpace(*invite) == "" {
		fmt.Fprintln(os.Stderr, "smoke: -invite is required")
		os.Exit(2)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		fail("cookie jar: %v", err)
	}
	client := &http.Client{Jar: jar, Timeout: *timeout}

	step("healthz")
	mustStatus(client, http.MethodGet, *base+"/healthz", nil, http.StatusOK)

	step("session create")
	body, _ := json.Marshal(map[string]string{"inviteCode": *invite})
	resp := mustStatus(client, http.MethodPost, *base+"/session", body, http.StatusOK)
	var created sessionEnvelope
	mustDecode(resp, &created)
	if !created.OK || !created.Session.Authenticated {
		fail("session create: not authenticated: %+v", created)
	}
	if created.Session.ExpiresAt == nil || !created.Session.ExpiresAt.After(time.Now()) {
		fail("session create: bad expiry %v", created.Session.ExpiresAt)
	}

	step("session introspect")
	resp = mustStatus(client, http.MethodGet, *base+"/session", nil, http.StatusOK)
	var state sessionEnvelope
	mustDecode(resp, &state)
	if !state.Session.Authenticated {
		fail("session introspect: cookie not honored")
	}

	step("history read")
	chatID := uuid.NewString()
	resp = mustStatus(client, http.MethodGet, *base+"/history?chatId="+chatID, nil, http.StatusOK)
	var hist historyEnvelope
	mustDecode(resp, &hist)
	if hist.Shared || len(hist.Messages) != 0 {
		fail("history: fresh conversation not empty: %+v", hist)
	}

	step("session revoke")
	mustStatus(client, http.MethodDelete, *base+"/session", nil, http.StatusOK)
	resp = mustStatus(client, http.MethodGet, *base+"/session", nil, http.StatusOK)
	var after sessionEnvelope
	mustDecode(resp, &after)
	if after.Session.Authenticated {
		fail("session revoke: token still valid")
	}

	fmt.Println("smoke: OK")
}

func step(name string) {
	fmt.Printf("smoke: %s\n", name)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "smoke: FAIL: "+format+"\n", args...)
	os.Exit(1)
}

func mustStatus(client *http.Client, method, url string, body []byte, want int) *http.Response {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		fail("%s %s: %v", method, url, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		fail("%s %s: %v", method, url, err)
	}
	if resp.StatusCode != want {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxReadBytes))
		fail("%s %s: status %d, want %d (body: %s)", method, url, resp.StatusCode, want, b)
	}
	return resp
}

func mustDecode(resp *http.Response, dst any) {
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReadBytes)).Decode(dst); err != nil {
		fail("decode response: %v", err)
	}
}
