//go:build e2e

package e2e

import (
	"net/http"
	"sync"
	"testing"
	"time"
)

func TestExecute_Echo(t *testing.T) {
	resp, body := call(t, http.MethodPost, "/execute", `{"command":"echo","args":["hello","world"]}`, withKey()...)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %+v", resp.StatusCode, body)
	}
	if !body.Success || body.Stdout != "hello world\n" || body.ExitCode == nil || *body.ExitCode != 0 {
		t.Errorf("body = %+v", body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestExecute_NonZeroExit(t *testing.T) {
	resp, body := call(t, http.MethodPost, "/execute", `{"command":"false"}`, withKey()...)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body.Success || body.ExitCode == nil || *body.ExitCode != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestExecute_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		headers []string
		want    int
	}{
		{"no credential", `{"command":"echo"}`, nil, http.StatusUnauthorized},
		{"wrong key", `{"command":"echo"}`, []string{"X-API-Key", "wrong-key-0123456789"}, http.StatusUnauthorized},
		{"not allowlisted", `{"command":"cat","args":["/etc/passwd"]}`, withKey(), http.StatusForbidden},
		{"deny pattern", `{"command":"ls","args":["secret.txt"]}`, withKey(), http.StatusForbidden},
		{"missing command", `{"args":["x"]}`, withKey(), http.StatusBadRequest},
		{"unknown field", `{"command":"echo","shell":true}`, withKey(), http.StatusBadRequest},
		{"bad timeout", `{"command":"echo","timeout":301}`, withKey(), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := call(t, http.MethodPost, "/execute", tt.body, tt.headers...)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d (body %+v)", resp.StatusCode, tt.want, body)
			}
		})
	}
}

func TestExecute_Timeout(t *testing.T) {
	start := time.Now()
	resp, body := call(t, http.MethodPost, "/execute", `{"command":"sleep","args":["10"],"timeout":1}`, withKey()...)
	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, body %+v", resp.StatusCode, body)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestExecute_Saturation(t *testing.T) {
	// Two admission slots: hold both, then a third request is refused.
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			call(t, http.MethodPost, "/execute", `{"command":"sleep","args":["2"]}`, withKey()...)
		}()
	}
	time.Sleep(500 * time.Millisecond)

	resp, body := call(t, http.MethodPost, "/execute", `{"command":"echo"}`, withKey()...)
	wg.Wait()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 (body %+v)", resp.StatusCode, body)
	}
	if resp.Header.Get("Retry-After") != "15" || body.Cause != "concurrency" {
		t.Errorf("Retry-After = %q, cause = %q", resp.Header.Get("Retry-After"), body.Cause)
	}

	// Slots are released once the sleeps finish.
	resp, _ = call(t, http.MethodPost, "/execute", `{"command":"echo"}`, withKey()...)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("after release status = %d, want 200", resp.StatusCode)
	}
}

func TestHealthAndCapabilities(t *testing.T) {
	resp, _ := call(t, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d", resp.StatusCode)
	}
	resp, _ = call(t, http.MethodGet, "/capabilities", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("/capabilities without credential = %d, want 401", resp.StatusCode)
	}
	resp, _ = call(t, http.MethodGet, "/capabilities", "", withKey()...)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/capabilities status = %d", resp.StatusCode)
	}
}

func TestTool_Validation(t *testing.T) {
	resp, _ := call(t, http.MethodPost, "/tools/nope", `{"category":"network"}`, withKey()...)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown tool status = %d, want 404", resp.StatusCode)
	}
	resp, _ = call(t, http.MethodPost, "/tools/ping", `{"category":"system","args":{"target":"localhost"}}`, withKey()...)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("category mismatch status = %d, want 400", resp.StatusCode)
	}
}

func TestLogin_BearerRoundTrip(t *testing.T) {
	resp, body := call(t, http.MethodPost, "/auth/login",
		`{"username":"`+e2eUser+`","password":"`+e2ePassword+`"}`)
	if resp.StatusCode != http.StatusOK || body.AccessToken == "" {
		t.Fatalf("login status = %d, body %+v", resp.StatusCode, body)
	}
	bearer := []string{"Authorization", "Bearer " + body.AccessToken}

	resp, me := call(t, http.MethodGet, "/auth/me", "", bearer...)
	if resp.StatusCode != http.StatusOK || me.Subject != e2eUser {
		t.Errorf("/auth/me = %d %+v", resp.StatusCode, me)
	}

	resp, _ = call(t, http.MethodPost, "/execute", `{"command":"echo","args":["via bearer"]}`, bearer...)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("execute with bearer status = %d", resp.StatusCode)
	}

	resp, _ = call(t, http.MethodPost, "/auth/login", `{"username":"`+e2eUser+`","password":"wrong-password"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", resp.StatusCode)
	}
}

func TestMetrics(t *testing.T) {
	resp, _ := call(t, http.MethodGet, "/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/metrics status = %d", resp.StatusCode)
	}
}
