//go:build e2e

package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/xdg/cmdgate/internal/testutil"
)

var client = testutil.NoProxyClient()

// response is the union of the JSON bodies the gateway returns.
type response struct {
	Success    bool   `json:"success"`
	ExitCode   *int   `json:"exit_code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	Error      string `json:"error"`
	Status     string `json:"status"`
	Kind       string `json:"kind"`
	Cause      string `json:"cause"`
	RetryAfter int    `json:"retry_after"`
	RequestID  string `json:"request_id"`

	AccessToken string `json:"access_token"`
	Subject     string `json:"subject"`
}

// call sends a request and decodes the JSON body. headers are key/value
// pairs.
func call(t *testing.T, method, path, body string, headers ...string) (*http.Response, response) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, baseURL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out response
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("decode %s %s: %v\n%s", method, path, err, data)
		}
	}
	return resp, out
}

func withKey() []string {
	return []string{"X-API-Key", apiKey}
}
