package httpserver

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewhub/code-review-agent/internal/application"
	"github.com/reviewhub/code-review-agent/internal/application/analysis"
	apptasks "github.com/reviewhub/code-review-agent/internal/application/tasks"
	"github.com/reviewhub/code-review-agent/internal/application/webhook"
	"github.com/reviewhub/code-review-agent/internal/infra/queue"
	"github.com/reviewhub/code-review-agent/internal/infra/store"
)

const testSecret = "hub-secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := &apptasks.Service{
		Store:  store.NewMemory(time.Hour),
		Queue:  queue.NewMemory(16),
		Engine: &analysis.Engine{},
		Clock:  application.SystemClock{},
	}
	srv := httptest.NewServer(NewRouter(svc, webhook.NewService(testSecret), nil))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestSubmitEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, out := postJSON(t, srv.URL+"/analyze-pr",
		`{"repo_url": "https://github.com/octocat/hello-world", "pr_number": 5}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.NotEmpty(t, out["task_id"])
	assert.Equal(t, "pending", out["status"])
}

func TestSubmitEndpointRejectsBadRepo(t *testing.T) {
	srv := newTestServer(t)

	resp, out := postJSON(t, srv.URL+"/analyze-pr",
		`{"repo_url": "not a url", "pr_number": 5}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out["error"], "repo_url")
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t)

	_, out := postJSON(t, srv.URL+"/analyze-pr",
		`{"repo_url": "https://github.com/octocat/hello-world", "pr_number": 5}`)
	id := out["task_id"].(string)

	resp, status := getJSON(t, srv.URL+"/status/"+id)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, status["task_id"])
	assert.Equal(t, "pending", status["status"])
}

func TestStatusEndpointUnknownTask(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := getJSON(t, srv.URL+"/status/no-such-task")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResultsEndpointNeverEchoesToken(t *testing.T) {
	srv := newTestServer(t)

	_, out := postJSON(t, srv.URL+"/analyze-pr",
		`{"repo_url": "https://github.com/octocat/hello-world", "pr_number": 5, "github_token": "ghp_supersecret"}`)
	id := out["task_id"].(string)

	resp, err := http.Get(srv.URL + "/results/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, buf.String(), "ghp_supersecret")
	assert.NotContains(t, buf.String(), "access_token")
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	srv := newTestServer(t)

	body := []byte(`{"action": "opened"}`)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/webhook/github", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", "sha256="+strings.Repeat("0", 64))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebhookQueuesTriggerAction(t *testing.T) {
	srv := newTestServer(t)

	body := []byte(`{
		"action": "opened",
		"pull_request": {"number": 12},
		"repository": {"html_url": "https://github.com/octocat/hello-world"}
	}`)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/webhook/github", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", signBody(body))
	req.Header.Set("X-GitHub-Event", "pull_request")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.NotEmpty(t, out["task_id"])
	assert.Equal(t, float64(12), out["pr_number"])
}

func TestWebhookIgnoresOtherActions(t *testing.T) {
	srv := newTestServer(t)

	body := []byte(`{
		"action": "labeled",
		"pull_request": {"number": 12},
		"repository": {"html_url": "https://github.com/octocat/hello-world"}
	}`)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/webhook/github", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", signBody(body))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "action ignored", out["message"])
	assert.Nil(t, out["task_id"])
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	srv := newTestServer(t)

	body := []byte(`{"ref": "refs/heads/main"}`)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/webhook/github", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", signBody(body))
	req.Header.Set("X-GitHub-Event", "push")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "event ignored", out["message"])
}

func TestLatestEndpointWithoutArchive(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/tasks/latest")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out []any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, out)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, out := getJSON(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, out, "tasks_submitted")
	assert.Contains(t, out, "requests_total")
}
