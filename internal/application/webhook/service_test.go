package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	svc := NewService("s3cret")
	body := []byte(`{"action":"opened"}`)
	require.NoError(t, svc.Verify(body, sign("s3cret", body)))
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	svc := NewService("s3cret")
	body := []byte(`{"action":"opened"}`)
	sig := sign("s3cret", body)

	tampered := []byte(`{"action":"opened" }`)
	err := svc.Verify(tampered, sig)
	require.Error(t, err)
	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestVerifyRejectsMissingOrMalformedHeader(t *testing.T) {
	svc := NewService("s3cret")
	body := []byte(`{}`)

	assert.Error(t, svc.Verify(body, ""))
	assert.Error(t, svc.Verify(body, "sha1=deadbeef"))
	assert.Error(t, svc.Verify(body, "sha256=deadbeef"))
}

func TestVerifyPermissiveWithoutSecret(t *testing.T) {
	svc := NewService("")
	body := []byte(`{}`)
	assert.NoError(t, svc.Verify(body, ""))
	assert.NoError(t, svc.Verify(body, "sha256=bogus"))
}

func TestShouldTrigger(t *testing.T) {
	svc := NewService("")
	for _, action := range []string{"opened", "synchronize", "reopened"} {
		assert.True(t, svc.ShouldTrigger(action), action)
	}
	for _, action := range []string{"closed", "labeled", "edited", ""} {
		assert.False(t, svc.ShouldTrigger(action), action)
	}
}

func TestParseEvent(t *testing.T) {
	svc := NewService("")
	body := []byte(`{
		"action": "opened",
		"pull_request": {"number": 42},
		"repository": {"full_name": "octocat/hello-world", "html_url": "https://github.com/octocat/hello-world"}
	}`)

	ev, err := svc.ParseEvent(body)
	require.NoError(t, err)
	assert.Equal(t, "opened", ev.Action)
	assert.Equal(t, 42, ev.PRNumber)
	assert.Equal(t, "https://github.com/octocat/hello-world", ev.RepoURL)
}

func TestParseEventFallbacks(t *testing.T) {
	svc := NewService("")
	// Top-level number and full_name stand in when the nested fields are absent.
	body := []byte(`{
		"action": "synchronize",
		"number": 7,
		"repository": {"full_name": "octocat/hello-world"}
	}`)

	ev, err := svc.ParseEvent(body)
	require.NoError(t, err)
	assert.Equal(t, 7, ev.PRNumber)
	assert.Equal(t, "https://github.com/octocat/hello-world", ev.RepoURL)
}

func TestParseEventRejectsMalformedJSON(t *testing.T) {
	svc := NewService("")
	_, err := svc.ParseEvent([]byte(`{not json`))
	assert.Error(t, err)
}
