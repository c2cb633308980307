package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// signaturePrefix is the scheme GitHub puts in X-Hub-Signature-256.
const signaturePrefix = "sha256="

// AuthError rejects a trigger before any task is created.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return "webhook auth failed: " + e.Reason }

// Actions that advance to job creation. Every other accepted action is
// acknowledged but produces no task.
var triggerActions = map[string]bool{
	"opened":      true,
	"synchronize": true,
	"reopened":    true,
}

// TriggerEvent is the transient view of an inbound PR notification.
// It is never persisted; it only decides whether a task gets created.
type TriggerEvent struct {
	Action   string
	PRNumber int
	RepoURL  string
}

// Service validates inbound push-style triggers.
type Service struct {
	secret []byte
}

// NewService builds the authenticator. An empty secret enables permissive
// mode: every request is accepted. That is an explicit deployment choice,
// so it is logged once here rather than silently bypassed per request.
func NewService(secret string) *Service {
	if secret == "" {
		log.Printf("webhook: no secret configured, accepting all deliveries (permissive mode)")
	}
	return &Service{secret: []byte(secret)}
}

// Verify checks the HMAC-SHA256 signature over the exact raw body bytes.
// With no secret configured every request passes. With a secret, a missing
// or malformed header and any digest mismatch all reject.
func (s *Service) Verify(body []byte, signatureHeader string) error {
	if len(s.secret) == 0 {
		return nil
	}
	if signatureHeader == "" {
		return &AuthError{Reason: "missing signature header"}
	}
	if !strings.HasPrefix(signatureHeader, signaturePrefix) {
		return &AuthError{Reason: "unexpected signature scheme"}
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	provided := strings.TrimPrefix(signatureHeader, signaturePrefix)

	// hmac.Equal is constant time
	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return &AuthError{Reason: "signature mismatch"}
	}
	return nil
}

// ShouldTrigger reports whether a PR action starts an analysis.
func (s *Service) ShouldTrigger(action string) bool {
	return triggerActions[action]
}

// ParseEvent extracts the fields we need from a pull_request payload.
func (s *Service) ParseEvent(body []byte) (*TriggerEvent, error) {
	var payload struct {
		Action      string `json:"action"`
		Number      int    `json:"number"`
		PullRequest struct {
			Number int `json:"number"`
		} `json:"pull_request"`
		Repository struct {
			FullName string `json:"full_name"`
			HTMLURL  string `json:"html_url"`
		} `json:"repository"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing webhook payload: %w", err)
	}

	number := payload.PullRequest.Number
	if number == 0 {
		number = payload.Number
	}
	repoURL := payload.Repository.HTMLURL
	if repoURL == "" && payload.Repository.FullName != "" {
		repoURL = "https://github.com/" + payload.Repository.FullName
	}
	return &TriggerEvent{
		Action:   payload.Action,
		PRNumber: number,
		RepoURL:  repoURL,
	}, nil
}
