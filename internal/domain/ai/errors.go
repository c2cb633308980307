package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrAuthFailed indicates the AI provider rejected the configured credential.
var ErrAuthFailed = errors.New("ai authentication failed")
