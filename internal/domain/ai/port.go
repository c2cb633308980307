package ai

import "context"

// Client port for the language-model provider: given a prompt, return
// free-form text. The caller bounds the call with its context deadline.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
