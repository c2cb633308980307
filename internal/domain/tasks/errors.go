package tasks

import "errors"

// ErrNotFound indicates an unknown or expired task id.
var ErrNotFound = errors.New("task not found")

// Kind classifies a failure for callers and for serialization across the
// queue/store boundary.
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindProvider   Kind = "provider"
	KindTimeout    Kind = "timeout"
	KindSchema     Kind = "schema"
	KindInternal   Kind = "internal"
)

// ErrorDescriptor is a serializable error value built at the point of
// failure. It crosses process boundaries as data, never as a caught
// runtime error reconstructed on the reading side.
type ErrorDescriptor struct {
	Kind      Kind   `json:"kind"`
	Message   string `json:"message"`
	Component string `json:"component"`
}

func (d *ErrorDescriptor) Error() string {
	return string(d.Kind) + ": " + d.Message + " (" + d.Component + ")"
}

// Describe builds a descriptor from an arbitrary error. Existing
// descriptors pass through unchanged so the original failure site wins.
func Describe(err error, kind Kind, component string) *ErrorDescriptor {
	var d *ErrorDescriptor
	if errors.As(err, &d) {
		return d
	}
	return &ErrorDescriptor{Kind: kind, Message: err.Error(), Component: component}
}
