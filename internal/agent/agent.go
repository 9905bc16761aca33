// Package agent defines the research agent port: execute one natural-language
// research question and decode the terminal structured result. The agent is
// stateless per call and retains no memory between questions.
package agent

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies agent failures.
type Kind string

const (
	KindTimeout  Kind = "timeout"
	KindUpstream Kind = "upstream_failure"
	KindSchema   Kind = "schema_mismatch"
)

// Error is a typed research agent failure. Callers branch on Kind; the
// wrapped error carries the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("agent %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err as an agent error of the given kind.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// AsError returns the *Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Agent runs one research question and decodes the structured answer into
// out, which must be a pointer to the question's result schema. Failures
// are surfaced as *Error.
type Agent interface {
	Run(ctx context.Context, prompt string, out any) error
}
