package ewaybill

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies why a generation attempt did not succeed.
type Kind string

const (
	KindConfiguration   Kind = "configuration"
	KindWaitingForIRN   Kind = "waiting-for-irn"
	KindCredential      Kind = "credential"
	KindRemoteRejection Kind = "remote-rejection"
)

// Error codes with a meaning for the remediation logic.
const (
	CodeNoCredit      = "no-credit"
	CodeWaiting       = "waiting"
	CodeNotConfigured = "0"
	CodeAccessError   = "access_error"
	CodeNotFound      = "404"
)

var (
	ErrNotFound   = errors.New("ewaybill not found")
	ErrLocked     = errors.New("this document is being sent by another process already")
	ErrNotPending = errors.New("ewaybill is not pending generation")
)

// Error is the typed outcome of a failed generation. Callers branch on Kind
// and read Entries for the remote code/message list.
type Error struct {
	Kind     Kind
	Entries  []RemoteError
	Warnings []Warning
}

func (e *Error) Error() string {
	return e.Message()
}

// Message joins every entry as "[code] message", one per line.
func (e *Error) Message() string {
	lines := make([]string, 0, len(e.Entries))
	for _, entry := range e.Entries {
		if entry.Code != "" && e.Kind != KindConfiguration {
			lines = append(lines, fmt.Sprintf("[%s] %s", entry.Code, entry.Message))
			continue
		}
		lines = append(lines, entry.Message)
	}
	return strings.Join(lines, "\n")
}

// Messages returns the plain messages without codes.
func (e *Error) Messages() []string {
	out := make([]string, 0, len(e.Entries))
	for _, entry := range e.Entries {
		out = append(out, entry.Message)
	}
	return out
}

// Codes returns the error codes in response order.
func (e *Error) Codes() []string {
	out := make([]string, 0, len(e.Entries))
	for _, entry := range e.Entries {
		out = append(out, entry.Code)
	}
	return out
}

// BlockingLevel is warning for conditions expected to clear on their own
// (missing IRN, exhausted credits, not found yet) and error otherwise.
func (e *Error) BlockingLevel() BlockingLevel {
	for _, code := range e.Codes() {
		switch code {
		case CodeNotFound, CodeNoCredit, CodeWaiting:
			return BlockingWarning
		}
	}
	return BlockingError
}

// NewConfigurationError builds a configuration error from validation messages.
func NewConfigurationError(messages []string) *Error {
	entries := make([]RemoteError, 0, len(messages))
	for _, msg := range messages {
		entries = append(entries, RemoteError{Message: msg})
	}
	return &Error{Kind: KindConfiguration, Entries: entries}
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
