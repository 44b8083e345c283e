package entity

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every PortfolioError unwraps to exactly one of these.
var (
	// ErrSourceUnavailable means a balance or price collaborator failed.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrMalformedRecord means a single snapshot row could not be parsed.
	ErrMalformedRecord = errors.New("malformed snapshot record")
	// ErrStoreReadFailure means the snapshot store as a whole could not be read.
	ErrStoreReadFailure = errors.New("snapshot store read failure")
	// ErrStoreWriteFailure means a snapshot batch could not be appended.
	ErrStoreWriteFailure = errors.New("snapshot store write failure")
	// ErrInvariantViolation means poisoned input or a configuration bug.
	ErrInvariantViolation = errors.New("invariant violation")
)

// PortfolioError represents an error that occurred during a valuation cycle.
// Non-fatal ones are reported back to callers as warnings.
type PortfolioError struct {
	Kind    error  `json:"-"`
	Source  string `json:"source,omitempty"`
	Chain   string `json:"chain,omitempty"`
	Symbol  string `json:"symbol,omitempty"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *PortfolioError) Error() string {
	var b strings.Builder
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString("portfolio error")
	}
	if e.Source != "" {
		fmt.Fprintf(&b, " [%s]", e.Source)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *PortfolioError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// KindName returns a short machine-readable name of the error kind.
func (e *PortfolioError) KindName() string {
	switch e.Kind {
	case ErrSourceUnavailable:
		return "source_unavailable"
	case ErrMalformedRecord:
		return "malformed_record"
	case ErrStoreReadFailure:
		return "store_read_failure"
	case ErrStoreWriteFailure:
		return "store_write_failure"
	case ErrInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// PortfolioErrorView is the serialisable form used by the REST layer.
type PortfolioErrorView struct {
	Kind    string `json:"kind"`
	Source  string `json:"source,omitempty"`
	Chain   string `json:"chain,omitempty"`
	Symbol  string `json:"symbol,omitempty"`
	Message string `json:"message"`
}

// View flattens the error for presentation.
func (e *PortfolioError) View() PortfolioErrorView {
	msg := e.Message
	if e.Cause != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Cause.Error()
	}
	return PortfolioErrorView{Kind: e.KindName(), Source: e.Source, Chain: e.Chain, Symbol: e.Symbol, Message: msg}
}

// NewInvariantViolation reports broken input that must halt the cycle.
func NewInvariantViolation(message string) *PortfolioError {
	return &PortfolioError{Kind: ErrInvariantViolation, Message: message}
}

// NewSourceUnavailable wraps a collaborator failure.
func NewSourceUnavailable(source string, cause error) *PortfolioError {
	return &PortfolioError{Kind: ErrSourceUnavailable, Source: source, Message: "fetch failed", Cause: cause}
}

// NewStoreReadFailure wraps a failure to read the snapshot store.
func NewStoreReadFailure(path string, cause error) *PortfolioError {
	return &PortfolioError{Kind: ErrStoreReadFailure, Source: path, Cause: cause}
}

// NewMalformedRecord describes one unparseable snapshot row.
func NewMalformedRecord(line int, message string) *PortfolioError {
	return &PortfolioError{Kind: ErrMalformedRecord, Message: fmt.Sprintf("line %d: %s", line, message)}
}
