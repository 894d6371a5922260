package gastronomy

import (
	"fmt"
	"strings"
)

// ErrorKind mirrors diagnostics.Kind for the public API, so callers never
// need to import the internal package just to branch on error category.
type ErrorKind int

const (
	KindConfig ErrorKind = iota
	KindUnsupportedFormat
	KindParseFailure
	KindBadParameter
	KindChainFailure
	KindOverrideUnresolved
	KindBudget
	KindTypeMismatch
	KindFreeVariable
	KindOutOfBoundsTag
	KindInternalInvariant
)

var kindNames = [...]string{
	"Config", "UnsupportedFormat", "ParseFailure", "BadParameter",
	"ChainFailure", "OverrideUnresolved", "Budget", "TypeMismatch",
	"FreeVariable", "OutOfBoundsTag", "InternalInvariant",
}

func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Error is gastronomy's single exported error type. Debug and every
// other pkg/gastronomy entry point return errors of this type (or one
// wrapping it), never a bare internal error.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("gastronomy: %s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("gastronomy: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WrapConfigError tags a configuration-loading failure with KindConfig.
// cmd/gastronomy loads configuration ahead of any call into Debug, so it
// calls this directly rather than going through wrapLoadError.
func WrapConfigError(message string, cause error) *Error {
	return newError(KindConfig, message, cause)
}

// wrapLoadError classifies a loader error by the message prefix
// loader.Load's own wrapping attaches (chain failure, parse failure,
// unsupported format, bad parameter, override unresolved), falling back
// to ParseFailure.
func wrapLoadError(err error) *Error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "override unresolved"):
		return newError(KindOverrideUnresolved, "loading program", err)
	case strings.Contains(msg, "chain failure"):
		return newError(KindChainFailure, "loading program", err)
	case strings.Contains(msg, "unsupported format"):
		return newError(KindUnsupportedFormat, "loading program", err)
	case strings.Contains(msg, "bad parameter"):
		return newError(KindBadParameter, "loading program", err)
	default:
		return newError(KindParseFailure, "loading program", err)
	}
}
