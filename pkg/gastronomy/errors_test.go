package gastronomy

import (
	"errors"
	"testing"
)

func TestErrorKindString(t *testing.T) {
	if got := KindChainFailure.String(); got != "ChainFailure" {
		t.Errorf("KindChainFailure.String() = %q, want %q", got, "ChainFailure")
	}
	if got := ErrorKind(99).String(); got != "Kind(99)" {
		t.Errorf("ErrorKind(99).String() = %q, want %q", got, "Kind(99)")
	}
}

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("boom")
	e := newError(KindBadParameter, "parsing hex", cause)

	if got := e.Error(); got == "" {
		t.Fatal("Error() returned empty string")
	}
	if !errors.Is(e, e) {
		t.Error("errors.Is(e, e): want true")
	}
	if errors.Unwrap(e) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(e), cause)
	}
}

func TestErrorIsComparesKindNotMessage(t *testing.T) {
	a := newError(KindBudget, "one message", nil)
	b := newError(KindBudget, "a different message", nil)
	c := newError(KindChainFailure, "one message", nil)

	if !errors.Is(a, b) {
		t.Error("errors with the same Kind should satisfy Is regardless of Message")
	}
	if errors.Is(a, c) {
		t.Error("errors with different Kinds should not satisfy Is")
	}
}

func TestWrapLoadErrorClassification(t *testing.T) {
	cases := []struct {
		msg  string
		want ErrorKind
	}{
		{"chain failure: timeout", KindChainFailure},
		{"unsupported format: .xyz", KindUnsupportedFormat},
		{"bad parameter: not hex", KindBadParameter},
		{"unexpected EOF", KindParseFailure},
	}
	for _, c := range cases {
		got := wrapLoadError(errors.New(c.msg))
		if got.Kind != c.want {
			t.Errorf("wrapLoadError(%q).Kind = %v, want %v", c.msg, got.Kind, c.want)
		}
	}
}
