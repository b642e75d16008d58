package errutil_test

import (
	"errors"
	"testing"

	"github.com/dius/cser/internal/errutil"
)

func TestAnnotatefWrapsNonNil(t *testing.T) {
	sentinel := errors.New("boom")

	run := func() (err error) {
		defer errutil.Annotatef(&err, "while generating type %q", "Widget")
		return sentinel
	}

	err := run()
	if err == nil {
		t.Fatalf("got nil error, want wrapped sentinel")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("errors.Is(err, sentinel) = false, want true")
	}
	want := `while generating type "Widget": boom`
	if err.Error() != want {
		t.Errorf("err.Error() = %q, want %q", err.Error(), want)
	}
}

func TestAnnotatefLeavesNilAlone(t *testing.T) {
	run := func() (err error) {
		defer errutil.Annotatef(&err, "while generating type %q", "Widget")
		return nil
	}
	if err := run(); err != nil {
		t.Errorf("got %v, want nil", err)
	}
}
