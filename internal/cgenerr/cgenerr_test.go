package cgenerr_test

import (
	"fmt"
	"testing"

	"github.com/dius/cser/internal/cgenerr"
)

func TestCodeOfDirect(t *testing.T) {
	tests := []struct {
		err  error
		want cgenerr.ExitCode
	}{
		{&cgenerr.LookupFailure{TypeName: "Foo"}, cgenerr.ExitUnknownRoot},
		{&cgenerr.UnsupportedShape{TypeName: "Foo", Reason: "ptr level 2"}, cgenerr.ExitOutputOrPtrLvl},
		{&cgenerr.RootNotComposite{TypeName: "Foo"}, cgenerr.ExitRootNotComposite},
		{&cgenerr.EmitterDomain{Emitter: "doc", TypeName: "float"}, cgenerr.ExitOutputOrPtrLvl},
		{&cgenerr.IOFailure{Path: "out.go", Err: fmt.Errorf("disk full")}, cgenerr.ExitHeaderWrite},
	}
	for _, tc := range tests {
		if got := cgenerr.CodeOf(tc.err); got != tc.want {
			t.Errorf("CodeOf(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestCodeOfWrapped(t *testing.T) {
	err := fmt.Errorf("while generating type %q: %w", "Foo", &cgenerr.LookupFailure{TypeName: "Bar"})
	if got := cgenerr.CodeOf(err); got != cgenerr.ExitUnknownRoot {
		t.Errorf("CodeOf(wrapped) = %d, want %d", got, cgenerr.ExitUnknownRoot)
	}
}

func TestCodeOfUnknown(t *testing.T) {
	if got := cgenerr.CodeOf(fmt.Errorf("boom")); got != cgenerr.ExitSyntax {
		t.Errorf("CodeOf(plain error) = %d, want %d", got, cgenerr.ExitSyntax)
	}
}
