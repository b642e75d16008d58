package stage_test

import (
	"context"
	"strings"
	"testing"

	"github.com/dius/cser/internal/stage"
)

func TestDumpWithNoMarksBeyondStart(t *testing.T) {
	ctx := stage.NewContext(context.Background())
	got := stage.Dump(ctx)
	if got != "<empty timeline>" {
		t.Errorf("Dump() = %q, want <empty timeline>", got)
	}
}

func TestDumpIncludesEachMarkedStageAndTotal(t *testing.T) {
	ctx := stage.NewContext(context.Background())
	stage.Mark(ctx, "parse")
	stage.Mark(ctx, "reach")
	stage.Mark(ctx, "emit")

	got := stage.Dump(ctx)
	if !strings.HasPrefix(got, "total ") {
		t.Errorf("Dump() = %q, want prefix %q", got, "total ")
	}
	for _, want := range []string{"parse", "reach", "emit"} {
		if !strings.Contains(got, want) {
			t.Errorf("Dump() = %q, missing stage %q", got, want)
		}
	}
}

func TestDumpWithoutTimelineInContext(t *testing.T) {
	got := stage.Dump(context.Background())
	if got != "<no timeline>" {
		t.Errorf("Dump() = %q, want <no timeline>", got)
	}
}

func TestMarkOnContextWithoutTimelineIsNoop(t *testing.T) {
	ctx := context.Background()
	stage.Mark(ctx, "parse") // must not panic
	if got := stage.Dump(ctx); got != "<no timeline>" {
		t.Errorf("Dump() = %q, want <no timeline>", got)
	}
}
