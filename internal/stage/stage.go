// Package stage provides a simple way to time the sequential phases of the
// generation pipeline (parse, mark reachable, emit, write), for dumping
// under -v.
package stage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type timeline struct {
	marks []mark
}

type mark struct {
	name string
	at   time.Time
}

type key int

const timelineKey key = 0

// NewContext returns a new context with an empty timeline attached, with
// its first mark recorded as "start".
func NewContext(parent context.Context) context.Context {
	ctx := context.WithValue(parent, timelineKey, &timeline{})
	Mark(ctx, "start")
	return ctx
}

// Mark records that the named pipeline stage has just finished.
func Mark(ctx context.Context, name string) {
	tl, ok := ctx.Value(timelineKey).(*timeline)
	if !ok {
		return
	}
	tl.marks = append(tl.marks, mark{name: name, at: time.Now()})
}

// Dump renders the timeline attached to ctx as a human-readable summary of
// how long each stage took, oldest first.
func Dump(ctx context.Context) string {
	tl, ok := ctx.Value(timelineKey).(*timeline)
	if !ok {
		return "<no timeline>"
	}
	if len(tl.marks) < 2 {
		return "<empty timeline>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "total %s", tl.marks[len(tl.marks)-1].at.Sub(tl.marks[0].at))
	for i := 1; i < len(tl.marks); i++ {
		fmt.Fprintf(&b, " | %s %s", tl.marks[i].name, tl.marks[i].at.Sub(tl.marks[i-1].at))
	}
	return b.String()
}
