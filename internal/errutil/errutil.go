// Package errutil provides utilities for annotating Go errors with context
// as they propagate. The frontend assembler and the emitters do not call it;
// they return their errors unannotated.
package errutil

import "fmt"

// Annotatef annotates a non-nil error with the given message, without
// disturbing errors.Is/errors.As on the wrapped error.
//
// It's designed to be used in a defer, for example:
//
//	func assembleType(name string) (err error) {
//	  defer Annotatef(&err, "while generating type %q", name)
//	  return lookupFailure(name)
//	}
//
// Calling assembleType("Widget") when lookupFailure fails results in the
// message:
//
//	while generating type "Widget": <original message>
func Annotatef(err *error, format string, a ...any) {
	if *err != nil {
		*err = fmt.Errorf("%s: %w", fmt.Sprintf(format, a...), *err)
	}
}
