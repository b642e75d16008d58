// Package cgenerr defines the generation-time error kinds of this tool and
// the stable process exit codes each one maps to, per spec.md §7/§6.2.
package cgenerr

import (
	"errors"
	"fmt"
)

// ExitCode is one of the stable exit codes documented for the cser CLI.
type ExitCode int

const (
	ExitSuccess          ExitCode = 0
	ExitSyntax           ExitCode = 1
	ExitAsprintf         ExitCode = 2 // unused in Go; kept for parity with the original's numbering
	ExitOutputOrPtrLvl   ExitCode = 3
	ExitUnknownRoot      ExitCode = 4
	ExitRootNotComposite ExitCode = 5
	ExitHeaderWrite      ExitCode = 6
	ExitSourceWrite      ExitCode = 7
	ExitNoRoots          ExitCode = 9
)

// LookupFailure is returned when a referenced type name cannot be resolved
// and is not a known forward placeholder.
type LookupFailure struct {
	TypeName string
	UsedBy   string
}

func (e *LookupFailure) Error() string {
	if e.UsedBy == "" {
		return fmt.Sprintf("unrecognised type %q", e.TypeName)
	}
	return fmt.Sprintf("unrecognised type %q for %q", e.TypeName, e.UsedBy)
}

// ExitCode implements the codeder interface.
func (e *LookupFailure) ExitCode() ExitCode { return ExitUnknownRoot }

// UnsupportedShape is returned for pointer levels greater than one,
// VarArrays whose length sibling is missing or declared later, and any
// other shape merge_decorations cannot fold.
type UnsupportedShape struct {
	TypeName string
	Reason   string
}

func (e *UnsupportedShape) Error() string {
	return fmt.Sprintf("unsupported shape for %q: %s", e.TypeName, e.Reason)
}

// ExitCode implements the codeder interface.
func (e *UnsupportedShape) ExitCode() ExitCode { return ExitOutputOrPtrLvl }

// RootNotComposite is returned when a user-requested root type exists but
// is not a Composite.
type RootNotComposite struct {
	TypeName string
}

func (e *RootNotComposite) Error() string {
	return fmt.Sprintf("type %q is not a struct", e.TypeName)
}

// ExitCode implements the codeder interface.
func (e *RootNotComposite) ExitCode() ExitCode { return ExitRootNotComposite }

// EmitterDomain is returned when a generation target rejects a type it was
// asked to emit, e.g. the structured-document emitter asked to handle a
// floating-point native type.
type EmitterDomain struct {
	Emitter  string
	TypeName string
}

func (e *EmitterDomain) Error() string {
	return fmt.Sprintf("%s backend does not support floating-point type %q", e.Emitter, e.TypeName)
}

// ExitCode implements the codeder interface.
func (e *EmitterDomain) ExitCode() ExitCode { return ExitOutputOrPtrLvl }

// IOFailure is returned when writing generated output fails.
type IOFailure struct {
	Path string
	Err  error
}

func (e *IOFailure) Error() string {
	return fmt.Sprintf("writing %q failed: %v", e.Path, e.Err)
}

func (e *IOFailure) Unwrap() error { return e.Err }

// ExitCode implements the codeder interface.
func (e *IOFailure) ExitCode() ExitCode { return ExitHeaderWrite }

// codeder is implemented by every error kind in this package.
type codeder interface {
	error
	ExitCode() ExitCode
}

// CodeOf extracts the exit code carried by err, if it (or something it
// wraps) is one of this package's error kinds. It returns ExitSyntax
// otherwise, matching the original cser's behavior of treating unrecognized
// failures as usage errors.
func CodeOf(err error) ExitCode {
	var c codeder
	if errors.As(err, &c) {
		return c.ExitCode()
	}
	return ExitSyntax
}
