package bridge

import (
	"errors"
	"fmt"
	"strings"

	"src.vbridge.sh/pkg/vdom"
)

// Kinds of errors. They are protocol or consistency violations between the
// bridge and its collaborators, and match *Error values with errors.Is.
var (
	ErrUnknownPath        = errors.New("unknown path")
	ErrDuplicateID        = errors.New("duplicate id")
	ErrUnboundID          = errors.New("unbound id")
	ErrStackUnderflow     = errors.New("stack underflow")
	ErrUnknownTemplate    = errors.New("unknown template")
	ErrBadTarget          = errors.New("bad target")
	ErrUnknownInstruction = errors.New("unknown instruction")
	ErrBackend            = errors.New("backend error")
)

// Error is an error from the bridge, with the identifiers needed to diagnose
// it.
type Error struct {
	Kind error
	// Index of the offending instruction in its batch, or -1.
	Index       int
	Instruction vdom.Instruction
	ID          vdom.ID
	HasID       bool
	Path        vdom.Path
	// Underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Index >= 0 {
		fmt.Fprintf(&sb, "edit %d", e.Index)
		if e.Instruction != nil {
			fmt.Fprintf(&sb, " %v", e.Instruction)
		}
		sb.WriteString(": ")
	}
	sb.WriteString(e.Kind.Error())
	if e.HasID {
		fmt.Fprintf(&sb, " %d", e.ID)
	}
	if e.Path != nil {
		fmt.Fprintf(&sb, " %v", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

// Is reports whether target is the kind of the error.
func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

func idError(kind error, id vdom.ID) *Error {
	return &Error{Kind: kind, Index: -1, ID: id, HasID: true}
}

func pathError(kind error, path vdom.Path) *Error {
	return &Error{Kind: kind, Index: -1, Path: path}
}

func kindError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Index: -1, Err: fmt.Errorf(format, args...)}
}
