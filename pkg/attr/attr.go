// Package attr translates declarative attributes into native widget property
// writes.
//
// Only inline styles are understood. A style is either the value of a "style"
// attribute, a ";"-separated list of "property: value" declarations, or a
// single declaration expressed as an attribute in the "style" namespace.
// Unknown attributes and properties are ignored.
package attr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"src.vbridge.sh/pkg/retained"
)

// ErrMalformedLength is wrapped by errors about length values with no numeric
// prefix.
var ErrMalformedLength = errors.New("malformed length")

// DeclError is an error about one style declaration. It never stops the
// translation of the remaining declarations.
type DeclError struct {
	Decl string
	Err  error
}

func (e *DeclError) Error() string { return fmt.Sprintf("%q: %v", e.Decl, e.Err) }

func (e *DeclError) Unwrap() error { return e.Err }

// StyleNamespace is the attribute namespace whose attributes are single style
// declarations.
const StyleNamespace = "style"

type handler func(value string) ([]retained.PropertyWrite, error)

var properties = map[string]handler{
	"text-align": textAlign,
	"margin-top": length(retained.PropMarginTop),
}

// Translate maps an attribute to property writes. The returned error, if not
// nil, joins one *DeclError per rejected declaration; writes from the other
// declarations are still returned.
func Translate(name, value, ns string) ([]retained.PropertyWrite, error) {
	switch {
	case ns == StyleNamespace:
		return translateDecls([]string{name + ":" + value})
	case ns == "" && name == "style":
		return translateDecls(strings.Split(value, ";"))
	}
	return nil, nil
}

func translateDecls(decls []string) ([]retained.PropertyWrite, error) {
	var writes []retained.PropertyWrite
	var errs []error
	for _, decl := range decls {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		prop, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		h, ok := properties[strings.ToLower(strings.TrimSpace(prop))]
		if !ok {
			continue
		}
		ws, err := h(strings.TrimSpace(value))
		if err != nil {
			errs = append(errs, &DeclError{decl, err})
			continue
		}
		writes = append(writes, ws...)
	}
	return writes, errors.Join(errs...)
}

var alignments = map[string]retained.Align{
	"left": retained.AlignStart, "start": retained.AlignStart,
	"center": retained.AlignCenter,
	"right":  retained.AlignEnd, "end": retained.AlignEnd,
}

func textAlign(value string) ([]retained.PropertyWrite, error) {
	a, ok := alignments[strings.ToLower(value)]
	if !ok {
		return nil, nil
	}
	return []retained.PropertyWrite{{Name: retained.PropAlign, Value: a}}, nil
}

// All lengths are in the single native unit; the unit suffix, if any, is
// ignored and fractions are truncated.
func length(prop retained.Property) handler {
	return func(value string) ([]retained.PropertyWrite, error) {
		n, err := ParseLength(value)
		if err != nil {
			return nil, err
		}
		return []retained.PropertyWrite{{Name: prop, Value: n}}, nil
	}
}

// ParseLength parses the leading numeric prefix of a length such as "20px" or
// "1.5em", truncated to an int. Lengths above retained.MaxLength are
// malformed.
func ParseLength(s string) (int, error) {
	end := 0
	seenDot := false
	for end < len(s) {
		c := s[end]
		if c == '.' && !seenDot {
			seenDot = true
		} else if c < '0' || c > '9' {
			break
		}
		end++
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedLength, s)
	}
	if f < 0 || f > retained.MaxLength {
		return 0, fmt.Errorf("%w: %q is out of range", ErrMalformedLength, s)
	}
	return int(f), nil
}

// Apply translates an attribute and writes the resulting properties to a
// widget. Errors from the translation are returned after all writes have been
// attempted; an error from the backend stops immediately.
func Apply(b retained.Backend, h retained.Handle, name, value, ns string) error {
	writes, translateErr := Translate(name, value, ns)
	for _, w := range writes {
		if err := b.SetProperty(h, w.Name, w.Value); err != nil {
			return err
		}
	}
	return translateErr
}
