// Package template parses tracking number templates and enumerates the
// identifier space they describe.
//
// A template marks its numeric span with dots. Everything before the first
// dot is the literal prefix, everything after the last dot is the literal
// suffix, and the number of dots is the zero-padded width of the span:
//
//	EW00525141.US   -> EW005251410US … EW005251419US
//	EW005251...US   -> EW005251000US … EW005251999US
package template

import (
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
)

// Delimiter marks one digit of the numeric span.
const Delimiter = '.'

// MaxDigitWidth keeps the identifier space within int64.
const MaxDigitWidth = 18

// ErrConfiguration is matched by every ConfigurationError.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports a template that cannot be used.
type ConfigurationError struct {
	Template string
	Reason   string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid tracking template %q: %s", e.Template, e.Reason)
}

// Is lets errors.Is(err, ErrConfiguration) match.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Template is a parsed tracking number template. It is immutable.
type Template struct {
	Prefix     string
	Suffix     string
	DigitWidth int

	raw  string
	size int64
}

// Parse extracts prefix, suffix and digit width from s.
func Parse(s string) (Template, error) {
	first := strings.IndexByte(s, Delimiter)
	if first < 0 {
		return Template{}, &ConfigurationError{Template: s, Reason: "no placeholder run found"}
	}
	last := strings.LastIndexByte(s, Delimiter)
	width := strings.Count(s, string(Delimiter))

	if width > MaxDigitWidth {
		return Template{}, &ConfigurationError{
			Template: s,
			Reason:   fmt.Sprintf("digit width %d exceeds %d", width, MaxDigitWidth),
		}
	}

	size := int64(1)
	for i := 0; i < width; i++ {
		size *= 10
	}

	return Template{
		Prefix:     s[:first],
		Suffix:     s[last+1:],
		DigitWidth: width,
		raw:        s,
		size:       size,
	}, nil
}

// Size returns the number of identifiers in the space, 10^DigitWidth.
func (t Template) Size() int64 {
	return t.size
}

// Identifier renders index i as prefix + zero-padded i + suffix.
func (t Template) Identifier(i int64) string {
	digits := strconv.FormatInt(i, 10)

	var b strings.Builder
	b.Grow(len(t.Prefix) + t.DigitWidth + len(t.Suffix))
	b.WriteString(t.Prefix)
	for n := len(digits); n < t.DigitWidth; n++ {
		b.WriteByte('0')
	}
	b.WriteString(digits)
	b.WriteString(t.Suffix)
	return b.String()
}

// Range yields the identifiers for indices in [start, end) in increasing
// order. Bounds are clamped to the template's space.
func (t Template) Range(start, end int64) iter.Seq[string] {
	if start < 0 {
		start = 0
	}
	if end > t.size {
		end = t.size
	}
	return func(yield func(string) bool) {
		for i := start; i < end; i++ {
			if !yield(t.Identifier(i)) {
				return
			}
		}
	}
}

// All yields every identifier of the space.
func (t Template) All() iter.Seq[string] {
	return t.Range(0, t.size)
}

// String returns the text the template was parsed from. A Template built
// without Parse renders as prefix, one contiguous placeholder run and suffix.
func (t Template) String() string {
	if t.raw != "" {
		return t.raw
	}
	return t.Prefix + strings.Repeat(string(Delimiter), t.DigitWidth) + t.Suffix
}
