// Package template compiles delimiter templates into the step sequences
// driven by the scanner.
//
// A template is a run of literal characters with at most one gap marker:
//
//	**?**    open "**", any run of text, close "**"
//	:)       a fixed two-character token, no gap
//	[?]      open "[", any run of text, close "]"
//
// The gap marker is not itself a step. It flags the step before it as the
// start of a skip region and records the index of the step after it as the
// rewind point used while the closing literal is being matched.
package template

import (
	"strings"
	"unicode/utf8"
)

// GapMarker separates the opening literal of a template from its closing literal.
const GapMarker = '?'

// Step is a single literal character of a template.
type Step struct {
	// Char is the rune the input must contain at this step.
	Char rune

	// GapStart marks that an arbitrary run of input may follow this step
	// before the remaining steps are tried.
	GapStart bool
}

// Template is a compiled delimiter template. It is immutable after Compile;
// WithRecursive returns a modified copy.
type Template struct {
	source    string
	steps     []Step
	gap       int // index of the first step after the gap, -1 if none
	recursive bool
}

// Compile compiles a template string.
//
// Example:
//
//	t, err := template.Compile("**?**")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(t.Open(), t.Close()) // ** **
func Compile(src string) (*Template, error) {
	if src == "" {
		return nil, &Error{Template: src, Err: ErrEmpty}
	}
	if !utf8.ValidString(src) {
		return nil, &Error{Template: src, Pos: invalidOffset(src), Err: ErrInvalidUTF8}
	}

	t := &Template{
		source: src,
		steps:  make([]Step, 0, utf8.RuneCountInString(src)),
		gap:    -1,
	}
	for pos, r := range src {
		if r != GapMarker {
			t.steps = append(t.steps, Step{Char: r})
			continue
		}
		if len(t.steps) == 0 {
			return nil, &Error{Template: src, Pos: pos, Err: ErrLeadingGap}
		}
		if t.gap >= 0 {
			return nil, &Error{Template: src, Pos: pos, Err: ErrMultipleGaps}
		}
		t.steps[len(t.steps)-1].GapStart = true
		t.gap = len(t.steps)
	}
	if t.gap == len(t.steps) {
		return nil, &Error{Template: src, Pos: len(src) - 1, Err: ErrTrailingGap}
	}
	return t, nil
}

// MustCompile compiles a template and panics if it fails.
func MustCompile(src string) *Template {
	t, err := Compile(src)
	if err != nil {
		panic("template: Compile(`" + src + "`): " + err.Error())
	}
	return t
}

func invalidOffset(s string) int {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return 0
}

// WithRecursive returns a copy of t with the recursive flag set.
// A recursive template keeps a match alive when its own opening character
// reappears inside the gap, or when a partial closing literal has to be
// rewound.
func (t *Template) WithRecursive(recursive bool) *Template {
	c := *t
	c.recursive = recursive
	return &c
}

// Source returns the template string the template was compiled from.
func (t *Template) Source() string {
	return t.source
}

// String implements fmt.Stringer.
func (t *Template) String() string {
	return t.source
}

// Len returns the number of steps.
func (t *Template) Len() int {
	return len(t.steps)
}

// Step returns the i-th step.
func (t *Template) Step(i int) Step {
	return t.steps[i]
}

// First returns the character a match is spawned on.
func (t *Template) First() rune {
	return t.steps[0].Char
}

// Gap returns the rewind point (the index of the first step after the gap),
// or -1 when the template has no gap.
func (t *Template) Gap() int {
	return t.gap
}

// HasGap reports whether the template contains a gap marker.
func (t *Template) HasGap() bool {
	return t.gap >= 0
}

// Recursive reports whether the template tolerates nested occurrences of its
// own opening literal inside the gap.
func (t *Template) Recursive() bool {
	return t.recursive
}

// Open returns the literal matched before the gap. Without a gap this is the
// whole template.
func (t *Template) Open() string {
	end := len(t.steps)
	if t.gap >= 0 {
		end = t.gap
	}
	return literal(t.steps[:end])
}

// Close returns the literal matched after the gap, or "" without a gap.
func (t *Template) Close() string {
	if t.gap < 0 {
		return ""
	}
	return literal(t.steps[t.gap:])
}

func literal(steps []Step) string {
	var b strings.Builder
	for _, s := range steps {
		b.WriteRune(s.Char)
	}
	return b.String()
}
