package attr

import "fmt"

// Span is a styled range of output text.
type Span struct {
	Start      int `json:"start" yaml:"start"`
	Length     int `json:"length" yaml:"length"`
	Attributes Map `json:"attributes" yaml:"attributes"`
}

// End returns the exclusive end offset.
func (s Span) End() int {
	return s.Start + s.Length
}

// Text returns the slice of text the span covers.
func (s Span) Text(text string) string {
	return text[s.Start:s.End()]
}

// String implements fmt.Stringer.
func (s Span) String() string {
	return fmt.Sprintf("span[%d:%d]%v", s.Start, s.End(), s.Attributes)
}

// Run is a maximal range of text sharing the same effective attributes.
// A run list covers its text from 0 to len(text) without gaps.
type Run struct {
	Start      int `json:"start" yaml:"start"`
	Length     int `json:"length" yaml:"length"`
	Attributes Map `json:"attributes" yaml:"attributes"`
}

// End returns the exclusive end offset.
func (r Run) End() int {
	return r.Start + r.Length
}
