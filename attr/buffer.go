package attr

import "sort"

// Buffer is text with attribute runs and the spans applied to it.
//
// Runs always cover the whole text. Apply layers a span's attributes over the
// runs it covers; Replace substitutes a range of text and shifts every run and
// span after it, so offsets never go stale.
type Buffer struct {
	text  string
	runs  []Run
	spans []Span
}

// NewBuffer creates a buffer whose text carries base everywhere.
func NewBuffer(text string, base Map) *Buffer {
	b := &Buffer{text: text}
	if text != "" {
		b.runs = []Run{{Start: 0, Length: len(text), Attributes: base.Clone()}}
	}
	return b
}

// FromRuns rebuilds a buffer from a previous result. Runs that do not cover
// the text exactly are replaced by a single unstyled run.
func FromRuns(text string, runs []Run, spans []Span) *Buffer {
	b := &Buffer{text: text, spans: append([]Span(nil), spans...)}
	pos := 0
	for _, r := range runs {
		if r.Start != pos || r.Length <= 0 {
			pos = -1
			break
		}
		pos = r.End()
	}
	if pos != len(text) {
		return &Buffer{text: text, runs: NewBuffer(text, Map{}).runs, spans: b.spans}
	}
	b.runs = append([]Run(nil), runs...)
	return b
}

// Text returns the current text.
func (b *Buffer) Text() string {
	return b.text
}

// Spans returns the spans in the order they were applied.
func (b *Buffer) Spans() []Span {
	return append([]Span(nil), b.spans...)
}

// Runs returns the run list with adjacent runs of equal attributes joined.
func (b *Buffer) Runs() []Run {
	out := make([]Run, 0, len(b.runs))
	for _, r := range b.runs {
		if n := len(out); n > 0 && out[n-1].Attributes.Equal(r.Attributes) {
			out[n-1].Length += r.Length
			continue
		}
		out = append(out, r)
	}
	return out
}

// AttributesAt returns the effective attributes at byte offset pos. At the
// end of the text the attributes of the last run apply.
func (b *Buffer) AttributesAt(pos int) Map {
	if len(b.runs) == 0 {
		return Map{}
	}
	i := b.runIndex(pos)
	if i == len(b.runs) {
		i--
	}
	return b.runs[i].Attributes
}

// runIndex returns the index of the run containing pos, or len(runs).
func (b *Buffer) runIndex(pos int) int {
	return sort.Search(len(b.runs), func(i int) bool {
		return b.runs[i].End() > pos
	})
}

// split makes pos a run boundary.
func (b *Buffer) split(pos int) {
	i := b.runIndex(pos)
	if i == len(b.runs) || b.runs[i].Start == pos {
		return
	}
	r := b.runs[i]
	left := Run{Start: r.Start, Length: pos - r.Start, Attributes: r.Attributes}
	right := Run{Start: pos, Length: r.End() - pos, Attributes: r.Attributes}
	b.runs = append(b.runs, Run{})
	copy(b.runs[i+2:], b.runs[i+1:])
	b.runs[i] = left
	b.runs[i+1] = right
}

// Apply layers s over the runs it covers and records it. The returned span
// carries the effective attributes: those present at s.Start with s's keys on
// top. Spans outside the text are clipped.
func (b *Buffer) Apply(s Span) Span {
	start, end := clamp(s.Start, len(b.text)), clamp(s.End(), len(b.text))
	eff := Span{Start: start, Length: end - start, Attributes: b.AttributesAt(start).Merge(s.Attributes)}
	if end > start {
		b.split(start)
		b.split(end)
		for i := b.runIndex(start); i < len(b.runs) && b.runs[i].Start < end; i++ {
			b.runs[i].Attributes = b.runs[i].Attributes.Merge(s.Attributes)
		}
	}
	b.spans = append(b.spans, eff)
	return eff
}

// Replace substitutes text[start:end] with repl. The replacement takes the
// attributes present at start merged with attrs. Runs and spans after the
// range shift by the length difference; spans enclosing the range grow or
// shrink with it; spans inside it are dropped since their text is gone. A span
// for the replacement is recorded when attrs is not empty, and returned.
func (b *Buffer) Replace(start, end int, repl string, attrs Map) Span {
	start, end = clamp(start, len(b.text)), clamp(end, len(b.text))
	if end < start {
		start, end = end, start
	}
	delta := len(repl) - (end - start)
	eff := Span{Start: start, Length: len(repl), Attributes: b.AttributesAt(start).Merge(attrs)}

	b.split(start)
	b.split(end)
	runs := make([]Run, 0, len(b.runs)+1)
	i := 0
	for ; i < len(b.runs) && b.runs[i].End() <= start; i++ {
		runs = append(runs, b.runs[i])
	}
	if len(repl) > 0 {
		runs = append(runs, Run{Start: start, Length: len(repl), Attributes: eff.Attributes})
	}
	for ; i < len(b.runs); i++ {
		r := b.runs[i]
		if r.Start < end {
			continue
		}
		r.Start += delta
		runs = append(runs, r)
	}
	b.runs = runs

	spans := make([]Span, 0, len(b.spans)+1)
	for _, s := range b.spans {
		switch {
		case s.End() <= start:
			spans = append(spans, s)
		case s.Start >= end:
			s.Start += delta
			spans = append(spans, s)
		case s.Start <= start && s.End() >= end:
			s.Length += delta
			spans = append(spans, s)
		case s.Start < start:
			s.Length = start - s.Start
			spans = append(spans, s)
		case s.End() > end:
			s.Length = s.End() - end
			s.Start = start + len(repl)
			spans = append(spans, s)
		}
	}
	b.spans = spans
	b.text = b.text[:start] + repl + b.text[end:]

	if !attrs.IsEmpty() {
		b.spans = append(b.spans, eff)
	}
	return eff
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
