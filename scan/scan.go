// Package scan implements the single-pass delimiter matcher.
//
// The scanner reads its input once, left to right, one rune at a time. Every
// rune is appended to an output buffer and then offered to the in-progress
// matches, newest first. A match that completes hands its slice of the
// buffer to its rule's transform; an accepted replacement truncates the
// buffer back to the match start and appends the replacement, so the scan
// carries on over the rewritten text without any offset arithmetic. Finally
// the rune may spawn new matches for every rule whose template starts with it.
//
// Spans are reported in output-buffer byte offsets.
package scan

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/coregx/markspan/attr"
	"github.com/coregx/markspan/template"
)

// TransformFunc turns a completed match into its replacement.
//
// matched is the matched slice of the current buffer, text is the whole
// current buffer (rewritten prefix plus unread input) and start is the byte
// offset of matched within text. Returning ok == false vetoes the match: the
// buffer is left as is and no span is recorded. An accepted replacement with
// empty attrs rewrites the text without recording a span.
type TransformFunc func(matched, text string, start int) (replacement string, attrs attr.Map, ok bool)

// Rule pairs a compiled template with its transform.
type Rule struct {
	Template  *template.Template
	Transform TransformFunc
}

// Stats counts match dispositions of one scan.
type Stats struct {
	Spawned   int // matches started
	Completed int // matches whose replacement was applied
	Vetoed    int // matches whose transform declined
	Failed    int // matches dropped on a mismatch or superseded by an enclosing completion
	Discarded int // matches still pending at end of input
	Orphaned  int // nested spans dropped because the enclosing replacement lost their text
}

// Result is the outcome of one scan.
type Result struct {
	Text  string
	Spans []attr.Span // completion order
	Stats Stats
}

// Scanner matches a fixed set of rules. It is immutable and safe for
// concurrent use; every Scan call keeps its state on its own.
type Scanner struct {
	rules []Rule
	opens []string       // opening literal per rule
	first map[rune][]int // first template rune -> rule indices in registration order
	pool  *registryPool
}

// New creates a scanner over a snapshot of rules. Later changes to the
// caller's slice do not affect the scanner.
func New(rules []Rule) *Scanner {
	s := &Scanner{
		rules: append([]Rule(nil), rules...),
		opens: make([]string, len(rules)),
		first: make(map[rune][]int, len(rules)),
		pool:  newRegistryPool(),
	}
	for i, r := range s.rules {
		s.opens[i] = r.Template.Open()
		c := r.Template.First()
		s.first[c] = append(s.first[c], i)
	}
	return s
}

// Rules returns the number of rules.
func (s *Scanner) Rules() int {
	return len(s.rules)
}

// state is the per-call scan context.
type state struct {
	src   string
	read  int    // offset of the next unread byte of src
	out   []byte // output buffer; the current buffer is out + src[read:]
	reg   *registry
	spans []attr.Span
	stats Stats
}

// Scan runs the rules over src once and returns the rewritten text with the
// spans recorded along the way. Scan never fails; matches still pending at
// the end of input are discarded.
func (s *Scanner) Scan(src string) Result {
	st := &state{
		src: src,
		out: make([]byte, 0, len(src)),
		reg: s.pool.get(),
	}
	for st.read < len(src) {
		c, size := utf8.DecodeRuneInString(src[st.read:])
		pos := len(st.out)
		st.out = append(st.out, src[st.read:st.read+size]...)
		st.read += size

		consumed, claimed := s.advance(st, c)
		st.reg.compact()
		if !consumed {
			s.spawn(st, c, pos, claimed)
		}
	}
	st.stats.Discarded += st.reg.size()
	s.pool.put(st.reg)
	return Result{Text: string(st.out), Spans: st.spans, Stats: st.stats}
}

// advance offers c to every active match, newest first. It reports whether a
// completing match consumed c, in which case older matches do not see it, and
// whether c matched a step of some active match.
func (s *Scanner) advance(st *state, c rune) (consumed, claimed bool) {
	if st.reg.live.IsEmpty() {
		return false, false
	}
	for k := len(st.reg.order) - 1; k >= 0; k-- {
		h := st.reg.order[k]
		if !st.reg.alive(h) {
			continue
		}
		m := st.reg.get(h)
		t := s.rules[m.rule].Template

		if c == t.Step(m.cursor).Char {
			claimed = true
			m.cursor++
			if m.cursor == t.Gap() {
				m.gapAt = len(st.out)
			}
			if m.cursor == t.Len() && s.complete(st, h) {
				return true, true
			}
			continue
		}

		gap := t.Gap()
		switch {
		case gap < 0 || m.cursor < gap:
			// mandatory step
			s.fail(st, h)
		case m.cursor == gap:
			// inside the gap: absorb c unless it completes the opening
			// literal of a non-recursive template again
			if !t.Recursive() && reopens(st.out, m.gapAt, s.opens[m.rule]) {
				s.fail(st, h)
			}
		case !t.Recursive():
			s.fail(st, h)
		default:
			// partial closing literal: rewind to the gap and retry c there
			m.cursor = gap
			if c == t.Step(gap).Char {
				claimed = true
				m.cursor++
			}
		}
	}
	return false, claimed
}

// reopens reports whether out ends with open at or after offset from.
func reopens(out []byte, from int, open string) bool {
	n := len(out) - len(open)
	return n >= from && string(out[n:]) == open
}

// spawn starts a match for every rule whose template begins with c, in
// registration order. A single-rune template completes on the spot; once one
// such completion is applied c is consumed and no further rules are tried.
// Single-rune templates are skipped when claimed is set: c already advanced
// an older match, which owns it.
//
// Matches spawned together are then reordered so that the first registered
// is the newest, and so is tested first from the next rune on.
func (s *Scanner) spawn(st *state, c rune, pos int, claimed bool) {
	batch := len(st.reg.order)
	defer func() {
		slices.Reverse(st.reg.order[batch:])
	}()
	for _, i := range s.first[c] {
		t := s.rules[i].Template
		if claimed && t.Len() == 1 {
			continue
		}
		h := st.reg.spawn(active{rule: i, start: pos, cursor: 1, gapAt: len(st.out)})
		st.stats.Spawned++
		if t.Len() > 1 {
			continue
		}
		applied := s.complete(st, h)
		st.reg.compact()
		if applied {
			return
		}
	}
}

func (s *Scanner) fail(st *state, h Handle) {
	st.reg.retire(h)
	st.stats.Failed++
}

// complete hands the match behind h to its transform and retires it. It
// reports whether a replacement was applied.
func (s *Scanner) complete(st *state, h Handle) bool {
	m := *st.reg.get(h)
	st.reg.retire(h)

	matched := string(st.out[m.start:])
	text := string(st.out) + st.src[st.read:]
	repl, attrs, ok := s.rules[m.rule].Transform(matched, text, m.start)
	if !ok {
		st.stats.Vetoed++
		return false
	}
	st.stats.Completed++

	st.out = append(st.out[:m.start], repl...)
	st.reanchor(m.start, matched, repl, len(s.opens[m.rule]))
	if !attrs.IsEmpty() {
		st.spans = append(st.spans, attr.Span{Start: m.start, Length: len(repl), Attributes: attrs.Clone()})
	}
	// matches begun inside the replaced range would straddle the new span
	st.stats.Failed += st.reg.retireFrom(m.start)
	return true
}

// reanchor moves the spans nested inside a just-replaced match into the
// replacement. Nested spans are the most recent ones starting after start;
// an empty span recorded at start predates the match. When repl occurs
// in matched at an offset that keeps every nested span inside it, the spans
// shift with it; otherwise their text is gone and they are dropped. inner is
// where repl is expected in matched, just past the opening literal.
func (st *state) reanchor(start int, matched, repl string, inner int) {
	first := len(st.spans)
	for first > 0 && st.spans[first-1].Start > start {
		first--
	}
	nested := st.spans[first:]
	if len(nested) == 0 {
		return
	}

	lo, hi := len(matched), 0
	for _, sp := range nested {
		lo = min(lo, sp.Start-start)
		hi = max(hi, sp.End()-start)
	}
	k := fit(matched, repl, lo, hi, inner)
	if k < 0 {
		st.stats.Orphaned += len(nested)
		st.spans = st.spans[:first]
		return
	}
	for i := range nested {
		nested[i].Start -= k
	}
}

// fit returns the offset of an occurrence of repl in matched covering
// [lo, hi), or -1. The occurrence at prefer wins when there is one.
func fit(matched, repl string, lo, hi, prefer int) int {
	if prefer <= lo && prefer+len(repl) >= hi && strings.HasPrefix(matched[prefer:], repl) {
		return prefer
	}
	for off := 0; off <= len(matched); {
		j := strings.Index(matched[off:], repl)
		if j < 0 {
			return -1
		}
		k := off + j
		if k > lo {
			return -1
		}
		if k+len(repl) >= hi {
			return k
		}
		off = k + 1
	}
	return -1
}
