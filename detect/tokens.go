package detect

import (
	"cmp"
	"slices"
	"strings"

	"github.com/coregx/ahocorasick"
	"github.com/coregx/markspan/attr"
)

// Tokens is a detector replacing literal tokens, such as ":)" or "->", with
// the text they map to. All tokens are found in one pass over the text.
type Tokens struct {
	name  string
	table map[string]string
	attrs attr.Map
}

// NewTokens creates a token detector. Every replacement is styled with attrs;
// empty attrs give text-only replacements.
func NewTokens(name string, table map[string]string, attrs attr.Map) *Tokens {
	t := &Tokens{name: name, table: make(map[string]string, len(table)), attrs: attrs.Clone()}
	for k, v := range table {
		t.table[k] = v
	}
	return t
}

// Name returns the detector name.
func (t *Tokens) Name() string {
	return t.name
}

// Compile builds the automaton. Where tokens overlap, the leftmost wins and
// among those starting at the same offset the longest.
func (t *Tokens) Compile() (Finder, error) {
	keys := make([]string, 0, len(t.table))
	for k := range t.table {
		if k == "" {
			return nil, &CompileError{Detector: t.name, Err: ErrEmptyToken}
		}
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(keys) == 0 {
		return &tokenFinder{}, nil
	}

	builder := ahocorasick.NewBuilder()
	for _, k := range keys {
		builder.AddPattern([]byte(k))
	}
	auto, err := builder.Build()
	if err != nil {
		return nil, &CompileError{Detector: t.name, Err: err}
	}
	return &tokenFinder{auto: auto, keys: keys}, nil
}

// Transform maps a token to its replacement.
func (t *Tokens) Transform(match string) (string, attr.Map) {
	repl, ok := t.table[match]
	if !ok {
		return match, attr.Map{}
	}
	return repl, t.attrs.Clone()
}

type tokenFinder struct {
	auto *ahocorasick.Automaton
	keys []string // longest first
}

func (f *tokenFinder) FindAll(text string) [][2]int {
	if f.auto == nil {
		return nil
	}
	haystack := []byte(text)
	var out [][2]int
	for at := 0; at < len(haystack); {
		m := f.auto.Find(haystack, at)
		if m == nil {
			break
		}
		start, end := f.leftmostLongest(text, max(at, m.End-len(f.keys[0])), m)
		out = append(out, [2]int{start, end})
		at = end
	}
	return out
}

// leftmostLongest widens m, the match the automaton reports first. That is
// the match ending first, so a longer token may start at or before m.Start;
// any such token starts at or after from.
func (f *tokenFinder) leftmostLongest(text string, from int, m *ahocorasick.Match) (start, end int) {
	for p := from; p <= m.Start; p++ {
		for _, k := range f.keys {
			if strings.HasPrefix(text[p:], k) {
				return p, p + len(k)
			}
		}
	}
	return m.Start, m.End
}
