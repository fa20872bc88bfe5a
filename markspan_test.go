package markspan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/coregx/markspan/attr"
	"github.com/coregx/markspan/template"
	"pkt.systems/pslog"
)

func newStyled(t *testing.T, rules ...any) *Parser {
	t.Helper()
	p := New()
	for i := 0; i+2 < len(rules); i += 3 {
		tmpl := rules[i].(string)
		recursive := rules[i+1].(bool)
		attrs := rules[i+2].(attr.Map)
		if err := p.RegisterStyle(tmpl, recursive, attrs); err != nil {
			t.Fatalf("RegisterStyle(%q): %v", tmpl, err)
		}
	}
	return p
}

func spanTexts(out AnnotatedText) []string {
	texts := make([]string, 0, len(out.Spans))
	for _, s := range out.Spans {
		texts = append(texts, s.Text(out.Text))
	}
	return texts
}

func TestProcessIdentity(t *testing.T) {
	base := attr.Of("font", "body")
	inputs := []string{"", "plain", "**", "a * b ? c", "日本語 テキスト"}
	for _, in := range inputs {
		out := New().Process(in, base)
		if out.Text != in {
			t.Errorf("Process(%q).Text = %q", in, out.Text)
		}
		if len(out.Spans) != 0 {
			t.Errorf("Process(%q).Spans = %v, want none", in, out.Spans)
		}
		if in == "" {
			if len(out.Runs) != 0 {
				t.Errorf("Process(%q).Runs = %v, want none", in, out.Runs)
			}
			continue
		}
		if len(out.Runs) != 1 || out.Runs[0].Length != len(in) || !out.Runs[0].Attributes.Equal(base) {
			t.Errorf("Process(%q).Runs = %v, want one base run", in, out.Runs)
		}
	}
}

func TestProcessGapDelimited(t *testing.T) {
	p := newStyled(t, "**?**", false, attr.Of("style", "bold"))

	out := p.Process("x **bold** y", attr.Map{})
	if out.Text != "x bold y" {
		t.Fatalf("Text = %q, want %q", out.Text, "x bold y")
	}
	want := attr.Span{Start: 2, Length: 4, Attributes: attr.Of("style", "bold")}
	if len(out.Spans) != 1 {
		t.Fatalf("Spans = %v, want [%v]", out.Spans, want)
	}
	got := out.Spans[0]
	if got.Start != want.Start || got.Length != want.Length || !got.Attributes.Equal(want.Attributes) {
		t.Errorf("Spans[0] = %v, want %v", got, want)
	}
}

func TestProcessRecursiveRepetition(t *testing.T) {
	p := newStyled(t, "*?*", true, attr.Of("style", "em"))

	out := p.Process("*a*b*c*", attr.Map{})
	if out.Text != "abc" {
		t.Fatalf("Text = %q, want %q", out.Text, "abc")
	}
	if got := spanTexts(out); len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("span texts = %q, want [a c]", got)
	}
}

func TestProcessUnterminated(t *testing.T) {
	p := newStyled(t, "**?**", false, attr.Of("style", "bold"))

	out := p.Process("**oops", attr.Map{})
	if out.Text != "**oops" || len(out.Spans) != 0 {
		t.Errorf("Process = %q %v, want unchanged text and no spans", out.Text, out.Spans)
	}
}

func TestProcessVeto(t *testing.T) {
	p := New()
	calls := 0
	p.MustRegister("**?**", false, func(string, string, int) (string, attr.Map, bool) {
		calls++
		return "ignored", attr.Of("style", "bold"), false
	})

	out := p.Process("a **b** c", attr.Map{})
	if calls != 1 {
		t.Fatalf("transform called %d times, want 1", calls)
	}
	if out.Text != "a **b** c" || len(out.Spans) != 0 {
		t.Errorf("Process = %q %v, want unchanged text and no spans", out.Text, out.Spans)
	}
}

func TestProcessMergePrecedence(t *testing.T) {
	p := newStyled(t,
		"**?**", false, attr.Of("weight", "bold", "color", "red"),
		"[?]", false, attr.Of("color", "blue", "link", "x"),
	)
	base := attr.Of("font", "serif", "color", "black")

	out := p.Process("[a **b** c]", base)
	if out.Text != "a b c" {
		t.Fatalf("Text = %q, want %q", out.Text, "a b c")
	}
	if got := spanTexts(out); len(got) != 2 || got[0] != "b" || got[1] != "a b c" {
		t.Fatalf("span texts = %q, want [b, a b c]", got)
	}

	bold := attr.Of("font", "serif", "color", "red", "weight", "bold")
	if !out.Spans[0].Attributes.Equal(bold) {
		t.Errorf("bold span attributes = %v, want %v", out.Spans[0].Attributes, bold)
	}
	link := attr.Of("font", "serif", "color", "blue", "link", "x")
	if !out.Spans[1].Attributes.Equal(link) {
		t.Errorf("link span attributes = %v, want %v", out.Spans[1].Attributes, link)
	}

	wantRuns := []attr.Run{
		{Start: 0, Length: 2, Attributes: link},
		{Start: 2, Length: 1, Attributes: attr.Of("font", "serif", "color", "blue", "weight", "bold", "link", "x")},
		{Start: 3, Length: 2, Attributes: link},
	}
	if len(out.Runs) != len(wantRuns) {
		t.Fatalf("Runs = %v, want %v", out.Runs, wantRuns)
	}
	for i, want := range wantRuns {
		got := out.Runs[i]
		if got.Start != want.Start || got.Length != want.Length || !got.Attributes.Equal(want.Attributes) {
			t.Errorf("Runs[%d] = %+v, want %+v", i, got, want)
		}
	}
}

func TestProcessLengthChangingOffsets(t *testing.T) {
	p := New()
	p.MustRegister("(c)", false, Replace("©", attr.Map{}))
	p.MustRegister("**?**", false, Strip(template.MustCompile("**?**"), attr.Of("style", "bold")))
	p.MustRegister(":?:", false, func(m, _ string, _ int) (string, attr.Map, bool) {
		return strings.ToUpper(strings.Repeat(m[1:len(m)-1], 3)), attr.Of("style", "shout"), true
	})

	out := p.Process("(c) **a** :hi: (c) **bb**", attr.Map{})
	if want := "© a HIHIHI © bb"; out.Text != want {
		t.Fatalf("Text = %q, want %q", out.Text, want)
	}
	got := spanTexts(out)
	want := []string{"a", "HIHIHI", "bb"}
	if len(got) != len(want) {
		t.Fatalf("span texts = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("span %d covers %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRegisterErrors(t *testing.T) {
	tests := []struct {
		tmpl string
		want error
	}{
		{"", template.ErrEmpty},
		{"?x", template.ErrLeadingGap},
		{"a?b?c", template.ErrMultipleGaps},
		{"ab?", template.ErrTrailingGap},
		{"a\xffb", template.ErrInvalidUTF8},
	}
	for _, tc := range tests {
		p := New()
		err := p.Register(tc.tmpl, false, Replace("x", attr.Map{}))
		if !errors.Is(err, tc.want) {
			t.Errorf("Register(%q) = %v, want %v", tc.tmpl, err, tc.want)
		}
		var terr *template.Error
		if !errors.As(err, &terr) {
			t.Errorf("Register(%q) error %T does not wrap *template.Error", tc.tmpl, err)
		}
		if err != nil && !strings.HasPrefix(err.Error(), "markspan: register") {
			t.Errorf("Register(%q) error %q lacks prefix", tc.tmpl, err)
		}
		if err := p.RegisterStyle(tc.tmpl, false, attr.Of("style", "x")); !errors.Is(err, tc.want) {
			t.Errorf("RegisterStyle(%q) = %v, want %v", tc.tmpl, err, tc.want)
		}
		if p.Len() != 0 {
			t.Errorf("Len after failed Register(%q) = %d", tc.tmpl, p.Len())
		}
	}
}

func TestRegisterTemplateRejectsNil(t *testing.T) {
	p := New()
	if err := p.RegisterTemplate(nil, Replace("x", attr.Map{})); err == nil {
		t.Error("RegisterTemplate(nil, fn) succeeded")
	}
	if err := p.RegisterTemplate(template.MustCompile("**?**"), nil); err == nil {
		t.Error("RegisterTemplate(t, nil) succeeded")
	}
	if p.Len() != 0 {
		t.Errorf("Len = %d, want 0", p.Len())
	}
}

func TestMustRegisterPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustRegister did not panic")
		}
	}()
	New().MustRegister("?", false, Replace("x", attr.Map{}))
}

func TestStripVetoesForeignMatch(t *testing.T) {
	fn := Strip(template.MustCompile("<<?>>"), attr.Of("style", "x"))
	tests := []struct {
		matched string
		want    string
		ok      bool
	}{
		{"<<a>>", "a", true},
		{"<<>>", "", true},
		{"<<a>", "", false},
		{"<>", "", false},
		{"[a]", "", false},
	}
	for _, tc := range tests {
		got, _, ok := fn(tc.matched, tc.matched, 0)
		if ok != tc.ok || got != tc.want {
			t.Errorf("Strip(%q) = %q, %v; want %q, %v", tc.matched, got, ok, tc.want, tc.ok)
		}
	}
}

func TestStripAttributesAreCopied(t *testing.T) {
	attrs := attr.Of("style", "bold")
	fn := Strip(template.MustCompile("*?*"), attrs)
	attrs.Set("style", "changed")

	_, got, _ := fn("*a*", "*a*", 0)
	if v, _ := got.Get("style"); v != "bold" {
		t.Errorf("style = %v, want bold", v)
	}
}

func TestAnnotatedTextBuffer(t *testing.T) {
	p := newStyled(t, "**?**", false, attr.Of("style", "bold"))
	out := p.Process("a **b** c", attr.Of("font", "body"))

	buf := out.Buffer()
	buf.Replace(0, 1, "AAA", attr.Map{})
	if buf.Text() != "AAA b c" {
		t.Fatalf("Text = %q", buf.Text())
	}
	spans := buf.Spans()
	if len(spans) != 1 || spans[0].Text(buf.Text()) != "b" {
		t.Errorf("Spans = %v, want one span over b", spans)
	}
	if v, _ := buf.AttributesAt(4).Get("style"); v != "bold" {
		t.Errorf("style at 4 = %v, want bold", v)
	}
}

func TestAnnotatedTextJSON(t *testing.T) {
	p := newStyled(t, "**?**", false, attr.Of("style", "bold"))
	out := p.Process("**b**", attr.Map{})

	data, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"text":"b","spans":[{"start":0,"length":1,"attributes":{"style":"bold"}}],"runs":[{"start":0,"length":1,"attributes":{"style":"bold"}}]}`
	if string(data) != want {
		t.Errorf("JSON = %s\nwant   %s", data, want)
	}
}

// TestProcessConcurrentRegister runs Process while templates are being
// registered; every scan must see a consistent snapshot.
func TestProcessConcurrentRegister(t *testing.T) {
	p := newStyled(t, "**?**", false, attr.Of("style", "bold"))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if err := p.RegisterStyle(fmt.Sprintf("~%d?~", i), false, attr.Of("n", i)); err != nil {
				t.Errorf("RegisterStyle: %v", err)
				return
			}
		}
	}()
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				out := p.Process("x **y** z", attr.Map{})
				if out.Text != "x y z" || len(out.Spans) != 1 {
					t.Errorf("Process = %q %v", out.Text, out.Spans)
					return
				}
			}
		}()
	}
	wg.Wait()

	if p.Len() != 51 {
		t.Errorf("Len = %d, want 51", p.Len())
	}
}

type logCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *logCapture) entries(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for _, line := range bytes.Split(c.buf.Bytes(), []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		entry := map[string]any{}
		if err := json.Unmarshal(line, &entry); err != nil {
			t.Fatalf("parse log entry %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func message(entry map[string]any) string {
	if v, ok := entry["msg"].(string); ok {
		return v
	}
	v, _ := entry["message"].(string)
	return v
}

func TestProcessLogsStats(t *testing.T) {
	capture := &logCapture{}
	logger := pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.DebugLevel,
		VerboseFields: true,
	})
	p := New(WithLogger(logger))
	if err := p.RegisterStyle("**?**", false, attr.Of("style", "bold")); err != nil {
		t.Fatalf("RegisterStyle: %v", err)
	}
	p.Process("**a** **b", attr.Map{})

	entries := capture.entries(t)
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	if got := message(entries[0]); got != "markspan template registered" {
		t.Errorf("first message = %q", got)
	}
	if entries[0]["template"] != "**?**" {
		t.Errorf("template field = %v", entries[0]["template"])
	}
	stats := entries[1]
	if got := message(stats); got != "markspan processed" {
		t.Errorf("second message = %q", got)
	}
	if stats["completed"] != float64(1) || stats["discarded"] != float64(1) {
		t.Errorf("stats fields = %+v", stats)
	}
}
