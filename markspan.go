// Package markspan converts text with lightweight inline markup into styled
// text: the rewritten text plus spans telling a renderer which ranges carry
// which attributes.
//
// Markup is described by delimiter templates. A template is a run of literal
// characters with at most one gap marker '?', which stands for any run of
// text between an opening and a closing literal:
//
//	p := markspan.New()
//	p.MustRegister("**?**", false, markspan.Strip(template.MustCompile("**?**"), attr.Of("style", "bold")))
//	out := p.Process("x **bold** y", attr.Map{})
//	fmt.Println(out.Text)  // x bold y
//	fmt.Println(out.Spans) // [span[2:6]{style: bold}]
//
// All registered templates are matched in a single left-to-right pass; see
// package scan for the matching rules. Offsets are UTF-8 byte offsets.
//
// A Parser is safe for concurrent use. Process works on a snapshot of the
// templates registered when it starts.
package markspan

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/coregx/markspan/attr"
	"github.com/coregx/markspan/scan"
	"github.com/coregx/markspan/template"
	"pkt.systems/pslog"
)

// TransformFunc turns a completed match into its replacement text and
// attributes. See scan.TransformFunc.
type TransformFunc = scan.TransformFunc

// AnnotatedText is the result of processing.
type AnnotatedText struct {
	// Text is the rewritten text.
	Text string `json:"text" yaml:"text"`

	// Spans lists one span per styled match in completion order. Each span's
	// attributes are the base attributes merged with the match's own.
	Spans []attr.Span `json:"spans" yaml:"spans"`

	// Runs covers Text left to right with the effective attributes of every
	// range, unstyled text included.
	Runs []attr.Run `json:"runs" yaml:"runs"`
}

// Buffer returns an attributed buffer holding t, for further rewriting.
func (t AnnotatedText) Buffer() *attr.Buffer {
	return attr.FromRuns(t.Text, t.Runs, t.Spans)
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for debug events.
func WithLogger(logger pslog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// Parser holds an ordered list of templates and their transforms.
type Parser struct {
	mu      sync.RWMutex
	rules   []scan.Rule
	scanner *scan.Scanner
	logger  pslog.Logger
}

// New creates a Parser with no templates.
func New(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = pslog.Ctx(context.Background())
	}
	p.scanner = scan.New(nil)
	return p
}

// Register compiles template and appends it with fn. Registration order
// matters: when several templates start with the same character the one
// registered first spawns first.
func (p *Parser) Register(tmpl string, recursive bool, fn TransformFunc) error {
	t, err := template.Compile(tmpl)
	if err != nil {
		return fmt.Errorf("markspan: register %q: %w", tmpl, err)
	}
	return p.RegisterTemplate(t.WithRecursive(recursive), fn)
}

// RegisterTemplate appends an already compiled template with fn.
func (p *Parser) RegisterTemplate(t *template.Template, fn TransformFunc) error {
	if t == nil {
		return fmt.Errorf("markspan: register: nil template")
	}
	if fn == nil {
		return fmt.Errorf("markspan: register %q: nil transform", t.Source())
	}

	p.mu.Lock()
	p.rules = append(p.rules, scan.Rule{Template: t, Transform: fn})
	p.scanner = scan.New(p.rules)
	n := len(p.rules)
	p.mu.Unlock()

	p.logger.Debug("markspan template registered", "template", t.Source(), "recursive", t.Recursive(), "templates", n)
	return nil
}

// MustRegister is like Register but panics on error.
func (p *Parser) MustRegister(tmpl string, recursive bool, fn TransformFunc) {
	if err := p.Register(tmpl, recursive, fn); err != nil {
		panic(err)
	}
}

// RegisterStyle registers tmpl with a transform that strips its delimiters
// and styles the inner text with attrs.
func (p *Parser) RegisterStyle(tmpl string, recursive bool, attrs attr.Map) error {
	t, err := template.Compile(tmpl)
	if err != nil {
		return fmt.Errorf("markspan: register %q: %w", tmpl, err)
	}
	return p.RegisterTemplate(t.WithRecursive(recursive), Strip(t, attrs))
}

// Len returns the number of registered templates.
func (p *Parser) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rules)
}

// Process scans text once with every registered template and folds the
// resulting spans over base. It never fails.
func (p *Parser) Process(text string, base attr.Map) AnnotatedText {
	p.mu.RLock()
	sc := p.scanner
	p.mu.RUnlock()

	res := sc.Scan(text)
	buf := attr.NewBuffer(res.Text, base)
	spans := make([]attr.Span, 0, len(res.Spans))
	for _, s := range res.Spans {
		spans = append(spans, buf.Apply(s))
	}

	p.logger.Debug("markspan processed",
		"templates", sc.Rules(),
		"in_bytes", len(text),
		"out_bytes", len(res.Text),
		"spans", len(spans),
		"spawned", res.Stats.Spawned,
		"completed", res.Stats.Completed,
		"vetoed", res.Stats.Vetoed,
		"failed", res.Stats.Failed,
		"discarded", res.Stats.Discarded,
		"orphaned", res.Stats.Orphaned,
	)
	return AnnotatedText{Text: res.Text, Spans: spans, Runs: buf.Runs()}
}

// Strip returns a transform that removes t's opening and closing literals
// and styles what is left with attrs. A match that no longer starts and ends
// with the literals is vetoed.
func Strip(t *template.Template, attrs attr.Map) TransformFunc {
	opening, closing := t.Open(), t.Close()
	attrs = attrs.Clone()
	return func(matched, _ string, _ int) (string, attr.Map, bool) {
		if len(matched) < len(opening)+len(closing) ||
			!strings.HasPrefix(matched, opening) || !strings.HasSuffix(matched, closing) {
			return "", attr.Map{}, false
		}
		return matched[len(opening) : len(matched)-len(closing)], attrs, true
	}
}

// Replace returns a transform that substitutes every match with repl and
// styles it with attrs. Empty attrs give a text-only substitution.
func Replace(repl string, attrs attr.Map) TransformFunc {
	attrs = attrs.Clone()
	return func(string, string, int) (string, attr.Map, bool) {
		return repl, attrs, true
	}
}
