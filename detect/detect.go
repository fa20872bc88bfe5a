// Package detect runs pattern detectors over already processed text.
//
// A Pipeline holds an ordered list of detectors. Run makes one full pass per
// detector over the current text: every match is handed to the detector's
// Transform and then to the caller's MatchFunc, and the result replaces the
// match in place. Attributes merge the same way markspan does: the attributes
// present where the match starts, with the new ones on top.
//
// Unlike the markspan scanner, detectors do not interleave. Each pass sees
// the text left by the previous one.
//
// Every detector is compiled before any text is touched. If one fails to
// compile, Run returns a *CompileError and no result.
package detect

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/coregx/markspan"
	"github.com/coregx/markspan/attr"
	"pkt.systems/pslog"
)

// ErrEmptyToken is returned when a token table holds an empty token.
var ErrEmptyToken = errors.New("detect: empty token")

// Detector finds matches in text and pre-processes them.
type Detector interface {
	// Name identifies the detector in errors and logs.
	Name() string

	// Compile prepares a Finder. It is called once per Run.
	Compile() (Finder, error)

	// Transform rewrites a match before the MatchFunc sees it.
	Transform(match string) (string, attr.Map)
}

// Finder reports non-overlapping matches as byte ranges, left to right.
type Finder interface {
	FindAll(text string) [][2]int
}

// MatchFunc decides the final replacement for a match. It receives the text
// and attributes returned by the detector's Transform. Empty attributes give
// a text-only replacement.
type MatchFunc func(text string, attrs attr.Map) (string, attr.Map)

// CompileError reports a detector that could not be compiled.
type CompileError struct {
	Detector string
	Pattern  string
	Err      error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Pattern == "" {
		return fmt.Sprintf("detect: compile %s: %v", e.Detector, e.Err)
	}
	return fmt.Sprintf("detect: compile %s `%s`: %v", e.Detector, e.Pattern, e.Err)
}

// Unwrap returns the underlying error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

type stage struct {
	detector Detector
	match    MatchFunc
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used by Run.
func WithLogger(logger pslog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// Pipeline is an ordered list of detectors. It is safe for concurrent use;
// Run works on a snapshot of the detectors added when it starts.
type Pipeline struct {
	mu     sync.RWMutex
	stages []stage
	logger pslog.Logger
}

// NewPipeline creates an empty pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = pslog.Ctx(context.Background())
	}
	return p
}

// Add appends d. A nil fn keeps whatever d's Transform returns.
func (p *Pipeline) Add(d Detector, fn MatchFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stages = append(p.stages, stage{detector: d, match: fn})
}

// Len returns the number of detectors.
func (p *Pipeline) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.stages)
}

// Run applies every detector to in, in the order they were added.
func (p *Pipeline) Run(in markspan.AnnotatedText) (markspan.AnnotatedText, error) {
	p.mu.RLock()
	stages := append([]stage(nil), p.stages...)
	p.mu.RUnlock()

	finders := make([]Finder, len(stages))
	for i, s := range stages {
		f, err := s.detector.Compile()
		if err != nil {
			var cerr *CompileError
			if !errors.As(err, &cerr) {
				cerr = &CompileError{Detector: s.detector.Name(), Err: err}
			}
			p.logger.Warn("detector compile failed", "detector", cerr.Detector, "pattern", cerr.Pattern, "err", cerr.Err)
			return markspan.AnnotatedText{}, cerr
		}
		finders[i] = f
	}

	buf := in.Buffer()
	for i, s := range stages {
		n := apply(buf, s, finders[i])
		p.logger.Debug("detector pass", "detector", s.detector.Name(), "matches", n)
	}
	return markspan.AnnotatedText{Text: buf.Text(), Spans: buf.Spans(), Runs: buf.Runs()}, nil
}

// apply runs one detector pass over buf and returns the number of matches.
func apply(buf *attr.Buffer, s stage, f Finder) int {
	text := buf.Text()
	matches := f.FindAll(text)
	diff := 0
	for _, m := range matches {
		repl, attrs := s.detector.Transform(text[m[0]:m[1]])
		if s.match != nil {
			repl, attrs = s.match(repl, attrs)
		}
		buf.Replace(m[0]+diff, m[1]+diff, repl, attrs)
		diff += len(repl) - (m[1] - m[0])
	}
	return len(matches)
}
