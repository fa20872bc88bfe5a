package config

import (
	"fmt"

	"github.com/coregx/markspan"
	"github.com/coregx/markspan/attr"
	"github.com/coregx/markspan/detect"
	"github.com/coregx/markspan/template"
)

// NewParser registers every rule of cfg, in order, on a new parser.
func (c Config) NewParser(opts ...markspan.Option) (*markspan.Parser, error) {
	p := markspan.New(opts...)
	for i, r := range c.Rules {
		t, err := template.Compile(r.Template)
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		t = t.WithRecursive(r.Recursive)
		attrs := attr.FromMap(r.Attributes)
		fn := markspan.Strip(t, attrs)
		if r.Replace != nil {
			fn = markspan.Replace(*r.Replace, attrs)
		}
		if err := p.RegisterTemplate(t, fn); err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
	}
	return p, nil
}

// NewPipeline adds the configured detectors, then the token table when it is
// not empty.
func (c Config) NewPipeline(opts ...detect.Option) (*detect.Pipeline, error) {
	p := detect.NewPipeline(opts...)
	for i, d := range c.Detectors {
		det, ok := detect.Builtin(d.Name)
		if !ok {
			return nil, fmt.Errorf("detectors[%d]: unknown detector %q", i, d.Name)
		}
		p.Add(det, withAttributes(attr.FromMap(d.Attributes)))
	}
	if len(c.Tokens.Table) > 0 {
		table := make(map[string]string, len(c.Tokens.Table))
		for _, t := range c.Tokens.Table {
			table[t.Token] = t.Replace
		}
		p.Add(detect.NewTokens("tokens", table, attr.FromMap(c.Tokens.Attributes)), nil)
	}
	return p, nil
}

// Base returns the base attributes for processing.
func (c Config) Base() attr.Map {
	return attr.FromMap(c.Output.Base)
}

func withAttributes(extra attr.Map) detect.MatchFunc {
	if extra.IsEmpty() {
		return nil
	}
	return func(text string, attrs attr.Map) (string, attr.Map) {
		return text, attrs.Merge(extra)
	}
}
