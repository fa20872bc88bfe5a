package markspan_test

import (
	"fmt"

	"github.com/coregx/markspan"
	"github.com/coregx/markspan/attr"
	"github.com/coregx/markspan/template"
)

// ExampleParser_Process demonstrates stripping bold delimiters.
func ExampleParser_Process() {
	p := markspan.New()
	p.MustRegister("**?**", false, markspan.Strip(template.MustCompile("**?**"), attr.Of("style", "bold")))

	out := p.Process("x **bold** y", attr.Map{})
	fmt.Println(out.Text)
	fmt.Println(out.Spans)
	// Output:
	// x bold y
	// [span[2:6]{style: bold}]
}

// ExampleParser_RegisterStyle demonstrates a recursive template.
func ExampleParser_RegisterStyle() {
	p := markspan.New()
	if err := p.RegisterStyle("*?*", true, attr.Of("style", "em")); err != nil {
		panic(err)
	}

	out := p.Process("*a*b*c*", attr.Map{})
	fmt.Println(out.Text)
	for _, s := range out.Spans {
		fmt.Printf("%q %v\n", s.Text(out.Text), s.Attributes)
	}
	// Output:
	// abc
	// "a" {style: em}
	// "c" {style: em}
}

// ExampleReplace demonstrates a text-only substitution.
func ExampleReplace() {
	p := markspan.New()
	p.MustRegister("->", false, markspan.Replace("→", attr.Map{}))

	out := p.Process("a -> b", attr.Map{})
	fmt.Println(out.Text, len(out.Spans))
	// Output: a → b 0
}

// ExampleParser_Process_base demonstrates merging with base attributes.
func ExampleParser_Process_base() {
	p := markspan.New()
	if err := p.RegisterStyle("`?`", false, attr.Of("font", "mono")); err != nil {
		panic(err)
	}

	out := p.Process("run `ls` now", attr.Of("font", "sans", "size", 12))
	for _, r := range out.Runs {
		fmt.Printf("%q %v\n", out.Text[r.Start:r.End()], r.Attributes)
	}
	// Output:
	// "run " {font: sans, size: 12}
	// "ls" {font: mono, size: 12}
	// " now" {font: sans, size: 12}
}
