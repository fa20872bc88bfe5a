package detect

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/coregex"
	"github.com/coregx/markspan/attr"
)

// Attribute keys set by the built-in detectors.
const (
	LinkAttribute     = "md-link"
	AltTextAttribute  = "md-alt"
	URLAttribute      = "url"
	PhoneAttribute    = "phone"
	UserNameAttribute = "username"
)

// AttachmentChar stands in for an image in the text.
const AttachmentChar = "\ufffc"

// GuardFunc reports whether the match text[start:end] is accepted. Guards
// check the context around a match.
type GuardFunc func(text string, start, end int) bool

// TransformFunc rewrites a match. See Detector.Transform.
type TransformFunc func(match string) (string, attr.Map)

// Regexp is a detector backed by a regular expression.
type Regexp struct {
	name      string
	pattern   string
	guard     GuardFunc
	transform TransformFunc
}

// NewRegexp creates a detector for pattern. A nil transform keeps the match
// unchanged with no attributes.
func NewRegexp(name, pattern string, transform TransformFunc) *Regexp {
	return &Regexp{name: name, pattern: pattern, transform: transform}
}

// WithGuard returns a copy of r that drops matches rejected by guard.
func (r *Regexp) WithGuard(guard GuardFunc) *Regexp {
	c := *r
	c.guard = guard
	return &c
}

// Name returns the detector name.
func (r *Regexp) Name() string {
	return r.name
}

// Pattern returns the regular expression source.
func (r *Regexp) Pattern() string {
	return r.pattern
}

// Compile compiles the pattern.
func (r *Regexp) Compile() (Finder, error) {
	re, err := coregex.Compile(r.pattern)
	if err != nil {
		return nil, &CompileError{Detector: r.name, Pattern: r.pattern, Err: err}
	}
	return &regexpFinder{re: re, guard: r.guard}, nil
}

// Transform applies the detector's transform.
func (r *Regexp) Transform(match string) (string, attr.Map) {
	if r.transform == nil {
		return match, attr.Map{}
	}
	return r.transform(match)
}

type regexpFinder struct {
	re    *coregex.Regex
	guard GuardFunc
}

func (f *regexpFinder) FindAll(text string) [][2]int {
	locs := f.re.FindAllStringIndex(text, -1)
	out := make([][2]int, 0, len(locs))
	for _, loc := range locs {
		if f.guard != nil && !f.guard(text, loc[0], loc[1]) {
			continue
		}
		out = append(out, [2]int{loc[0], loc[1]})
	}
	return out
}

// AfterSpace accepts matches at the start of text or after white space.
func AfterSpace(text string, start, _ int) bool {
	if start == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:start])
	return unicode.IsSpace(r)
}

// NotBetween accepts matches not directly preceded nor followed by any of
// chars.
func NotBetween(chars string) GuardFunc {
	return func(text string, start, end int) bool {
		if start > 0 {
			r, _ := utf8.DecodeLastRuneInString(text[:start])
			if strings.ContainsRune(chars, r) {
				return false
			}
		}
		if end < len(text) {
			r, _ := utf8.DecodeRuneInString(text[end:])
			if strings.ContainsRune(chars, r) {
				return false
			}
		}
		return true
	}
}

// NotAfter accepts matches not directly preceded by any of chars.
func NotAfter(chars string) GuardFunc {
	return func(text string, start, _ int) bool {
		if start == 0 {
			return true
		}
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		return !strings.ContainsRune(chars, r)
	}
}

// Link matches http, https and www URLs.
func Link() *Regexp {
	return NewRegexp("link", `(?i)\b(?:https?://|www\.)[^\s<>]*[^\s<>.,;:!?'")\]]`,
		func(m string) (string, attr.Map) {
			return m, attr.Of(URLAttribute, m)
		}).WithGuard(NotAfter("@/"))
}

// PhoneNumber matches phone numbers such as 867-5309 or +1 (555) 867-5309.
func PhoneNumber() *Regexp {
	return NewRegexp("phone", `(?:\+\d{1,3}[ .-]?)?(?:\(\d{3}\)[ .-]?|\d{3}[ .-])?\d{3}[ .-]\d{4}\b`,
		func(m string) (string, attr.Map) {
			digits := strings.Map(func(r rune) rune {
				if r == '+' || (r >= '0' && r <= '9') {
					return r
				}
				return -1
			}, m)
			return m, attr.Of(PhoneAttribute, digits)
		}).WithGuard(NotAfter("0123456789-+."))
}

// UserName matches social user names such as @gopher. Names are one to
// fifteen characters long.
func UserName() *Regexp {
	return NewRegexp("username", `@[a-zA-Z0-9_]{1,15}\b`,
		func(m string) (string, attr.Map) {
			return m, attr.Of(UserNameAttribute, m[1:])
		}).WithGuard(AfterSpace)
}

// Unicode expands U+XXXX escapes into the character they name. Escapes that
// do not name a valid character are left alone.
func Unicode() *Regexp {
	return NewRegexp("unicode", `(?i)U\+[a-z0-9]{2,6}\b`, expandCodePoint).WithGuard(AfterSpace)
}

func expandCodePoint(m string) (string, attr.Map) {
	n, err := strconv.ParseUint(m[2:], 16, 32)
	if err != nil || !utf8.ValidRune(rune(n)) {
		return m, attr.Map{}
	}
	return string(rune(n)), attr.Map{}
}

// MDLink matches markdown links and keeps their text. The target is stored
// under LinkAttribute.
func MDLink() *Regexp {
	return NewRegexp("md-link", `\[[^\[]+\]\([^)]+\)`, func(m string) (string, attr.Map) {
		text, target, ok := splitLink(m, 1)
		if !ok {
			return m, attr.Map{}
		}
		return text, attr.Of(LinkAttribute, target)
	}).WithGuard(NotAfter("!"))
}

// MDImage matches markdown images and replaces them with AttachmentChar. The
// target and alt text are stored under LinkAttribute and AltTextAttribute.
func MDImage() *Regexp {
	return NewRegexp("md-image", `!\[[^\[]*\]\([^)]+\)`, func(m string) (string, attr.Map) {
		alt, target, ok := splitLink(m, 2)
		if !ok {
			return m, attr.Map{}
		}
		return AttachmentChar, attr.Of(LinkAttribute, target, AltTextAttribute, alt)
	})
}

// splitLink splits "[text](target)" after skipping skip leading bytes.
func splitLink(m string, skip int) (text, target string, ok bool) {
	i := strings.Index(m, "](")
	if i < skip || !strings.HasSuffix(m, ")") {
		return "", "", false
	}
	return m[skip:i], m[i+2 : len(m)-1], true
}

// MDBold matches **bold** and __bold__ and strips the delimiters.
func MDBold() *Regexp {
	return NewRegexp("md-bold", `(?:\*\*|__).+?(?:\*\*|__)`, func(m string) (string, attr.Map) {
		return m[2 : len(m)-2], attr.Map{}
	})
}

// MDEmphasis matches *emphasis* and _emphasis_ and strips the delimiters.
// Doubled delimiters are left for MDBold.
func MDEmphasis() *Regexp {
	return NewRegexp("md-emphasis", `[*_].+?[*_]`, func(m string) (string, attr.Map) {
		return m[1 : len(m)-1], attr.Map{}
	}).WithGuard(NotBetween("*_"))
}

// Builtin returns the built-in detector called name.
func Builtin(name string) (Detector, bool) {
	switch name {
	case "link":
		return Link(), true
	case "phone":
		return PhoneNumber(), true
	case "username":
		return UserName(), true
	case "unicode":
		return Unicode(), true
	case "md-link":
		return MDLink(), true
	case "md-image":
		return MDImage(), true
	case "md-bold":
		return MDBold(), true
	case "md-emphasis":
		return MDEmphasis(), true
	}
	return nil, false
}

// BuiltinNames lists the names accepted by Builtin, in the order they are
// best run.
func BuiltinNames() []string {
	return []string{"md-image", "md-link", "md-bold", "md-emphasis", "link", "phone", "username", "unicode"}
}
