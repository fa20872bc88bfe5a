package markspan

import (
	"golang.org/x/text/transform"

	"github.com/coregx/markspan/attr"
)

// Transformer returns a transform.Transformer writing the processed text of
// its whole input. Matching needs the complete text, so input is buffered
// until EOF before anything is written.
//
// Example:
//
//	r := transform.NewReader(os.Stdin, p.Transformer())
//	io.Copy(os.Stdout, r)
func (p *Parser) Transformer() transform.Transformer {
	return &textTransformer{p: p}
}

type textTransformer struct {
	p    *Parser
	in   []byte
	out  []byte
	done bool
}

func (t *textTransformer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	if !t.done {
		t.in = append(t.in, src...)
		nSrc = len(src)
		if !atEOF {
			return 0, nSrc, nil
		}
		t.out = []byte(t.p.Process(string(t.in), attr.Map{}).Text)
		t.in = nil
		t.done = true
	}
	nDst = copy(dst, t.out)
	t.out = t.out[nDst:]
	if len(t.out) > 0 {
		return nDst, nSrc, transform.ErrShortDst
	}
	return nDst, nSrc, nil
}

func (t *textTransformer) Reset() {
	*t = textTransformer{p: t.p}
}
