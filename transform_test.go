package markspan

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"golang.org/x/text/transform"

	"github.com/coregx/markspan/attr"
)

func TestTransformerString(t *testing.T) {
	p := newStyled(t, "**?**", false, attr.Of("style", "bold"))

	got, n, err := transform.String(p.Transformer(), "a **b** c")
	if err != nil {
		t.Fatalf("transform.String: %v", err)
	}
	if got != "a b c" || n != len("a **b** c") {
		t.Errorf("transform.String = %q, %d", got, n)
	}
}

// TestTransformerSmallReads feeds a delimiter split across reads and drains
// the output through a tiny destination buffer.
func TestTransformerSmallReads(t *testing.T) {
	p := newStyled(t, "**?**", false, attr.Of("style", "bold"))
	in := strings.Repeat("x **bold** y ", 200)

	r := transform.NewReader(io.LimitReader(strings.NewReader(in), int64(len(in))), p.Transformer())
	var out bytes.Buffer
	buf := make([]byte, 7)
	for {
		n, err := r.Read(buf)
		out.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
	}
	if want := strings.Repeat("x bold y ", 200); out.String() != want {
		t.Errorf("output length %d, want %d", out.Len(), len(want))
	}
}

func TestTransformerReset(t *testing.T) {
	p := newStyled(t, "_?_", false, attr.Of("style", "em"))
	tr := p.Transformer()

	for _, tc := range []struct{ in, want string }{
		{"_a_", "a"},
		{"b _c_", "b c"},
	} {
		tr.Reset()
		got, _, err := transform.String(tr, tc.in)
		if err != nil {
			t.Fatalf("transform.String(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("transform.String(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
