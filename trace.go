package pdep

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"github.com/zeebo/blake3"
)

// BlockSet is one atomic unit of a trace: a physical block for every input
// stream, the selector mask for the set, and the kernel's swizzled output.
type BlockSet struct {
	Sources  []*big.Int
	Selector *big.Int
	Expected []*big.Int
}

// Trace is a parsed kernel capture.
type Trace struct {
	// Width is the block width in bits, inferred from the hex digit count.
	Width int
	// Streams is the number of input streams (K).
	Streams int
	// Sets holds the block sets in capture order.
	Sets []BlockSet
	// Digest is the hex BLAKE3-256 digest of the raw trace text.
	Digest string
}

// linesPerSet returns the cadence of one block set: K sources, one selector, K results.
func linesPerSet(streams int) int {
	return 2*streams + 1
}

// traceLines splits text into lines, dropping blank lines that surround the
// trace and carriage returns.
func traceLines(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// ParseTrace converts hex-dump text into block sets. Every line has the form
// "<label> = <hex bytes>"; only the part after the last '=' matters and the
// whitespace inside it is ignored. The lines must follow the per-set cadence
// of streams source lines, one selector line and streams result lines,
// repeated sets times with nothing in between.
//
// The block width is four bits per hex digit of the first line, and every
// other line must carry the same number of digits. Failures are reported as a
// *TraceError wrapping ErrMalformedTrace.
func ParseTrace(text string, streams, sets int) (*Trace, error) {
	if streams <= 0 {
		return nil, &TraceError{Msg: fmt.Sprintf("invalid stream count %d", streams)}
	}
	if sets <= 0 {
		return nil, &TraceError{Msg: fmt.Sprintf("invalid block set count %d", sets)}
	}
	lines := traceLines(text)
	per := linesPerSet(streams)
	if want := sets * per; len(lines) != want {
		return nil, &TraceError{Msg: fmt.Sprintf("got %d lines, want %d (%d sets of %d lines)",
			len(lines), want, sets, per)}
	}

	values := make([]*big.Int, len(lines))
	digits := 0
	for i, line := range lines {
		v, n, err := parseLine(line, i+1)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			digits = n
		} else if n != digits {
			return nil, &TraceError{Line: i + 1,
				Msg: fmt.Sprintf("block has %d hex digits, first block has %d", n, digits)}
		}
		values[i] = v
	}

	digest := blake3.Sum256([]byte(text))
	t := &Trace{
		Width:   4 * digits,
		Streams: streams,
		Sets:    make([]BlockSet, sets),
		Digest:  hex.EncodeToString(digest[:]),
	}
	for j := range t.Sets {
		base := values[j*per : (j+1)*per]
		t.Sets[j] = BlockSet{
			Sources:  base[:streams:streams],
			Selector: base[streams],
			Expected: base[streams+1 : per : per],
		}
	}
	return t, nil
}

// parseLine decodes the hex payload of one trace line and returns it along
// with its digit count.
func parseLine(line string, lineNo int) (*big.Int, int, error) {
	eq := strings.LastIndexByte(line, '=')
	if eq < 0 {
		return nil, 0, &TraceError{Line: lineNo, Msg: "missing '='"}
	}
	payload := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, line[eq+1:])
	if payload == "" {
		return nil, 0, &TraceError{Line: lineNo, Msg: "empty hex payload"}
	}
	for _, r := range payload {
		if !isHexDigit(r) {
			return nil, 0, &TraceError{Line: lineNo, Msg: fmt.Sprintf("invalid hex digit %q", r)}
		}
	}
	v, ok := new(big.Int).SetString(payload, 16)
	if !ok {
		return nil, 0, &TraceError{Line: lineNo, Msg: "invalid hex payload"}
	}
	return v, len(payload), nil
}

func isHexDigit(r rune) bool {
	return ('0' <= r && r <= '9') || ('a' <= r && r <= 'f') || ('A' <= r && r <= 'F')
}

// InferSets derives the number of block sets from the line count of text.
func InferSets(text string, streams int) (int, error) {
	if streams <= 0 {
		return 0, &TraceError{Msg: fmt.Sprintf("invalid stream count %d", streams)}
	}
	n := len(traceLines(text))
	per := linesPerSet(streams)
	if n == 0 || n%per != 0 {
		return 0, &TraceError{Msg: fmt.Sprintf("%d lines is not a whole number of %d-line block sets", n, per)}
	}
	return n / per, nil
}

// FormatBlock renders v as the kernel prints blocks: width/8 space-separated
// hex byte pairs, most significant first. Widths that are not a multiple of 8
// get a leading partial group.
func FormatBlock(v *big.Int, width int) string {
	digits := (width + 3) / 4
	s := v.Text(16)
	if len(s) < digits {
		s = strings.Repeat("0", digits-len(s)) + s
	}
	var b strings.Builder
	lead := len(s) % 2
	if lead != 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 2 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s[i : i+2])
	}
	return b.String()
}

// FormatTrace renders t in the kernel's hex-dump layout. ParseTrace accepts
// the result with t.Streams and len(t.Sets).
func FormatTrace(t *Trace) string {
	var b strings.Builder
	writeLine := func(label string, v *big.Int) {
		fmt.Fprintf(&b, "%-41s= %s\n", label, FormatBlock(v, t.Width))
	}
	for _, set := range t.Sets {
		for _, v := range set.Sources {
			writeLine("source block", v)
		}
		writeLine("PDEP_ms_blk", set.Selector)
		for _, v := range set.Expected {
			writeLine("result_swizzle", v)
		}
	}
	return b.String()
}
