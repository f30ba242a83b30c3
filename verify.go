package pdep

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/go-logr/logr"
)

// OutputOrder selects which expected line a produced swizzle word is compared with.
type OutputOrder int

const (
	// OrderNatural compares produced word j with expected line j. Every
	// capture shipped in testdata uses it.
	OrderNatural OutputOrder = iota

	// OrderReversed compares produced word j with expected line K-1-j. Some
	// early captures listed the result lines in this order; it must be
	// requested explicitly and is never inferred.
	OrderReversed
)

func (o OutputOrder) String() string {
	switch o {
	case OrderNatural:
		return "natural"
	case OrderReversed:
		return "reversed"
	default:
		return "unknown"
	}
}

// ParseOutputOrder parses "natural" or "reversed".
func ParseOutputOrder(s string) (OutputOrder, error) {
	switch strings.ToLower(s) {
	case "natural", "":
		return OrderNatural, nil
	case "reversed":
		return OrderReversed, nil
	}
	return 0, fmt.Errorf("pdep: unknown output order %q", s)
}

// Option configures Verify and VerifyTrace.
type Option func(*options)

type options struct {
	logger logr.Logger
	order  OutputOrder
}

// WithLogger sets the logger verification progress is reported to.
// V(1) carries the run summary and V(2) one entry per block set.
func WithLogger(logger logr.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithOutputOrder sets the expected-output ordering convention.
func WithOutputOrder(order OutputOrder) Option {
	return func(o *options) {
		o.order = order
	}
}

// Mismatch is one produced word that differs from the capture.
type Mismatch struct {
	Set      int
	Stream   int
	Expected *big.Int
	Actual   *big.Int
	// ReadOffset is the logical-stream bit offset the set's selector read from.
	ReadOffset int
}

// VerificationResult is the outcome of comparing a capture with the reference.
// Mismatches lists every differing word in set order, then stream order.
type VerificationResult struct {
	Pass       bool
	Mismatches []Mismatch

	Width        int
	Streams      int
	Sets         int
	ConsumedBits int
	Order        OutputOrder
	Digest       string
	// Journal is the per-set consumption record; save it with
	// MarshalBinary and compare later runs with FirstDifference.
	Journal      *Journal
}

// Verify parses text as a trace of sets block sets over streams streams and
// checks it against the reference. Structural problems are returned as
// errors (see ErrMalformedTrace, ErrInvalidSwizzleShape,
// ErrBitBudgetExceeded, ErrShapeMismatch); value differences are reported in
// the result.
func Verify(text string, streams, sets int, opts ...Option) (*VerificationResult, error) {
	t, err := ParseTrace(text, streams, sets)
	if err != nil {
		return nil, err
	}
	return VerifyTrace(t, opts...)
}

// VerifyTrace checks an already parsed trace against the reference.
func VerifyTrace(t *Trace, opts ...Option) (*VerificationResult, error) {
	o := options{logger: logr.Discard(), order: OrderNatural}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.WithName("pdep")

	a, err := NewAssembler(t.Width, t.Streams)
	if err != nil {
		return nil, err
	}
	produced := make([]SwizzleGroup, 0, len(t.Sets))
	offsets := make([]int, 0, len(t.Sets))
	for j, set := range t.Sets {
		offset := a.Consumed()
		g, err := a.Step(set)
		if err != nil {
			return nil, err
		}
		logger.V(2).Info("block set consumed", "set", j, "readOffset", offset,
			"selected", a.Consumed()-offset)
		produced = append(produced, g)
		offsets = append(offsets, offset)
	}

	res := &VerificationResult{
		Width:        t.Width,
		Streams:      t.Streams,
		Sets:         len(t.Sets),
		ConsumedBits: a.Consumed(),
		Order:        o.order,
		Digest:       t.Digest,
		Journal:      a.Journal(),
	}
	for j, set := range t.Sets {
		expected := orderExpected(set.Expected, o.order)
		if len(expected) != len(produced[j]) {
			return nil, &ShapeError{Set: j, Want: len(expected), Got: len(produced[j])}
		}
		for i, want := range expected {
			if want == nil {
				return nil, fmt.Errorf("%w: set %d expected word %d is missing", ErrMalformedTrace, j, i)
			}
			got := produced[j][i]
			if want.Cmp(got) == 0 {
				continue
			}
			res.Mismatches = append(res.Mismatches, Mismatch{
				Set:        j,
				Stream:     i,
				Expected:   want,
				Actual:     got,
				ReadOffset: offsets[j],
			})
			logger.Info("swizzle word mismatch", "set", j, "stream", i, "readOffset", offsets[j],
				"expected", FormatBlock(want, t.Width), "actual", FormatBlock(got, t.Width))
		}
	}
	res.Pass = len(res.Mismatches) == 0

	logger.V(1).Info("verification finished", "pass", res.Pass, "mismatches", len(res.Mismatches),
		"width", res.Width, "streams", res.Streams, "sets", res.Sets,
		"consumedBits", res.ConsumedBits, "order", o.order.String(),
		"dispatch", CurrentLevel().String(), "digest", res.Digest)
	return res, nil
}

// orderExpected returns the expected words in comparison order.
func orderExpected(expected []*big.Int, order OutputOrder) []*big.Int {
	if order != OrderReversed {
		return expected
	}
	out := make([]*big.Int, len(expected))
	for i, v := range expected {
		out[len(expected)-1-i] = v
	}
	return out
}
