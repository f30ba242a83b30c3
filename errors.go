package pdep

import (
	"errors"
	"fmt"
)

// ErrMalformedTrace is returned when trace text violates the hex-dump format
// or the per-set line cadence.
var ErrMalformedTrace = errors.New("pdep: malformed trace")

// ErrInvalidSwizzleShape is returned when the stream count does not evenly
// divide the block width.
var ErrInvalidSwizzleShape = errors.New("pdep: invalid swizzle shape")

// ErrBitBudgetExceeded is returned when selector masks demand more source bits
// than were ever appended to the logical streams.
var ErrBitBudgetExceeded = errors.New("pdep: bit budget exceeded")

// ErrShapeMismatch is returned when expected and produced sequences differ in length.
var ErrShapeMismatch = errors.New("pdep: shape mismatch")

// ErrMaskTooWide is returned when a selector mask has bits at or above the block width.
var ErrMaskTooWide = errors.New("pdep: mask wider than block")

// ErrInvalidJournal is returned when a consumption journal buffer is truncated or corrupted.
var ErrInvalidJournal = errors.New("pdep: invalid journal")

// ErrSetOutOfRange is returned when a journal is asked about a block set it does not hold.
var ErrSetOutOfRange = errors.New("pdep: block set out of range")

// TraceError locates a parse failure. Line is 1-based and counts the lines
// that remain after surrounding blank lines are trimmed; it is 0 when the
// failure concerns the trace as a whole (for example its line count).
type TraceError struct {
	Line int
	Msg  string
}

func (e *TraceError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%v: %s", ErrMalformedTrace, e.Msg)
	}
	return fmt.Sprintf("%v: line %d: %s", ErrMalformedTrace, e.Line, e.Msg)
}

func (e *TraceError) Unwrap() error { return ErrMalformedTrace }

// BitBudgetError reports the block set whose selector pushed the consumed bit
// count past the bits available in every logical stream.
type BitBudgetError struct {
	Set       int
	Consumed  int
	Available int
}

func (e *BitBudgetError) Error() string {
	return fmt.Sprintf("%v: set %d needs %d bits, only %d appended",
		ErrBitBudgetExceeded, e.Set, e.Consumed, e.Available)
}

func (e *BitBudgetError) Unwrap() error { return ErrBitBudgetExceeded }

// ShapeError reports a length disagreement between the words a block set
// expects and the words produced for it.
type ShapeError struct {
	Set  int
	Want int
	Got  int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%v: set %d: expected %d words, produced %d", ErrShapeMismatch, e.Set, e.Want, e.Got)
}

func (e *ShapeError) Unwrap() error { return ErrShapeMismatch }
