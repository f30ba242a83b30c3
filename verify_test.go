package pdep

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyFixtures(t *testing.T) {
	tests := []struct {
		file       string
		sets       int
		consumed   int
		firstCount uint32
		lastOffset int
	}{
		{"wctest.txt", 1, 49, 49, 0},
		{"pdeptest.txt", 1, 1, 1, 0},
		{"unicodetest_sparse.txt", 19, 256, 9, 244},
		{"unicodetest_dense.txt", 19, 4133, 224, 3909},
	}
	for _, tc := range tests {
		t.Run(tc.file, func(t *testing.T) {
			assert := assert.New(t)
			res, err := Verify(readFixture(t, tc.file), 4, tc.sets)
			require.NoError(t, err)

			assert.True(res.Pass)
			assert.Empty(res.Mismatches)
			assert.Equal(256, res.Width)
			assert.Equal(4, res.Streams)
			assert.Equal(tc.sets, res.Sets)
			assert.Equal(tc.consumed, res.ConsumedBits)
			assert.Equal(OrderNatural, res.Order)
			assert.Len(res.Digest, 64)

			require.Equal(t, tc.sets, res.Journal.Len())
			first, err := res.Journal.Count(0)
			assert.NoError(err)
			assert.Equal(tc.firstCount, first)
			last, err := res.Journal.Offset(tc.sets - 1)
			assert.NoError(err)
			assert.Equal(tc.lastOffset, last)
			assert.Equal(tc.consumed, res.Journal.Total())
		})
	}
}

func TestVerifyDenseReadsSpanBlocks(t *testing.T) {
	assert := assert.New(t)
	res, err := Verify(readFixture(t, "unicodetest_dense.txt"), 4, 19)
	require.NoError(t, err)
	require.True(t, res.Pass)

	// A set's read spans a physical block boundary when its first and last
	// consumed bits land in different appended blocks.
	var spanning []int
	for j := range res.Sets {
		off, err := res.Journal.Offset(j)
		require.NoError(t, err)
		n, err := res.Journal.Count(j)
		require.NoError(t, err)
		if n > 0 && off/res.Width != (off+int(n)-1)/res.Width {
			spanning = append(spanning, j)
		}
	}
	assert.Equal([]int{1, 2, 3, 4, 5, 6, 8, 9, 10, 11, 12, 14, 15, 16, 17, 18}, spanning)
}

func TestVerifyPdeptestSingleBit(t *testing.T) {
	assert := assert.New(t)
	tr, err := ParseTrace(readFixture(t, "pdeptest.txt"), 4, 1)
	require.NoError(t, err)
	groups, err := AssembleAndConsume(tr.Sets, tr.Width, tr.Streams)
	require.NoError(t, err)

	want := new(big.Int).SetBit(new(big.Int), 28, 1)
	want.SetBit(want, 192+28, 1)
	assert.Equal(0, want.Cmp(groups[0][0]))
	for _, w := range groups[0][1:] {
		assert.Equal(0, w.Sign())
	}
}

func TestVerifyReportsEveryMismatch(t *testing.T) {
	assert := assert.New(t)
	tr, err := ParseTrace(readFixture(t, "unicodetest_sparse.txt"), 4, 19)
	require.NoError(t, err)

	flip := func(v *big.Int, bit int) *big.Int {
		return new(big.Int).SetBit(v, bit, v.Bit(bit)^1)
	}
	good31 := tr.Sets[3].Expected[1]
	tr.Sets[3].Expected[1] = flip(good31, 7)
	tr.Sets[10].Expected[0] = flip(tr.Sets[10].Expected[0], 255)
	tr.Sets[10].Expected[3] = flip(tr.Sets[10].Expected[3], 0)

	res, err := VerifyTrace(tr)
	require.NoError(t, err)
	assert.False(res.Pass)
	require.Len(t, res.Mismatches, 3)

	m := res.Mismatches[0]
	assert.Equal(3, m.Set)
	assert.Equal(1, m.Stream)
	assert.Equal(33, m.ReadOffset)
	assert.Equal(0, good31.Cmp(m.Actual))
	assert.Equal(0, tr.Sets[3].Expected[1].Cmp(m.Expected))

	assert.Equal([2]int{10, 0}, [2]int{res.Mismatches[1].Set, res.Mismatches[1].Stream})
	assert.Equal([2]int{10, 3}, [2]int{res.Mismatches[2].Set, res.Mismatches[2].Stream})
	assert.Equal(130, res.Mismatches[1].ReadOffset)
	assert.Equal(130, res.Mismatches[2].ReadOffset)

	// Value differences never stop the run.
	assert.Equal(19, res.Sets)
	assert.Equal(256, res.ConsumedBits)
}

func TestVerifyOutputOrder(t *testing.T) {
	assert := assert.New(t)
	text := readFixture(t, "wctest.txt")

	res, err := Verify(text, 4, 1, WithOutputOrder(OrderReversed))
	require.NoError(t, err)
	assert.False(res.Pass, "natural captures must not pass under the reversed convention")
	assert.Len(res.Mismatches, 4)
	assert.Equal(OrderReversed, res.Order)

	lines := strings.Split(strings.TrimSpace(text), "\n")
	reversed := append(append([]string(nil), lines[:5]...), lines[8], lines[7], lines[6], lines[5])
	res, err = Verify(strings.Join(reversed, "\n"), 4, 1, WithOutputOrder(OrderReversed))
	require.NoError(t, err)
	assert.True(res.Pass)

	res, err = Verify(strings.Join(reversed, "\n"), 4, 1)
	require.NoError(t, err)
	assert.False(res.Pass, "the reversed convention is never inferred")
}

func TestParseOutputOrder(t *testing.T) {
	assert := assert.New(t)
	for in, want := range map[string]OutputOrder{"": OrderNatural, "natural": OrderNatural, "Reversed": OrderReversed} {
		got, err := ParseOutputOrder(in)
		assert.NoError(err)
		assert.Equal(want, got, in)
	}
	_, err := ParseOutputOrder("backwards")
	assert.Error(err)

	assert.Equal("natural", OrderNatural.String())
	assert.Equal("reversed", OrderReversed.String())
	assert.Equal("unknown", OutputOrder(7).String())
}

func TestVerifyErrors(t *testing.T) {
	assert := assert.New(t)

	_, err := Verify("not a trace", 4, 1)
	assert.ErrorIs(err, ErrMalformedTrace)

	threeStreams := strings.Join([]string{
		"source block = 01", "source block = 02", "source block = 03",
		"PDEP_ms_blk = 01",
		"result_swizzle = 00", "result_swizzle = 00", "result_swizzle = 00",
	}, "\n")
	_, err = Verify(threeStreams, 3, 1)
	assert.ErrorIs(err, ErrInvalidSwizzleShape)

	tr, err := ParseTrace(readFixture(t, "wctest.txt"), 4, 1)
	require.NoError(t, err)
	tr.Sets[0].Expected = tr.Sets[0].Expected[:3]
	_, err = VerifyTrace(tr)
	assert.ErrorIs(err, ErrShapeMismatch)
	var se *ShapeError
	if assert.True(errors.As(err, &se)) {
		assert.Equal(ShapeError{Set: 0, Want: 3, Got: 4}, *se)
	}

	tr, err = ParseTrace(readFixture(t, "unicodetest_sparse.txt"), 4, 19)
	require.NoError(t, err)
	tr.Sets[4].Expected[2] = nil
	assert.NotPanics(func() {
		_, err = VerifyTrace(tr)
	})
	assert.ErrorIs(err, ErrMalformedTrace)
	assert.Contains(err.Error(), "set 4 expected word 2")
}

func TestVerifyLogging(t *testing.T) {
	assert := assert.New(t)
	var lines []string
	logger := funcr.New(func(prefix, args string) {
		lines = append(lines, prefix+" "+args)
	}, funcr.Options{Verbosity: 2})

	tr, err := ParseTrace(readFixture(t, "unicodetest_sparse.txt"), 4, 19)
	require.NoError(t, err)
	tr.Sets[5].Expected[2] = new(big.Int).Add(tr.Sets[5].Expected[2], big.NewInt(1))

	res, err := VerifyTrace(tr, WithLogger(logger))
	require.NoError(t, err)
	require.Len(t, res.Mismatches, 1)

	var perSet, mismatches, summaries int
	for _, l := range lines {
		assert.Contains(l, "pdep")
		switch {
		case strings.Contains(l, "block set consumed"):
			perSet++
		case strings.Contains(l, "swizzle word mismatch"):
			mismatches++
			assert.Contains(l, `"set"=5`)
			assert.Contains(l, `"stream"=2`)
		case strings.Contains(l, "verification finished"):
			summaries++
			assert.Contains(l, `"pass"=false`)
			assert.Contains(l, `"consumedBits"=256`)
		}
	}
	assert.Equal(19, perSet)
	assert.Equal(1, mismatches)
	assert.Equal(1, summaries)
}

func TestVerifyLoggingQuietByDefault(t *testing.T) {
	var lines []string
	logger := funcr.New(func(prefix, args string) {
		lines = append(lines, args)
	}, funcr.Options{})

	_, err := Verify(readFixture(t, "wctest.txt"), 4, 1, WithLogger(logger))
	require.NoError(t, err)
	assert.Empty(t, lines, "a passing run logs nothing at V(0)")
}

func ExampleVerify() {
	raw, err := os.ReadFile("testdata/wctest.txt")
	if err != nil {
		panic(err)
	}
	res, err := Verify(string(raw), 4, 1)
	if err != nil {
		panic(err)
	}
	fmt.Println(res.Pass, res.ConsumedBits, len(res.Mismatches))
	// Output: true 49 0
}
