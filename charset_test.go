package retrace

import (
	"testing"
	"unicode"

	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"
)

func TestCharSet(t *testing.T) {
	t.Run("union", func(t *testing.T) {
		cases := [][3][]charRange{
			{nil, nil, nil},
			{nil, {{1, 2}}, {{1, 2}}},
			{{{1, 2}}, nil, {{1, 2}}},
			{{{5, 10}}, {{5, 10}}, {{5, 10}}},
			{{{5, 10}}, {{6, 9}}, {{5, 10}}},
			{{{5, 10}}, {{6, 11}}, {{5, 11}}},
			{{{5, 10}}, {{4, 9}}, {{4, 10}}},
			{{{5, 10}}, {{4, 11}}, {{4, 11}}},
			{{}, {{1, 2}, {4, 4}}, {{1, 2}, {4, 4}}},
			{{{1, 2}, {4, 4}}, {}, {{1, 2}, {4, 4}}},
			{{{5, 10}}, {{10, 15}}, {{5, 15}}},
			{{{5, 10}}, {{11, 15}}, {{5, 15}}},
			{
				{{1, 3}, {10, 12}, {17, 17}},
				{{2, 4}, {13, 15}, {20, 20}},
				{{1, 4}, {10, 15}, {17, 17}, {20, 20}},
			},
			{{{10, 10}}, {{11, 11}}, {{10, 11}}},
			{{{5, 10}, {13, 15}}, {{11, 11}}, {{5, 11}, {13, 15}}},
			{{{5, 10}, {13, 15}}, {{12, 12}}, {{5, 10}, {12, 15}}},
			{{{5, 10}, {13, 15}}, {{11, 13}}, {{5, 15}}},
			{{{5, 10}, {12, 15}}, {{11, 11}}, {{5, 15}}},
		}
		for _, c := range cases {
			t.Run("", func(t *testing.T) {
				a := charSet{chars: c[0]}
				b := charSet{chars: c[1]}
				a.union(&b)
				assert.DeepEqual(t, c[2], a.chars, cmp.AllowUnexported(charRange{}))
			})
		}
	})

	t.Run("union does not alias", func(t *testing.T) {
		other := &charSet{chars: []charRange{{1, 2}}}
		s := &charSet{}
		s.union(other)
		s.unionChar(3)
		assert.DeepEqual(t, []charRange{{1, 2}}, other.chars, cmp.AllowUnexported(charRange{}))
		assert.DeepEqual(t, []charRange{{1, 3}}, s.chars, cmp.AllowUnexported(charRange{}))
	})

	t.Run("unionChar", func(t *testing.T) {
		cases := []struct {
			base     []charRange
			char     rune
			expected []charRange
		}{
			{nil, 'a', []charRange{{0x61, 0x61}}},
			{[]charRange{}, 'a', []charRange{{0x61, 0x61}}},
			{[]charRange{{5, 10}, {15, 20}}, 7, []charRange{{5, 10}, {15, 20}}},
			{[]charRange{{5, 10}, {15, 20}}, 12, []charRange{{5, 10}, {12, 12}, {15, 20}}},
			{[]charRange{{5, 10}, {15, 20}}, 11, []charRange{{5, 11}, {15, 20}}},
			{[]charRange{{5, 10}, {15, 20}}, 14, []charRange{{5, 10}, {14, 20}}},
			{[]charRange{{5, 10}, {12, 20}}, 11, []charRange{{5, 20}}},
			{[]charRange{{5, 10}, {15, 20}}, 25, []charRange{{5, 10}, {15, 20}, {25, 25}}},
			{[]charRange{{5, 10}, {15, 20}}, 21, []charRange{{5, 10}, {15, 21}}},
			{[]charRange{{5, 5}}, 1, []charRange{{1, 1}, {5, 5}}},
			{[]charRange{{5, 5}}, 4, []charRange{{4, 5}}},
			{[]charRange{{5, 5}}, 6, []charRange{{5, 6}}},
		}
		for _, c := range cases {
			t.Run("", func(t *testing.T) {
				set := &charSet{chars: c.base}
				set.unionChar(c.char)
				assert.DeepEqual(t, c.expected, set.chars, cmp.AllowUnexported(charRange{}))
			})
		}
	})

	t.Run("contains", func(t *testing.T) {
		assert.Equal(t, (&charSet{chars: []charRange{{1, 2}}}).containsRune(3), false)
		assert.Equal(t, (&charSet{chars: []charRange{{1, 2}}}).containsRune(1), true)
		assert.Equal(t, (&charSet{chars: []charRange{{1, 2}, {4, 4}, {6, 7}}}).containsRune(4), true)
		assert.Equal(t, (&charSet{chars: []charRange{{1, 2}, {4, 4}, {6, 7}}}).containsRune(6), true)
		assert.Equal(t, (&charSet{chars: []charRange{{1, 2}, {4, 4}, {6, 7}}}).containsRune(5), false)
		assert.Equal(t, (&charSet{chars: []charRange{{1, 2}, {4, 4}, {6, 7}, {9, 10}}}).containsRune(10), true)
		assert.Equal(t, (&charSet{}).containsRune(0), false)
	})

	t.Run("containsFold", func(t *testing.T) {
		lower := &charSet{chars: []charRange{{'a', 'z'}}}
		assert.Equal(t, lower.containsFold('Q'), true)
		assert.Equal(t, lower.containsFold('q'), true)
		assert.Equal(t, lower.containsFold('1'), false)
		// K folds to the Kelvin sign and back
		kelvin := &charSet{chars: []charRange{{'K', 'K'}}}
		assert.Equal(t, kelvin.containsFold('k'), true)
		assert.Equal(t, kelvin.containsFold('K'), true)
	})

	t.Run("complement", func(t *testing.T) {
		cases := [][2][]charRange{
			{nil, {{0, unicode.MaxRune}}},
			{{}, {{0, unicode.MaxRune}}},
			{{{5, 5}}, {{0, 4}, {6, unicode.MaxRune}}},
			{{{3, 5}, {8, 9}}, {{0, 2}, {6, 7}, {10, unicode.MaxRune}}},
			{{{0, 5}, {8, 9}, {12, 15}}, {{6, 7}, {10, 11}, {16, unicode.MaxRune}}},
			{{{0, 5}, {8, 9}, {12, unicode.MaxRune}}, {{6, 7}, {10, 11}}},
			{{{3, 5}, {8, 9}, {12, unicode.MaxRune}}, {{0, 2}, {6, 7}, {10, 11}}},
		}
		for _, c := range cases {
			t.Run("", func(t *testing.T) {
				s := &charSet{chars: c[0]}
				s.complement()
				assert.DeepEqual(t, c[1], s.chars, cmp.AllowUnexported(charRange{}))
			})
		}
	})

	t.Run("predefined sets are not mutated by class escapes", func(t *testing.T) {
		set, negated, ok := classEscape('W')
		assert.Equal(t, ok, true)
		assert.Equal(t, negated, true)
		set.complement()
		assert.Equal(t, wordCharSet.containsRune('a'), true)
		assert.Equal(t, set.containsRune('a'), false)
	})
}

func TestFold(t *testing.T) {
	assert.Equal(t, foldEqual('a', 'A'), true)
	assert.Equal(t, foldEqual('A', 'a'), true)
	assert.Equal(t, foldEqual('a', 'b'), false)
	assert.Equal(t, foldEqual('ω', 'Ω'), true)
	assert.Equal(t, foldEqual('1', '1'), true)

	assert.Equal(t, isWordChar('_'), true)
	assert.Equal(t, isWordChar('0'), true)
	assert.Equal(t, isWordChar('-'), false)
	assert.Equal(t, isWordChar('é'), false)
}
