package retrace

import (
	"slices"
	"unicode"
)

type charRange struct {
	lo rune
	hi rune
}

type charSet struct {
	// Non-overlapping ranges sorted in ascending order
	chars []charRange
}

var digitCharSet = &charSet{
	chars: []charRange{
		{lo: '0', hi: '9'},
	},
}
var wordCharSet = &charSet{
	chars: []charRange{
		{lo: '0', hi: '9'},
		{lo: 'A', hi: 'Z'},
		{lo: '_', hi: '_'},
		{lo: 'a', hi: 'z'},
	},
}
var spaceCharSet = &charSet{
	chars: []charRange{
		{lo: '\t', hi: '\r'},
		{lo: ' ', hi: ' '},
	},
}

func isWordChar(r rune) bool {
	return ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || r == '_'
}

func (s *charSet) clone() *charSet {
	return &charSet{chars: slices.Clone(s.chars)}
}

func (s *charSet) union(other *charSet) {
	if s.chars == nil {
		s.chars = slices.Clone(other.chars)
		return
	}
	if other.chars == nil {
		return
	}
	chars := make([]charRange, 0, len(s.chars)+len(other.chars))

	i := 0
	j := 0
	for {
		var next charRange
		if i < len(s.chars) && (j >= len(other.chars) || s.chars[i].lo < other.chars[j].lo) {
			next = s.chars[i]
			i++
		} else if j < len(other.chars) {
			next = other.chars[j]
			j++
		} else {
			break
		}
		if len(chars) == 0 {
			chars = append(chars, next)
			continue
		}
		r := &chars[len(chars)-1]
		if next.hi <= r.hi {
			continue
		}
		if next.lo <= r.hi+1 {
			r.hi = next.hi
			continue
		}
		chars = append(chars, next)
	}
	s.chars = chars
}

func (s *charSet) unionRange(lo, hi rune) {
	s.union(&charSet{chars: []charRange{{lo: lo, hi: hi}}})
}

func (s *charSet) unionChar(r rune) {
	if len(s.chars) == 0 {
		s.chars = []charRange{{lo: r, hi: r}}
		return
	}
	if r == s.chars[0].lo-1 {
		s.chars[0].lo--
		return
	}
	if r < s.chars[0].lo {
		s.chars = slices.Insert(s.chars, 0, charRange{lo: r, hi: r})
		return
	}
	for i := 0; i < len(s.chars); i++ {
		range_ := &s.chars[i]
		if range_.lo <= r && r <= range_.hi {
			return
		}
		if i < len(s.chars)-1 && range_.hi < r && r < s.chars[i+1].lo {
			if range_.hi+2 == s.chars[i+1].lo {
				range_.hi = s.chars[i+1].hi
				s.chars = slices.Delete(s.chars, i+1, i+2)
			} else if range_.hi+1 == r {
				range_.hi++
			} else if s.chars[i+1].lo-1 == r {
				s.chars[i+1].lo--
			} else {
				s.chars = slices.Insert(s.chars, i+1, charRange{lo: r, hi: r})
			}
			return
		}
	}
	last := &s.chars[len(s.chars)-1]
	if last.hi+1 == r {
		last.hi++
		return
	}
	s.chars = append(s.chars, charRange{lo: r, hi: r})
}

func (s *charSet) complement() {
	if len(s.chars) == 0 {
		s.chars = []charRange{{lo: 0, hi: unicode.MaxRune}}
		return
	}

	if s.chars[0].lo == 0 {
		for i := 0; i < len(s.chars)-1; i++ {
			s.chars[i].lo = s.chars[i].hi + 1
			s.chars[i].hi = s.chars[i+1].lo - 1
		}
		lastRange := &s.chars[len(s.chars)-1]
		if lastRange.hi < unicode.MaxRune {
			lastRange.lo = lastRange.hi + 1
			lastRange.hi = unicode.MaxRune
		} else {
			s.chars = s.chars[:len(s.chars)-1]
		}
	} else {
		lastHi := s.chars[len(s.chars)-1].hi
		for i := len(s.chars) - 1; i >= 1; i-- {
			s.chars[i].hi = s.chars[i].lo - 1
			s.chars[i].lo = s.chars[i-1].hi + 1
		}
		s.chars[0].hi = s.chars[0].lo - 1
		s.chars[0].lo = 0
		if lastHi < unicode.MaxRune {
			s.chars = append(s.chars, charRange{lo: lastHi + 1, hi: unicode.MaxRune})
		}
	}
}

func (s *charSet) containsRune(r rune) bool {
	lo := 0
	hi := len(s.chars)
	for lo < hi {
		m := int(uint(lo+hi) >> 1)
		range_ := s.chars[m]
		if range_.lo <= r && r <= range_.hi {
			return true
		}
		if r < range_.lo {
			hi = m
		} else {
			lo = m + 1
		}
	}
	return false
}

// containsFold reports whether any rune in the simple case folding orbit of
// r is in s.
func (s *charSet) containsFold(r rune) bool {
	if s.containsRune(r) {
		return true
	}
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if s.containsRune(f) {
			return true
		}
	}
	return false
}

func foldEqual(a, b rune) bool {
	if a == b {
		return true
	}
	for f := unicode.SimpleFold(a); f != a; f = unicode.SimpleFold(f) {
		if f == b {
			return true
		}
	}
	return false
}
