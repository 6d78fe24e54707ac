package retrace

import (
	"github.com/coregx/ahocorasick"
)

// maxPrefilterLiterals bounds the number of alternative prefixes collected
// for the prefilter.
const maxPrefilterLiterals = 32

// prefilter finds candidate start positions for patterns whose matches all
// begin with one of a small set of literal strings.
type prefilter struct {
	literals []string
	auto     *ahocorasick.Automaton
}

// newPrefilter returns nil when the pattern has no usable literal prefix.
func newPrefilter(root *node, flags Flag) *prefilter {
	if flags&FlagIgnoreCase != 0 {
		return nil
	}
	literals, _, ok := root.literalPrefixes()
	if !ok || len(literals) == 0 || len(literals) > maxPrefilterLiterals {
		return nil
	}
	for _, lit := range literals {
		if lit == "" {
			return nil
		}
	}
	builder := ahocorasick.NewBuilder()
	for _, lit := range literals {
		builder.AddPattern([]byte(lit))
	}
	auto, err := builder.Build()
	if err != nil {
		return nil
	}
	return &prefilter{literals: literals, auto: auto}
}

// candidate returns the smallest offset >= at where one of the literals
// occurs, or -1.
func (pf *prefilter) candidate(haystack []byte, at int) int {
	if at >= len(haystack) {
		return -1
	}
	m := pf.auto.Find(haystack, at)
	if m == nil {
		return -1
	}
	return m.Start
}
