package retrace

type nodeKind uint8

const (
	nodeEmpty     nodeKind = iota // matches the empty string
	nodeLiteral                   // single rune
	nodeAny                       // .
	nodeClass                     // [...], \d, \w, \s and their negations
	nodeConcat                    // subs in sequence
	nodeAlternate                 // subs joined by |
	nodeRepeat                    // subs[0]{min,max}
	nodeGroup                     // (...), (?:...), (?P<name>...)
	nodeAssert                    // ^ $ \A \Z \b \B
	nodeBackref                   // \1, (?P=name)
)

type assertKind uint8

const (
	assertLineStart assertKind = iota
	assertLineEnd
	assertTextStart
	assertTextEnd
	assertWordBoundary
	assertNotWordBoundary
)

// unbounded is the max of an open-ended repeat.
const unbounded = -1

type node struct {
	kind nodeKind

	r       rune
	set     *charSet
	negated bool

	subs []*node

	min, max int
	greedy   bool

	// Capture index for groups and back-references, 0 for non-capturing groups.
	index     int
	name      string
	capturing bool

	assert assertKind
}

// minWidth returns the minimal number of runes a match of n consumes.
func (n *node) minWidth() int {
	switch n.kind {
	case nodeLiteral, nodeAny, nodeClass:
		return 1
	case nodeConcat:
		w := 0
		for _, sub := range n.subs {
			w += sub.minWidth()
		}
		return w
	case nodeAlternate:
		w := -1
		for _, sub := range n.subs {
			if sw := sub.minWidth(); w == -1 || sw < w {
				w = sw
			}
		}
		return max(w, 0)
	case nodeRepeat:
		return n.min * n.subs[0].minWidth()
	case nodeGroup:
		return n.subs[0].minWidth()
	}
	return 0
}

// anchoredStart reports whether every match of n must begin at text start.
func (n *node) anchoredStart(multiline bool) bool {
	switch n.kind {
	case nodeAssert:
		return n.assert == assertTextStart || (n.assert == assertLineStart && !multiline)
	case nodeConcat:
		for _, sub := range n.subs {
			if sub.anchoredStart(multiline) {
				return true
			}
			if sub.kind != nodeAssert && sub.kind != nodeEmpty {
				return false
			}
		}
		return false
	case nodeAlternate:
		for _, sub := range n.subs {
			if !sub.anchoredStart(multiline) {
				return false
			}
		}
		return len(n.subs) > 0
	case nodeGroup:
		return n.subs[0].anchoredStart(multiline)
	case nodeRepeat:
		return n.min > 0 && n.subs[0].anchoredStart(multiline)
	}
	return false
}

// literalPrefixes returns a set of strings such that every match of n begins
// with one of them. exact reports that n matches exactly the returned strings.
// ok is false when no such set is known.
func (n *node) literalPrefixes() (prefixes []string, exact bool, ok bool) {
	switch n.kind {
	case nodeLiteral:
		return []string{string(n.r)}, true, true
	case nodeEmpty:
		return []string{""}, true, true
	case nodeGroup:
		return n.subs[0].literalPrefixes()
	case nodeRepeat:
		if n.min == 0 {
			return nil, false, false
		}
		p, e, ok := n.subs[0].literalPrefixes()
		return p, e && n.min == 1 && n.max == 1, ok
	case nodeAlternate:
		exact = true
		for _, sub := range n.subs {
			p, e, ok := sub.literalPrefixes()
			if !ok {
				return nil, false, false
			}
			prefixes = append(prefixes, p...)
			exact = exact && e
			if len(prefixes) > maxPrefilterLiterals {
				return nil, false, false
			}
		}
		return prefixes, exact, true
	case nodeConcat:
		prefixes = []string{""}
		for _, sub := range n.subs {
			if sub.kind == nodeAssert {
				// zero-width and does not change what follows
				continue
			}
			p, e, ok := sub.literalPrefixes()
			if !ok {
				return prefixes, false, true
			}
			if len(prefixes)*len(p) > maxPrefilterLiterals {
				return prefixes, false, true
			}
			next := make([]string, 0, len(prefixes)*len(p))
			for _, a := range prefixes {
				for _, b := range p {
					next = append(next, a+b)
				}
			}
			prefixes = next
			if !e {
				return prefixes, false, true
			}
		}
		return prefixes, true, true
	}
	return nil, false, false
}
