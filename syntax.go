package retrace

import (
	"fmt"
	"strconv"
	"unicode"
)

const (
	// maxRepeat bounds explicit {n,m} counts.
	maxRepeat = 1000
	// maxNesting bounds parenthesis depth.
	maxNesting = 1000
)

// SyntaxError is returned when a pattern or a replacement template is
// malformed.
type SyntaxError struct {
	err string
	// Offset is the byte offset in the pattern (or template) where the error
	// was detected, or -1 if it is not tied to a position.
	Offset int
}

func (e SyntaxError) Error() string {
	if e.Offset < 0 {
		return e.err
	}
	return fmt.Sprintf("%s at position %d", e.err, e.Offset)
}

var _ error = (*SyntaxError)(nil)

func newSyntaxError(err string, offset int) SyntaxError {
	return SyntaxError{err: err, Offset: offset}
}

type parseInfo struct {
	numGroups int
	names     map[string]int
	flags     Flag
}

type parser struct {
	src []rune
	// offsets[i] is the byte offset of src[i] in the original pattern.
	// offsets[len(src)] is the length of the pattern.
	offsets []int
	pos     int
	flags   Flag

	depth      int
	numGroups  int
	names      map[string]int
	openGroups []int
}

func (p *parser) atEnd() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() (rune, bool) {
	return p.peekN(0)
}

func (p *parser) peekN(n int) (rune, bool) {
	if p.pos+n >= len(p.src) {
		return 0, false
	}
	return p.src[p.pos+n], true
}

func (p *parser) consume(expected rune) bool {
	if r, ok := p.peek(); ok && r == expected {
		p.pos++
		return true
	}
	return false
}

func (p *parser) hasPrefix(s string) bool {
	i := 0
	for _, r := range s {
		if c, ok := p.peekN(i); !ok || c != r {
			return false
		}
		i++
	}
	return true
}

func (p *parser) offset(pos int) int {
	return p.offsets[min(pos, len(p.offsets)-1)]
}

func (p *parser) errorAt(pos int, format string, args ...any) error {
	return newSyntaxError(fmt.Sprintf(format, args...), p.offset(pos))
}

func decodePattern(pattern string) ([]rune, []int) {
	src := make([]rune, 0, len(pattern))
	offsets := make([]int, 0, len(pattern)+1)
	for i, r := range pattern {
		src = append(src, r)
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(pattern))
	return src, offsets
}

func isVerboseSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// stripVerbose drops unescaped whitespace and #-comments that are not inside
// a character class.
func stripVerbose(src []rune, offsets []int) ([]rune, []int) {
	out := make([]rune, 0, len(src))
	outOffsets := make([]int, 0, len(offsets))
	emit := func(i int) {
		out = append(out, src[i])
		outOffsets = append(outOffsets, offsets[i])
	}
	inClass := false
	classBody := 0
	for i := 0; i < len(src); i++ {
		r := src[i]
		if r == '\\' {
			emit(i)
			if i+1 < len(src) {
				i++
				emit(i)
			}
			continue
		}
		if inClass {
			emit(i)
			if r == ']' && len(out)-1 > classBody {
				inClass = false
			}
			continue
		}
		switch {
		case r == '[':
			emit(i)
			inClass = true
			if i+1 < len(src) && src[i+1] == '^' {
				i++
				emit(i)
			}
			classBody = len(out)
		case isVerboseSpace(r):
		case r == '#':
			for i+1 < len(src) && src[i+1] != '\n' {
				i++
			}
		default:
			emit(i)
		}
	}
	outOffsets = append(outOffsets, offsets[len(offsets)-1])
	return out, outOffsets
}

func flagFromLetter(r rune) (Flag, bool) {
	switch r {
	case 'i':
		return FlagIgnoreCase, true
	case 'm':
		return FlagMultiline, true
	case 's':
		return FlagDotAll, true
	case 'x':
		return FlagVerbose, true
	}
	return 0, false
}

// parseLeadingFlags consumes inline global flag groups such as (?i) and (?sx)
// at the start of the pattern.
func (p *parser) parseLeadingFlags() error {
	for p.hasPrefix("(?") {
		i := 2
		var f Flag
		for {
			r, ok := p.peekN(i)
			if !ok {
				if i == 2 {
					// parseGroup reports the bare "(?"
					return nil
				}
				return p.errorAt(p.pos+i, "missing -, : or )")
			}
			flag, isFlag := flagFromLetter(r)
			if !isFlag {
				break
			}
			f |= flag
			i++
		}
		if i == 2 {
			return nil
		}
		r, _ := p.peekN(i)
		if r != ')' {
			if r == ':' {
				return p.errorAt(p.pos, "scoped inline flags are not supported")
			}
			return p.errorAt(p.pos+i, "unknown flag")
		}
		p.flags |= f
		p.pos += i + 1
	}
	return nil
}

// parse turns pattern into an AST.
func parse(pattern string, flags Flag) (*node, *parseInfo, error) {
	src, offsets := decodePattern(pattern)
	p := &parser{
		src:     src,
		offsets: offsets,
		flags:   flags,
		names:   map[string]int{},
	}
	if err := p.parseLeadingFlags(); err != nil {
		return nil, nil, err
	}
	if p.flags&FlagVerbose != 0 {
		rest, restOffsets := stripVerbose(p.src[p.pos:], p.offsets[p.pos:])
		p.src, p.offsets, p.pos = rest, restOffsets, 0
	}

	n, err := p.parseAlternation()
	if err != nil {
		return nil, nil, err
	}
	if !p.atEnd() {
		// parseAlternation only stops early on ')'
		return nil, nil, p.errorAt(p.pos, "unbalanced parenthesis")
	}
	return n, &parseInfo{numGroups: p.numGroups, names: p.names, flags: p.flags}, nil
}

func (p *parser) parseAlternation() (*node, error) {
	first, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	if r, ok := p.peek(); !ok || r != '|' {
		return first, nil
	}
	alt := &node{kind: nodeAlternate, subs: []*node{first}}
	for p.consume('|') {
		next, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		alt.subs = append(alt.subs, next)
	}
	return alt, nil
}

func (p *parser) parseSequence() (*node, error) {
	var items []*node
	for {
		r, ok := p.peek()
		if !ok || r == '|' || r == ')' {
			break
		}
		atom, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		if atom == nil {
			// a comment group; a quantifier after it applies to the previous item
			if len(items) == 0 {
				continue
			}
			if q, err := p.quantifierAhead(); err != nil {
				return nil, err
			} else if q {
				last := items[len(items)-1]
				if last.kind == nodeRepeat {
					return nil, p.errorAt(p.pos, "multiple repeat")
				}
				if items[len(items)-1], err = p.parseQuantifiers(last); err != nil {
					return nil, err
				}
			}
			continue
		}
		atom, err = p.parseQuantifiers(atom)
		if err != nil {
			return nil, err
		}
		items = append(items, atom)
	}
	switch len(items) {
	case 0:
		return &node{kind: nodeEmpty}, nil
	case 1:
		return items[0], nil
	}
	return &node{kind: nodeConcat, subs: items}, nil
}

// parseRepeatBounds tries to read {n}, {n,}, {,m}, {n,m} or {,} at the
// current position. ok is false if the text is not a quantifier, in which case
// the position is left untouched.
func (p *parser) parseRepeatBounds() (lo, hi int, ok bool, err error) {
	start := p.pos
	if !p.consume('{') {
		return 0, 0, false, nil
	}
	if r, _ := p.peek(); r == '}' {
		p.pos = start
		return 0, 0, false, nil
	}
	loDigits := p.readDigits()
	hiDigits := loDigits
	if p.consume(',') {
		hiDigits = p.readDigits()
	}
	if !p.consume('}') {
		p.pos = start
		return 0, 0, false, nil
	}
	lo, hi = 0, unbounded
	if loDigits != "" {
		if lo, err = p.repeatCount(loDigits, start); err != nil {
			return 0, 0, false, err
		}
	}
	if hiDigits != "" {
		if hi, err = p.repeatCount(hiDigits, start); err != nil {
			return 0, 0, false, err
		}
		if hi < lo {
			return 0, 0, false, p.errorAt(start, "min repeat greater than max repeat")
		}
	}
	return lo, hi, true, nil
}

func (p *parser) readDigits() string {
	start := p.pos
	for {
		r, ok := p.peek()
		if !ok || r < '0' || r > '9' {
			break
		}
		p.pos++
	}
	return string(p.src[start:p.pos])
}

func (p *parser) repeatCount(digits string, pos int) (int, error) {
	n, err := strconv.Atoi(digits)
	if err != nil || n > maxRepeat {
		return 0, p.errorAt(pos, "the repetition number is too large")
	}
	return n, nil
}

// quantifierAhead reports whether a quantifier starts at the current position.
func (p *parser) quantifierAhead() (bool, error) {
	r, ok := p.peek()
	if !ok {
		return false, nil
	}
	switch r {
	case '*', '+', '?':
		return true, nil
	case '{':
		start := p.pos
		_, _, ok, err := p.parseRepeatBounds()
		p.pos = start
		return ok, err
	}
	return false, nil
}

func (p *parser) parseQuantifiers(atom *node) (*node, error) {
	quantStart := p.pos
	var lo, hi int
	r, _ := p.peek()
	switch r {
	case '*':
		p.pos++
		lo, hi = 0, unbounded
	case '+':
		p.pos++
		lo, hi = 1, unbounded
	case '?':
		p.pos++
		lo, hi = 0, 1
	case '{':
		var ok bool
		var err error
		lo, hi, ok, err = p.parseRepeatBounds()
		if err != nil {
			return nil, err
		}
		if !ok {
			return atom, nil
		}
	default:
		return atom, nil
	}
	if atom.kind == nodeAssert || atom.kind == nodeEmpty {
		return nil, p.errorAt(quantStart, "nothing to repeat")
	}
	greedy := !p.consume('?')
	if more, err := p.quantifierAhead(); err != nil {
		return nil, err
	} else if more {
		return nil, p.errorAt(p.pos, "multiple repeat")
	}
	return &node{kind: nodeRepeat, subs: []*node{atom}, min: lo, max: hi, greedy: greedy}, nil
}

func (p *parser) parseAtom() (*node, error) {
	start := p.pos
	r, _ := p.peek()
	switch r {
	case '(':
		return p.parseGroup()
	case '[':
		return p.parseClass()
	case '.':
		p.pos++
		return &node{kind: nodeAny}, nil
	case '^':
		p.pos++
		return &node{kind: nodeAssert, assert: assertLineStart}, nil
	case '$':
		p.pos++
		return &node{kind: nodeAssert, assert: assertLineEnd}, nil
	case '\\':
		return p.parseEscape()
	case '*', '+', '?':
		return nil, p.errorAt(start, "nothing to repeat")
	case '{':
		if q, err := p.quantifierAhead(); err != nil {
			return nil, err
		} else if q {
			return nil, p.errorAt(start, "nothing to repeat")
		}
	}
	p.pos++
	return &node{kind: nodeLiteral, r: r}, nil
}

func isGroupNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isGroupNameChar(r rune) bool {
	return isGroupNameStart(r) || unicode.IsDigit(r)
}

// parseGroupName reads a name terminated by term.
func (p *parser) parseGroupName(term rune) (string, error) {
	start := p.pos
	for {
		r, ok := p.peek()
		if !ok {
			return "", p.errorAt(start, "missing %c, unterminated name", term)
		}
		if r == term {
			break
		}
		p.pos++
	}
	name := string(p.src[start:p.pos])
	p.pos++
	if name == "" {
		return "", p.errorAt(start, "missing group name")
	}
	for i, r := range name {
		if (i == 0 && !isGroupNameStart(r)) || !isGroupNameChar(r) {
			return "", p.errorAt(start, "bad character in group name %q", name)
		}
	}
	return name, nil
}

func (p *parser) isOpen(index int) bool {
	for _, g := range p.openGroups {
		if g == index {
			return true
		}
	}
	return false
}

func (p *parser) parseGroup() (*node, error) {
	start := p.pos
	p.pos++ // (

	if p.depth >= maxNesting {
		return nil, p.errorAt(start, "too many nested parentheses")
	}

	capturing := true
	name := ""
	if p.consume('?') {
		r, ok := p.peek()
		if !ok {
			return nil, p.errorAt(p.pos, "unexpected end of pattern")
		}
		switch {
		case r == ':':
			p.pos++
			capturing = false
		case r == '#':
			for {
				c, ok := p.peek()
				if !ok {
					return nil, p.errorAt(start, "missing ), unterminated comment")
				}
				p.pos++
				if c == ')' {
					return nil, nil
				}
			}
		case r == 'P':
			p.pos++
			switch {
			case p.consume('<'):
				n, err := p.parseGroupName('>')
				if err != nil {
					return nil, err
				}
				if _, dup := p.names[n]; dup {
					return nil, p.errorAt(start, "redefinition of group name %q", n)
				}
				name = n
			case p.consume('='):
				nameStart := p.pos
				n, err := p.parseGroupName(')')
				if err != nil {
					return nil, err
				}
				index, known := p.names[n]
				if !known {
					return nil, p.errorAt(nameStart, "unknown group name %q", n)
				}
				if p.isOpen(index) {
					return nil, p.errorAt(nameStart, "cannot refer to an open group")
				}
				return &node{kind: nodeBackref, index: index, name: n}, nil
			default:
				return nil, p.errorAt(p.pos, "unknown extension ?P")
			}
		case r == '=' || r == '!' || p.hasPrefix("<=") || p.hasPrefix("<!"):
			return nil, p.errorAt(start, "lookaround assertions are not supported")
		default:
			if _, isFlag := flagFromLetter(r); isFlag {
				i := 0
				for {
					c, ok := p.peekN(i)
					if !ok {
						return nil, p.errorAt(p.pos+i, "missing -, : or )")
					}
					if _, f := flagFromLetter(c); !f {
						if c == ':' {
							return nil, p.errorAt(start, "scoped inline flags are not supported")
						}
						if c == ')' {
							return nil, p.errorAt(start, "global flags not at the start of the expression")
						}
						return nil, p.errorAt(p.pos+i, "unknown flag")
					}
					i++
				}
			}
			return nil, p.errorAt(p.pos, "unknown extension ?%c", r)
		}
	}

	index := 0
	if capturing {
		p.numGroups++
		index = p.numGroups
		if name != "" {
			p.names[name] = index
		}
		p.openGroups = append(p.openGroups, index)
	}

	p.depth++
	body, err := p.parseAlternation()
	p.depth--
	if err != nil {
		return nil, err
	}
	if !p.consume(')') {
		return nil, p.errorAt(start, "missing ), unterminated subpattern")
	}
	if capturing {
		p.openGroups = p.openGroups[:len(p.openGroups)-1]
	}
	return &node{kind: nodeGroup, subs: []*node{body}, index: index, name: name, capturing: capturing}, nil
}

func isOctalDigit(r rune) bool {
	return '0' <= r && r <= '7'
}

func isASCIILetter(r rune) bool {
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}

// classEscape returns the set for \d \D \w \W \s \S.
func classEscape(r rune) (set *charSet, negated bool, ok bool) {
	switch r {
	case 'd', 'D':
		set = digitCharSet
	case 'w', 'W':
		set = wordCharSet
	case 's', 'S':
		set = spaceCharSet
	default:
		return nil, false, false
	}
	return set.clone(), unicode.IsUpper(r), true
}

// parseHexEscape reads exactly n hex digits.
func (p *parser) parseHexEscape(n int, escStart int, letter rune) (rune, error) {
	if p.pos+n > len(p.src) {
		return 0, p.errorAt(escStart, "incomplete escape \\%c", letter)
	}
	digits := string(p.src[p.pos : p.pos+n])
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, p.errorAt(escStart, "incomplete escape \\%c%s", letter, digits)
	}
	if v > unicode.MaxRune {
		return 0, p.errorAt(escStart, "bad escape \\%c%s", letter, digits)
	}
	p.pos += n
	return rune(v), nil
}

// parseOctal reads up to maxDigits further octal digits after first.
func (p *parser) parseOctal(first rune, maxDigits int, escStart int) (rune, error) {
	v := first - '0'
	for i := 0; i < maxDigits; i++ {
		r, ok := p.peek()
		if !ok || !isOctalDigit(r) {
			break
		}
		v = v*8 + r - '0'
		p.pos++
	}
	if v > 0o377 {
		return 0, p.errorAt(escStart, "octal escape value outside of range 0-0o377")
	}
	return v, nil
}

// parseCharacterEscape handles escapes that denote a single rune. It is shared
// by atoms and class items.
func (p *parser) parseCharacterEscape(r rune, escStart int) (rune, error) {
	switch r {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case 'f':
		return '\f', nil
	case 'v':
		return '\v', nil
	case 'a':
		return '\a', nil
	case 'x':
		return p.parseHexEscape(2, escStart, r)
	case 'u':
		return p.parseHexEscape(4, escStart, r)
	case 'U':
		return p.parseHexEscape(8, escStart, r)
	}
	if isASCIILetter(r) || ('0' <= r && r <= '9') {
		return 0, p.errorAt(escStart, "bad escape \\%c", r)
	}
	return r, nil
}

func (p *parser) parseEscape() (*node, error) {
	escStart := p.pos
	p.pos++ // \
	r, ok := p.peek()
	if !ok {
		return nil, p.errorAt(escStart, "bad escape (end of pattern)")
	}
	p.pos++

	if set, negated, ok := classEscape(r); ok {
		return &node{kind: nodeClass, set: set, negated: negated}, nil
	}
	switch r {
	case 'b':
		return &node{kind: nodeAssert, assert: assertWordBoundary}, nil
	case 'B':
		return &node{kind: nodeAssert, assert: assertNotWordBoundary}, nil
	case 'A':
		return &node{kind: nodeAssert, assert: assertTextStart}, nil
	case 'Z':
		return &node{kind: nodeAssert, assert: assertTextEnd}, nil
	case '0':
		v, err := p.parseOctal(r, 2, escStart)
		if err != nil {
			return nil, err
		}
		return &node{kind: nodeLiteral, r: v}, nil
	}
	if '1' <= r && r <= '9' {
		second, hasSecond := p.peek()
		if hasSecond && '0' <= second && second <= '9' {
			third, hasThird := p.peekN(1)
			if isOctalDigit(r) && isOctalDigit(second) && hasThird && isOctalDigit(third) {
				v, err := p.parseOctal(r, 2, escStart)
				if err != nil {
					return nil, err
				}
				return &node{kind: nodeLiteral, r: v}, nil
			}
			p.pos++
		}
		index, _ := strconv.Atoi(string(p.src[escStart+1 : p.pos]))
		if index > p.numGroups {
			return nil, p.errorAt(escStart, "invalid group reference %d", index)
		}
		if p.isOpen(index) {
			return nil, p.errorAt(escStart, "cannot refer to an open group")
		}
		return &node{kind: nodeBackref, index: index}, nil
	}

	lit, err := p.parseCharacterEscape(r, escStart)
	if err != nil {
		return nil, err
	}
	return &node{kind: nodeLiteral, r: lit}, nil
}

// parseClassAtom returns either a single rune or a set.
func (p *parser) parseClassAtom() (rune, *charSet, error) {
	r := p.src[p.pos]
	if r != '\\' {
		p.pos++
		return r, nil, nil
	}
	escStart := p.pos
	p.pos++
	r, ok := p.peek()
	if !ok {
		return 0, nil, p.errorAt(escStart, "bad escape (end of pattern)")
	}
	p.pos++
	if set, negated, ok := classEscape(r); ok {
		if negated {
			set.complement()
		}
		return 0, set, nil
	}
	switch {
	case r == 'b':
		return '\b', nil, nil
	case isOctalDigit(r):
		v, err := p.parseOctal(r, 2, escStart)
		return v, nil, err
	}
	lit, err := p.parseCharacterEscape(r, escStart)
	return lit, nil, err
}

func (p *parser) parseClass() (*node, error) {
	start := p.pos
	p.pos++ // [
	negated := p.consume('^')
	set := &charSet{}
	first := true
	for {
		r, ok := p.peek()
		if !ok {
			return nil, p.errorAt(start, "unterminated character set")
		}
		if r == ']' && !first {
			p.pos++
			break
		}
		first = false

		itemStart := p.pos
		lo, loSet, err := p.parseClassAtom()
		if err != nil {
			return nil, err
		}
		if r, _ := p.peek(); r == '-' {
			if next, ok := p.peekN(1); ok && next != ']' {
				p.pos++ // -
				hi, hiSet, err := p.parseClassAtom()
				if err != nil {
					return nil, err
				}
				if loSet != nil || hiSet != nil {
					return nil, p.errorAt(itemStart, "bad character range %s", string(p.src[itemStart:p.pos]))
				}
				if hi < lo {
					return nil, p.errorAt(itemStart, "bad character range %s", string(p.src[itemStart:p.pos]))
				}
				set.unionRange(lo, hi)
				continue
			}
		}
		if loSet != nil {
			set.union(loSet)
		} else {
			set.unionChar(lo)
		}
	}
	return &node{kind: nodeClass, set: set, negated: negated}, nil
}
