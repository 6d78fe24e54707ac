package retrace

import (
	"fmt"
	"strconv"
	"strings"
)

// maxProgramSize bounds the number of instructions a pattern may expand to.
const maxProgramSize = 1 << 20

type opcode uint8

const (
	opMatch    opcode = iota
	opRune            // consume r
	opClass           // consume a rune in set (or not in set when negated)
	opAny             // consume any rune except '\n'
	opAnyNL           // consume any rune
	opSplit           // try x, on failure y
	opJump            // goto x
	opSave            // slots[n] = pos
	opAssert          // zero-width assertion
	opBackref         // consume the text of group n
	opMark            // slots[n] = pos, for the zero-width loop guard
	opProgress        // goto x if pos moved since opMark n, otherwise fall through
)

var opcodeNames = [...]string{
	opMatch:    "match",
	opRune:     "rune",
	opClass:    "class",
	opAny:      "any",
	opAnyNL:    "anynl",
	opSplit:    "split",
	opJump:     "jmp",
	opSave:     "save",
	opAssert:   "assert",
	opBackref:  "backref",
	opMark:     "mark",
	opProgress: "progress",
}

func (op opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "op(" + strconv.Itoa(int(op)) + ")"
}

var assertNames = [...]string{
	assertLineStart:       "^",
	assertLineEnd:         "$",
	assertTextStart:       `\A`,
	assertTextEnd:         `\Z`,
	assertWordBoundary:    `\b`,
	assertNotWordBoundary: `\B`,
}

type inst struct {
	op      opcode
	r       rune
	set     *charSet
	negated bool
	assert  assertKind
	x, y    int
	n       int
}

// program is immutable once compiled and may be shared between goroutines.
type program struct {
	insts []inst
	// numGroups includes group 0.
	numGroups int
	// numSlots is 2*numGroups plus the loop guard registers.
	numSlots int

	fold      bool
	multiline bool
	anchored  bool
}

func (p *program) String() string {
	var b strings.Builder
	for pc, in := range p.insts {
		fmt.Fprintf(&b, "%d: %v", pc, in.op)
		switch in.op {
		case opRune:
			fmt.Fprintf(&b, " %q", in.r)
		case opClass:
			if in.negated {
				b.WriteString(" ^")
			}
			for _, r := range in.set.chars {
				if r.lo == r.hi {
					fmt.Fprintf(&b, " %q", r.lo)
				} else {
					fmt.Fprintf(&b, " %q-%q", r.lo, r.hi)
				}
			}
		case opSplit:
			fmt.Fprintf(&b, " %d, %d", in.x, in.y)
		case opJump:
			fmt.Fprintf(&b, " %d", in.x)
		case opSave, opBackref, opMark:
			fmt.Fprintf(&b, " %d", in.n)
		case opProgress:
			fmt.Fprintf(&b, " %d, %d", in.n, in.x)
		case opAssert:
			fmt.Fprintf(&b, " %s", assertNames[in.assert])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

type compiler struct {
	insts    []inst
	numSlots int
	flags    Flag
	err      error
}

// Returns the position of inserted instruction
func (c *compiler) emit(in inst) int {
	pos := len(c.insts)
	if pos >= maxProgramSize {
		if c.err == nil {
			c.err = newSyntaxError("pattern too large", -1)
		}
		return pos
	}
	c.insts = append(c.insts, in)
	return pos
}

func (c *compiler) allocRegister() int {
	r := c.numSlots
	c.numSlots++
	return r
}

// compile lowers the AST into a program. Group 0 spans the whole match.
func compile(root *node, info *parseInfo) (*program, error) {
	numGroups := info.numGroups + 1
	c := &compiler{
		flags:    info.flags,
		numSlots: 2 * numGroups,
	}
	c.emit(inst{op: opSave, n: 0})
	c.compileNode(root)
	c.emit(inst{op: opSave, n: 1})
	c.emit(inst{op: opMatch})
	if c.err != nil {
		return nil, c.err
	}
	return &program{
		insts:     c.insts,
		numGroups: numGroups,
		numSlots:  c.numSlots,
		fold:      info.flags&FlagIgnoreCase != 0,
		multiline: info.flags&FlagMultiline != 0,
		anchored:  root.anchoredStart(info.flags&FlagMultiline != 0),
	}, nil
}

func (c *compiler) compileNode(n *node) {
	if c.err != nil {
		return
	}
	switch n.kind {
	case nodeEmpty:
	case nodeLiteral:
		c.emit(inst{op: opRune, r: n.r})
	case nodeAny:
		if c.flags&FlagDotAll != 0 {
			c.emit(inst{op: opAnyNL})
		} else {
			c.emit(inst{op: opAny})
		}
	case nodeClass:
		c.emit(inst{op: opClass, set: n.set, negated: n.negated})
	case nodeConcat:
		for _, sub := range n.subs {
			c.compileNode(sub)
		}
	case nodeAlternate:
		c.compileAlternate(n.subs)
	case nodeGroup:
		if !n.capturing {
			c.compileNode(n.subs[0])
			return
		}
		c.emit(inst{op: opSave, n: 2 * n.index})
		c.compileNode(n.subs[0])
		c.emit(inst{op: opSave, n: 2*n.index + 1})
	case nodeAssert:
		c.emit(inst{op: opAssert, assert: n.assert})
	case nodeBackref:
		c.emit(inst{op: opBackref, n: n.index})
	case nodeRepeat:
		c.compileRepeat(n)
	default:
		panic(fmt.Sprintf("retrace: unknown node kind %d", n.kind))
	}
}

//	split L1, L2
//	L1: <first>
//	    jmp end
//	L2: split L3, L4
//	...
//	end:
func (c *compiler) compileAlternate(subs []*node) {
	var jumps []int
	for _, sub := range subs[:len(subs)-1] {
		split := c.emit(inst{op: opSplit})
		c.compileNode(sub)
		jumps = append(jumps, c.emit(inst{op: opJump}))
		if c.err != nil {
			return
		}
		c.insts[split].x = split + 1
		c.insts[split].y = len(c.insts)
	}
	c.compileNode(subs[len(subs)-1])
	if c.err != nil {
		return
	}
	end := len(c.insts)
	for _, j := range jumps {
		c.insts[j].x = end
	}
}

// setSplit points a split either at consume first (greedy) or exit first.
func (c *compiler) setSplit(pc, consume, exit int, greedy bool) {
	if greedy {
		c.insts[pc].x, c.insts[pc].y = consume, exit
	} else {
		c.insts[pc].x, c.insts[pc].y = exit, consume
	}
}

func (c *compiler) compileRepeat(n *node) {
	sub := n.subs[0]
	for i := 0; i < n.min; i++ {
		c.compileNode(sub)
	}

	if n.max == unbounded {
		//	head: split body, exit
		//	body: [mark r] <sub> [progress r, head] | jmp head
		//	exit:
		head := c.emit(inst{op: opSplit})
		guard := sub.minWidth() == 0
		reg := 0
		if guard {
			reg = c.allocRegister()
			c.emit(inst{op: opMark, n: reg})
		}
		c.compileNode(sub)
		if guard {
			c.emit(inst{op: opProgress, n: reg, x: head})
		} else {
			c.emit(inst{op: opJump, x: head})
		}
		if c.err != nil {
			return
		}
		c.setSplit(head, head+1, len(c.insts), n.greedy)
		return
	}

	// Optional copies are nested: skipping one skips all the following ones.
	var splits []int
	for i := n.min; i < n.max; i++ {
		splits = append(splits, c.emit(inst{op: opSplit}))
		c.compileNode(sub)
	}
	if c.err != nil {
		return
	}
	end := len(c.insts)
	for _, s := range splits {
		c.setSplit(s, s+1, end, n.greedy)
	}
}
