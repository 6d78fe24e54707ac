package retrace

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrStepLimit is wrapped by every [ResourceError].
var ErrStepLimit = errors.New("retrace: step limit exceeded")

// ResourceError is returned when a search executes more instructions than
// the step limit configured with [CompileOptions] allows.
type ResourceError struct {
	// Limit is the configured step limit.
	Limit int
	// Start is the byte offset of the search that hit the limit.
	Start int
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%v: limit %d, search started at %d", ErrStepLimit, e.Limit, e.Start)
}

func (e *ResourceError) Unwrap() error {
	return ErrStepLimit
}

type stack[T any] []T

func (s *stack[T]) push(v T) { *s = append(*s, v) }

func (s *stack[T]) pop() T {
	i := len(*s) - 1
	v := (*s)[i]
	*s = (*s)[:i]
	return v
}

func (s *stack[T]) truncate(n int) { *s = (*s)[:n] }

type backtrackingFrame struct {
	pc      int
	pos     int
	slotsAt int
}

type stepResult uint8

const (
	stepNext stepResult = iota
	stepFail
	stepMatch
)

type machine struct {
	prog  *program
	input string
	// haystack is input as bytes, created on first prefilter use.
	haystack  []byte
	prefilter *prefilter

	// Program Counter. Index of current machine instruction
	pc  int
	pos int

	slots             []int
	backtrackingStack stack[backtrackingFrame]
	slotsStack        stack[int]

	// fullMatch rejects matches that do not end at the end of input.
	fullMatch bool

	steps     int
	stepLimit int
}

func newMachine(prog *program, input string, stepLimit int) *machine {
	return &machine{
		prog:      prog,
		input:     input,
		slots:     make([]int, prog.numSlots),
		stepLimit: stepLimit,
	}
}

func (vm *machine) pushBacktrackingFrame(pc int) {
	vm.backtrackingStack.push(backtrackingFrame{
		pc:      pc,
		pos:     vm.pos,
		slotsAt: len(vm.slotsStack),
	})
	vm.slotsStack = append(vm.slotsStack, vm.slots...)
}

// backtrack restores the most recent checkpoint. It reports false when there
// is nothing left to try.
func (vm *machine) backtrack() bool {
	if len(vm.backtrackingStack) == 0 {
		return false
	}
	frame := vm.backtrackingStack.pop()
	vm.pc = frame.pc
	vm.pos = frame.pos
	copy(vm.slots, vm.slotsStack[frame.slotsAt:])
	vm.slotsStack.truncate(frame.slotsAt)
	return true
}

func (vm *machine) reset(start int) {
	vm.pc = 0
	vm.pos = start
	for i := range vm.slots {
		vm.slots[i] = -1
	}
	vm.backtrackingStack.truncate(0)
	vm.slotsStack.truncate(0)
}

// run attempts a match starting exactly at start.
func (vm *machine) run(start int) (bool, error) {
	vm.reset(start)
	for {
		if vm.stepLimit > 0 {
			vm.steps++
			if vm.steps > vm.stepLimit {
				return false, &ResourceError{Limit: vm.stepLimit, Start: start}
			}
		}
		switch vm.step() {
		case stepMatch:
			return true, nil
		case stepFail:
			if !vm.backtrack() {
				return false, nil
			}
		}
	}
}

func (vm *machine) step() stepResult {
	in := &vm.prog.insts[vm.pc]
	switch in.op {
	case opMatch:
		if vm.fullMatch && vm.pos != len(vm.input) {
			return stepFail
		}
		return stepMatch
	case opRune:
		r, size := vm.next()
		if size == 0 || !(r == in.r || (vm.prog.fold && foldEqual(r, in.r))) {
			return stepFail
		}
		vm.pos += size
	case opClass:
		r, size := vm.next()
		if size == 0 {
			return stepFail
		}
		var found bool
		if vm.prog.fold {
			found = in.set.containsFold(r)
		} else {
			found = in.set.containsRune(r)
		}
		if found == in.negated {
			return stepFail
		}
		vm.pos += size
	case opAny:
		r, size := vm.next()
		if size == 0 || r == '\n' {
			return stepFail
		}
		vm.pos += size
	case opAnyNL:
		_, size := vm.next()
		if size == 0 {
			return stepFail
		}
		vm.pos += size
	case opSplit:
		vm.pushBacktrackingFrame(in.y)
		vm.pc = in.x
		return stepNext
	case opJump:
		vm.pc = in.x
		return stepNext
	case opSave, opMark:
		vm.slots[in.n] = vm.pos
	case opProgress:
		if vm.pos != vm.slots[in.n] {
			vm.pc = in.x
			return stepNext
		}
	case opAssert:
		if !vm.assert(in.assert) {
			return stepFail
		}
	case opBackref:
		if !vm.matchBackref(in.n) {
			return stepFail
		}
	default:
		panic(fmt.Sprintf("retrace: invalid opcode %v at pc %d", in.op, vm.pc))
	}
	vm.pc++
	return stepNext
}

// next decodes the rune at the cursor. size is 0 at the end of input.
func (vm *machine) next() (rune, int) {
	if vm.pos >= len(vm.input) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(vm.input[vm.pos:])
}

func (vm *machine) prev() (rune, bool) {
	if vm.pos == 0 {
		return 0, false
	}
	r, _ := utf8.DecodeLastRuneInString(vm.input[:vm.pos])
	return r, true
}

func (vm *machine) assert(kind assertKind) bool {
	switch kind {
	case assertLineStart:
		return vm.pos == 0 || (vm.prog.multiline && vm.input[vm.pos-1] == '\n')
	case assertLineEnd:
		return vm.pos == len(vm.input) || (vm.prog.multiline && vm.input[vm.pos] == '\n')
	case assertTextStart:
		return vm.pos == 0
	case assertTextEnd:
		return vm.pos == len(vm.input)
	case assertWordBoundary, assertNotWordBoundary:
		before, ok := vm.prev()
		a := ok && isWordChar(before)
		after, size := vm.next()
		b := size > 0 && isWordChar(after)
		return (a != b) == (kind == assertWordBoundary)
	}
	panic(fmt.Sprintf("retrace: invalid assertion %d", kind))
}

// matchBackref consumes the text most recently captured by group n. A group
// that has not participated fails the match.
func (vm *machine) matchBackref(n int) bool {
	start, end := vm.slots[2*n], vm.slots[2*n+1]
	if start < 0 || end < 0 {
		return false
	}
	captured := vm.input[start:end]
	if !vm.prog.fold {
		if !strings.HasPrefix(vm.input[vm.pos:], captured) {
			return false
		}
		vm.pos += len(captured)
		return true
	}
	pos := vm.pos
	for _, want := range captured {
		if pos >= len(vm.input) {
			return false
		}
		r, size := utf8.DecodeRuneInString(vm.input[pos:])
		if !foldEqual(r, want) {
			return false
		}
		pos += size
	}
	vm.pos = pos
	return true
}

// search finds the leftmost match starting at or after from. The returned
// slots are owned by the caller.
func (vm *machine) search(from int, anchored bool) ([]int, error) {
	vm.steps = 0
	if vm.prog.anchored {
		// every match begins at offset 0
		if from != 0 {
			return nil, nil
		}
		anchored = true
	}
	for start := from; start <= len(vm.input); {
		if vm.prefilter != nil && !anchored {
			if vm.haystack == nil {
				vm.haystack = []byte(vm.input)
			}
			next := vm.prefilter.candidate(vm.haystack, start)
			if next < 0 {
				return nil, nil
			}
			start = next
		}
		ok, err := vm.run(start)
		if err != nil {
			return nil, err
		}
		if ok {
			return append([]int(nil), vm.slots[:2*vm.prog.numGroups]...), nil
		}
		if anchored || start == len(vm.input) {
			return nil, nil
		}
		_, size := utf8.DecodeRuneInString(vm.input[start:])
		start += size
	}
	return nil, nil
}
