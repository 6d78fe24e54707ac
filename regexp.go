// Package retrace is a backtracking regular expression engine with the
// syntax of Python's re module: capture and named groups, greedy and lazy
// quantifiers, back-references, and substitution templates.
package retrace

import (
	"iter"
	"strings"
	"unicode/utf8"
)

// Flag is a bitmask of RegExp options.
// Combine flags with bitwise OR, e.g. FlagIgnoreCase|FlagVerbose.
type Flag uint16

const (
	// Case-insensitive matching ("i" flag).
	FlagIgnoreCase Flag = 1 << iota

	// "^" and "$" match at line boundaries ("m" flag).
	FlagMultiline

	// "." matches "\n" too ("s" flag).
	FlagDotAll

	// Whitespace and #-comments in the pattern are ignored ("x" flag).
	FlagVerbose
)

// Options configures [CompileOptions].
type Options struct {
	Flags Flag
	// StepLimit bounds the number of instructions a single search may
	// execute. Zero means no limit.
	StepLimit int
}

// RegExp represents a compiled regular expression.
// It is safe for concurrent use by multiple goroutines.
// All methods on RegExp do not mutate internal state.
type RegExp struct {
	pattern   string
	flags     Flag
	stepLimit int

	prog      *program
	prefilter *prefilter
	// names maps a group name to its index.
	names map[string]int
	// groupNames[i] is the name of group i, or "".
	groupNames []string
}

// Compile parses a regular expression pattern and returns a RegExp.
func Compile(pattern string, flags Flag) (*RegExp, error) {
	return CompileOptions(pattern, Options{Flags: flags})
}

// CompileOptions is like [Compile] but also accepts a step limit.
func CompileOptions(pattern string, opts Options) (*RegExp, error) {
	if opts.StepLimit < 0 {
		opts.StepLimit = 0
	}
	root, info, err := parse(pattern, opts.Flags)
	if err != nil {
		return nil, err
	}
	prog, err := compile(root, info)
	if err != nil {
		return nil, err
	}
	re := &RegExp{
		pattern:    pattern,
		flags:      info.flags,
		stepLimit:  opts.StepLimit,
		prog:       prog,
		prefilter:  newPrefilter(root, info.flags),
		names:      info.names,
		groupNames: make([]string, prog.numGroups),
	}
	for name, i := range info.names {
		re.groupNames[i] = name
	}
	return re, nil
}

// MustCompile is like [Compile] but panics if the expression cannot be parsed.
// It simplifies safe initialization of global variables containing regular
// expressions.
func MustCompile(pattern string, flags Flag) *RegExp {
	re, err := Compile(pattern, flags)
	if err != nil {
		panic("retrace: MustCompile: " + err.Error())
	}
	return re
}

// String returns the source pattern.
func (re *RegExp) String() string {
	return re.pattern
}

// Flags returns the flags in effect, including inline flags such as (?i).
func (re *RegExp) Flags() Flag {
	return re.flags
}

// NumGroups returns the number of capturing groups, group 0 excluded.
func (re *RegExp) NumGroups() int {
	return re.prog.numGroups - 1
}

// GroupNames returns the name of every group indexed by group number.
// Element 0 and unnamed groups are "".
func (re *RegExp) GroupNames() []string {
	return append([]string(nil), re.groupNames...)
}

func (re *RegExp) newMachine(input string) *machine {
	vm := newMachine(re.prog, input, re.stepLimit)
	vm.prefilter = re.prefilter
	return vm
}

func (re *RegExp) find(vm *machine, from int, anchored bool) (*Match, error) {
	slots, err := vm.search(from, anchored)
	if err != nil || slots == nil {
		return nil, err
	}
	return newMatch(re, vm.input, slots), nil
}

// Search scans text for the leftmost match. It returns nil if there is none.
func (re *RegExp) Search(text string) (*Match, error) {
	return re.find(re.newMachine(text), 0, false)
}

// SearchAt is like [RegExp.Search] but starts scanning at byte offset pos.
// "^" still matches only at the real start of text (or of a line in
// multiline mode), not at pos.
func (re *RegExp) SearchAt(text string, pos int) (*Match, error) {
	if pos < 0 || pos > len(text) {
		return nil, nil
	}
	for pos > 0 && pos < len(text) && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return re.find(re.newMachine(text), pos, false)
}

// Match reports the match that begins at the start of text, or nil.
func (re *RegExp) Match(text string) (*Match, error) {
	return re.find(re.newMachine(text), 0, true)
}

// FullMatch reports the match that spans the whole of text, or nil.
func (re *RegExp) FullMatch(text string) (*Match, error) {
	vm := re.newMachine(text)
	vm.fullMatch = true
	return re.find(vm, 0, true)
}

// All iterates over the successive non-overlapping matches in text. Each
// search starts where the previous match ended; an empty match moves the
// next start forward by one character. Iteration stops after yielding an
// error.
func (re *RegExp) All(text string) iter.Seq2[*Match, error] {
	return func(yield func(*Match, error) bool) {
		vm := re.newMachine(text)
		pos := 0
		for pos <= len(text) {
			m, err := re.find(vm, pos, false)
			if err != nil {
				yield(nil, err)
				return
			}
			if m == nil {
				return
			}
			if !yield(m, nil) {
				return
			}
			start, end := m.Span(0)
			if end > start {
				pos = end
				continue
			}
			if end >= len(text) {
				return
			}
			_, size := utf8.DecodeRuneInString(text[end:])
			pos = end + size
		}
	}
}

// FindAll returns every non-overlapping match in text. If the pattern has no
// groups each element holds the whole match, otherwise it holds the text of
// every group, with "" for groups that did not participate.
func (re *RegExp) FindAll(text string) ([][]string, error) {
	var out [][]string
	for m, err := range re.All(text) {
		if err != nil {
			return nil, err
		}
		if len(m.Groups) == 1 {
			out = append(out, []string{m.String()})
		} else {
			out = append(out, m.Subgroups())
		}
	}
	return out, nil
}

// FindAllString returns the text of every non-overlapping match.
func (re *RegExp) FindAllString(text string) ([]string, error) {
	var out []string
	for m, err := range re.All(text) {
		if err != nil {
			return nil, err
		}
		out = append(out, m.String())
	}
	return out, nil
}

// Sub replaces every match in text with repl. repl may reference groups
// with \1 through \99, \g<n> and \g<name>.
func (re *RegExp) Sub(repl, text string) (string, error) {
	s, _, err := re.SubN(repl, text, 0)
	return s, err
}

// SubN is like [RegExp.Sub] but replaces at most count matches when count
// is positive. It also returns the number of replacements made.
func (re *RegExp) SubN(repl, text string, count int) (string, int, error) {
	t, err := parseTemplate(repl, re.NumGroups(), re.names)
	if err != nil {
		return "", 0, err
	}
	return re.replace(text, count, func(b *strings.Builder, m *Match) {
		t.expand(b, m)
	})
}

// SubFunc replaces every match in text with the result of fn.
func (re *RegExp) SubFunc(text string, fn func(*Match) string) (string, error) {
	s, _, err := re.replace(text, 0, func(b *strings.Builder, m *Match) {
		b.WriteString(fn(m))
	})
	return s, err
}

func (re *RegExp) replace(text string, count int, expand func(*strings.Builder, *Match)) (string, int, error) {
	var b strings.Builder
	last := 0
	n := 0
	for m, err := range re.All(text) {
		if err != nil {
			return "", 0, err
		}
		start, end := m.Span(0)
		b.WriteString(text[last:start])
		expand(&b, m)
		last = end
		n++
		if count > 0 && n >= count {
			break
		}
	}
	if n == 0 {
		return text, 0, nil
	}
	b.WriteString(text[last:])
	return b.String(), n, nil
}

// Split slices text around the matches of the pattern. The text of every
// group is included between the pieces. If maxSplit is positive, at most
// maxSplit splits are made and the remainder is the final element.
func (re *RegExp) Split(text string, maxSplit int) ([]string, error) {
	var out []string
	last := 0
	n := 0
	for m, err := range re.All(text) {
		if err != nil {
			return nil, err
		}
		start, end := m.Span(0)
		out = append(out, text[last:start])
		out = append(out, m.Subgroups()...)
		last = end
		n++
		if maxSplit > 0 && n >= maxSplit {
			break
		}
	}
	return append(out, text[last:]), nil
}

// Escape returns s with every character that is special in a pattern
// escaped.
func Escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`()[]{}?*+-|^$\.&~# `+"\t\n\r\v\f", r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
