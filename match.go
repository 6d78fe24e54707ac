package retrace

import (
	"strings"
)

// Group represents a single captured substring of a match.
// It is safe for concurrent use by multiple goroutines.
type Group struct {
	src string
	// Start is the inclusive start byte offset of the captured substring,
	// or -1 if the group did not participate in the match.
	Start int
	// End is the exclusive end byte offset of the captured substring,
	// or -1 if the group did not participate in the match.
	End int
	// Name is the group name if defined, otherwise empty.
	Name string
}

// Matched reports whether the group participated in the match.
func (g Group) Matched() bool {
	return g.Start != -1
}

// String returns the captured substring, or "" if the group did not
// participate in the match.
func (g Group) String() string {
	if g.Start == -1 {
		return ""
	}
	return g.src[g.Start:g.End]
}

// Match holds the result of a successful match.
// It does not reference the engine that produced it and is safe for
// concurrent use by multiple goroutines.
type Match struct {
	// Groups is the ordered list of captures.
	// Groups[0] is the full match; subsequent entries correspond to
	// the capturing groups in the pattern.
	Groups []Group
	// NamedGroups maps a group name to its captured group.
	NamedGroups map[string]Group

	names map[string]int
}

func newMatch(re *RegExp, input string, slots []int) *Match {
	m := &Match{
		Groups:      make([]Group, len(slots)/2),
		NamedGroups: make(map[string]Group, len(re.names)),
		names:       re.names,
	}
	for i := range m.Groups {
		g := &m.Groups[i]
		g.src = input
		g.Start, g.End = slots[2*i], slots[2*i+1]
		if g.Start == -1 || g.End == -1 {
			g.Start, g.End = -1, -1
		}
		g.Name = re.groupNames[i]
	}
	for name, i := range re.names {
		m.NamedGroups[name] = m.Groups[i]
	}
	return m
}

// String returns the text of the whole match.
func (m *Match) String() string {
	return m.Groups[0].String()
}

// Group returns the text of group n. ok is false if n is out of range or
// the group did not participate in the match.
func (m *Match) Group(n int) (s string, ok bool) {
	if n < 0 || n >= len(m.Groups) || !m.Groups[n].Matched() {
		return "", false
	}
	return m.Groups[n].String(), true
}

// Named is like [Match.Group] but looks the group up by name.
func (m *Match) Named(name string) (string, bool) {
	g, ok := m.NamedGroups[name]
	if !ok || !g.Matched() {
		return "", false
	}
	return g.String(), true
}

// Subgroups returns the text of every capturing group, group 0 excluded.
// Groups that did not participate are "".
func (m *Match) Subgroups() []string {
	out := make([]string, len(m.Groups)-1)
	for i, g := range m.Groups[1:] {
		out[i] = g.String()
	}
	return out
}

// Span returns the byte offsets of group n, or (-1, -1) if the group did not
// participate or does not exist.
func (m *Match) Span(n int) (start, end int) {
	if n < 0 || n >= len(m.Groups) {
		return -1, -1
	}
	return m.Groups[n].Start, m.Groups[n].End
}

// Expand substitutes group references in tmpl the same way
// [RegExp.Sub] does.
func (m *Match) Expand(tmpl string) (string, error) {
	t, err := parseTemplate(tmpl, len(m.Groups)-1, m.names)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	t.expand(&b, m)
	return b.String(), nil
}
