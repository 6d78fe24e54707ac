package retrace

import (
	"errors"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var templateLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "NamedRef", Pattern: `\\g<[^>]*>`},
	{Name: "Octal", Pattern: `\\(?:0[0-7]?[0-7]?|[1-7][0-7][0-7])`},
	{Name: "GroupRef", Pattern: `\\[1-9][0-9]?`},
	{Name: "Escape", Pattern: `\\[^0-9g]`},
	{Name: "Text", Pattern: `[^\\]+`},
})

type replacementTemplate struct {
	Pieces []*templatePiece `parser:"@@*"`
}

type templatePiece struct {
	Pos lexer.Position

	NamedRef *string `parser:"  @NamedRef"`
	Octal    *string `parser:"| @Octal"`
	GroupRef *string `parser:"| @GroupRef"`
	Escape   *string `parser:"| @Escape"`
	Text     *string `parser:"| @Text"`
}

var templateParser = participle.MustBuild[replacementTemplate](
	participle.Lexer(templateLexer),
)

// templatePart is either a literal or a group reference.
type templatePart struct {
	literal string
	// group is the referenced group index, or -1 for a literal.
	group int
}

type template []templatePart

func (t *template) appendLiteral(s string) {
	if n := len(*t); n > 0 && (*t)[n-1].group < 0 {
		(*t)[n-1].literal += s
		return
	}
	*t = append(*t, templatePart{literal: s, group: -1})
}

// parseTemplate compiles a replacement string. References are checked
// against numGroups (capturing groups, excluding group 0) and names.
func parseTemplate(repl string, numGroups int, names map[string]int) (template, error) {
	if !strings.Contains(repl, `\`) {
		if repl == "" {
			return nil, nil
		}
		return template{{literal: repl, group: -1}}, nil
	}

	ast, err := templateParser.ParseString("", repl)
	if err != nil {
		var perr participle.Error
		if errors.As(err, &perr) {
			return nil, newSyntaxError("bad replacement template: "+perr.Message(), perr.Position().Offset)
		}
		return nil, newSyntaxError("bad replacement template: "+err.Error(), -1)
	}

	var t template
	for _, piece := range ast.Pieces {
		offset := piece.Pos.Offset
		switch {
		case piece.Text != nil:
			t.appendLiteral(*piece.Text)
		case piece.Escape != nil:
			r := []rune(*piece.Escape)[1]
			switch r {
			case 'n':
				t.appendLiteral("\n")
			case 't':
				t.appendLiteral("\t")
			case 'r':
				t.appendLiteral("\r")
			case 'f':
				t.appendLiteral("\f")
			case 'v':
				t.appendLiteral("\v")
			case 'a':
				t.appendLiteral("\a")
			case '\\':
				t.appendLiteral(`\`)
			default:
				if isASCIILetter(r) {
					return nil, newSyntaxError("bad escape "+*piece.Escape, offset)
				}
				// unknown punctuation escapes are kept as written
				t.appendLiteral(*piece.Escape)
			}
		case piece.Octal != nil:
			v, _ := strconv.ParseUint((*piece.Octal)[1:], 8, 32)
			if v > 0o377 {
				return nil, newSyntaxError("octal escape value "+*piece.Octal+" outside of range 0-0o377", offset)
			}
			t.appendLiteral(string(rune(v)))
		case piece.GroupRef != nil:
			digits := (*piece.GroupRef)[1:]
			index, _ := strconv.Atoi(digits)
			if index > numGroups {
				return nil, newSyntaxError("invalid group reference "+digits, offset)
			}
			t = append(t, templatePart{group: index})
		case piece.NamedRef != nil:
			ref := *piece.NamedRef
			name := ref[len(`\g<`) : len(ref)-1]
			index, err := resolveGroupName(name, numGroups, names)
			if err != nil {
				return nil, newSyntaxError(err.Error(), offset)
			}
			t = append(t, templatePart{group: index})
		}
	}
	return t, nil
}

// resolveGroupName accepts either a group number or a group name.
func resolveGroupName(name string, numGroups int, names map[string]int) (int, error) {
	if name == "" {
		return 0, errors.New("missing group name")
	}
	if name[0] >= '0' && name[0] <= '9' {
		index, err := strconv.Atoi(name)
		if err != nil {
			return 0, errors.New("bad character in group name " + strconv.Quote(name))
		}
		if index > numGroups {
			return 0, errors.New("invalid group reference " + name)
		}
		return index, nil
	}
	index, ok := names[name]
	if !ok {
		return 0, errors.New("unknown group name " + strconv.Quote(name))
	}
	return index, nil
}

func (t template) expand(b *strings.Builder, m *Match) {
	for _, part := range t {
		if part.group < 0 {
			b.WriteString(part.literal)
			continue
		}
		if s, ok := m.Group(part.group); ok {
			b.WriteString(s)
		}
	}
}
