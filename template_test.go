package retrace

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"
)

func TestParseTemplate(t *testing.T) {
	names := map[string]int{"first": 1}
	cases := []struct {
		repl     string
		expected template
	}{
		{"", nil},
		{"plain", template{{literal: "plain", group: -1}}},
		{`\1****`, template{{group: 1}, {literal: "****", group: -1}}},
		{`<\2>`, template{{literal: "<", group: -1}, {group: 2}, {literal: ">", group: -1}}},
		{`\g<first>\g<2>\g<0>`, template{{group: 1}, {group: 2}, {group: 0}}},
		{`a\nb\tc`, template{{literal: "a\nb\tc", group: -1}}},
		{`\\1`, template{{literal: `\1`, group: -1}}},
		{`\.`, template{{literal: `\.`, group: -1}}},
		{`\0`, template{{literal: "\x00", group: -1}}},
		{`\07`, template{{literal: "\x07", group: -1}}},
		{`\08`, template{{literal: "\x008", group: -1}}},
		{`\012`, template{{literal: "\n", group: -1}}},
		{`\0123`, template{{literal: "\n3", group: -1}}},
		{`a\101b`, template{{literal: "aAb", group: -1}}},
		{"\\g<1>é", template{{group: 1}, {literal: "é", group: -1}}},
	}
	for _, c := range cases {
		t.Run(c.repl, func(t *testing.T) {
			actual, err := parseTemplate(c.repl, 2, names)
			assert.NilError(t, err)
			assert.DeepEqual(t, actual, c.expected, cmp.AllowUnexported(templatePart{}))
		})
	}
}

func TestParseTemplateErrors(t *testing.T) {
	cases := []struct {
		repl    string
		message string
	}{
		{`\3`, "invalid group reference 3 at position 0"},
		{`\10`, "invalid group reference 10 at position 0"},
		{`ab\g<x>`, `unknown group name "x" at position 2`},
		{`\g<>`, "missing group name at position 0"},
		{`\g<1x>`, `bad character in group name "1x" at position 0`},
		{`\w`, `bad escape \w at position 0`},
		{`\18`, "invalid group reference 18 at position 0"},
		{`ab\400`, `octal escape value \400 outside of range 0-0o377 at position 2`},
	}
	for _, c := range cases {
		t.Run(c.repl, func(t *testing.T) {
			_, err := parseTemplate(c.repl, 2, nil)
			assert.Error(t, err, c.message)
		})
	}

	for _, repl := range []string{`\`, `abc\`, `\g`, `\g<1`} {
		t.Run(repl, func(t *testing.T) {
			_, err := parseTemplate(repl, 2, nil)
			var se SyntaxError
			assert.Assert(t, errors.As(err, &se), "expected SyntaxError, got %v", err)
			assert.Assert(t, se.Offset >= 0)
		})
	}
}
