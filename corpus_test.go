package retrace

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"gopkg.in/yaml.v2"
	"gotest.tools/v3/assert"
)

type corpusCase struct {
	Name    string     `yaml:"name"`
	Op      string     `yaml:"op"`
	Pattern string     `yaml:"pattern"`
	Flags   string     `yaml:"flags"`
	Text    string     `yaml:"text"`
	Groups  []*string  `yaml:"groups"`
	NoMatch bool       `yaml:"nomatch"`
	FindAll [][]string `yaml:"findall"`
	Repl    string     `yaml:"repl"`
	Result  string     `yaml:"result"`
	Error   bool       `yaml:"error"`
}

func parseFlagLetters(letters string) (Flag, error) {
	var flags Flag
	for _, c := range letters {
		switch c {
		case 'i':
			flags |= FlagIgnoreCase
		case 'm':
			flags |= FlagMultiline
		case 's':
			flags |= FlagDotAll
		case 'x':
			flags |= FlagVerbose
		default:
			return 0, fmt.Errorf("unknown flag %q", c)
		}
	}
	return flags, nil
}

func loadCorpus(t *testing.T, path string) []corpusCase {
	t.Helper()
	source, err := os.ReadFile(path)
	assert.NilError(t, err)
	var cases []corpusCase
	assert.NilError(t, yaml.Unmarshal(source, &cases))
	return cases
}

func TestCorpus(t *testing.T) {
	for _, c := range loadCorpus(t, "testdata/tutorial.yaml") {
		t.Run(c.Name, func(t *testing.T) {
			flags, err := parseFlagLetters(c.Flags)
			assert.NilError(t, err)
			re, err := Compile(c.Pattern, flags)
			if c.Error {
				var se SyntaxError
				assert.Assert(t, errors.As(err, &se), "expected SyntaxError, got %v", err)
				return
			}
			assert.NilError(t, err)

			switch c.Op {
			case "", "search":
				match, err := re.Search(c.Text)
				assert.NilError(t, err)
				if c.NoMatch {
					assert.Assert(t, match == nil, "unexpected match %q", match)
					return
				}
				assert.Assert(t, match != nil, "no match")
				assert.Equal(t, len(match.Groups), len(c.Groups))
				for i, expected := range c.Groups {
					actual, ok := match.Group(i)
					if expected == nil {
						assert.Assert(t, !ok, "group %d: expected unset, got %q", i, actual)
						continue
					}
					assert.Assert(t, ok, "group %d: expected %q, got unset", i, *expected)
					assert.Equal(t, actual, *expected, "group %d", i)
				}
			case "findall":
				actual, err := re.FindAll(c.Text)
				assert.NilError(t, err)
				assert.DeepEqual(t, actual, c.FindAll)
			case "sub":
				actual, err := re.Sub(c.Repl, c.Text)
				assert.NilError(t, err)
				assert.Equal(t, actual, c.Result)
			default:
				t.Fatalf("unknown op %q", c.Op)
			}
		})
	}
}
