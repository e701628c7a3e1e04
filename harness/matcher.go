package harness

import (
	"sort"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// messageMatcher tells whether an abort message contains one of the expected substrings.
type messageMatcher struct {
	machine *goahocorasick.Machine
}

func newMessageMatcher(substrings []string) (messageMatcher, error) {
	if len(substrings) == 0 {
		return messageMatcher{}, nil
	}
	// the double array trie is built from sorted, unique keywords
	unique := lo.Uniq(substrings)
	sort.Strings(unique)
	patterns := make([][]rune, len(unique))
	for i, s := range unique {
		patterns[i] = []rune(s)
	}
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return messageMatcher{}, err
	}
	return messageMatcher{machine: m}, nil
}

// Match accepts everything when no substring was configured.
func (m messageMatcher) Match(message string) bool {
	if m.machine == nil {
		return true
	}
	return len(m.machine.MultiPatternSearch([]rune(message), true)) > 0
}
