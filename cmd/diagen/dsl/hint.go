package dsl

import (
	"fmt"

	"github.com/sahilm/fuzzy"
)

// didYouMean returns a ` (did you mean "x"?)` suffix naming the closest
// candidate, or "" when nothing matches.
func didYouMean(name string, candidates []string) string {
	if name == "" || len(candidates) == 0 {
		return ""
	}
	matches := fuzzy.Find(name, candidates)
	if len(matches) == 0 {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", matches[0].Str)
}
