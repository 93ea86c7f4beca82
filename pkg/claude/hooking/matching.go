package hooking

import (
	"fmt"
	"regexp"
	"strings"
)

// matchFunc reports whether a matcher applies to an event subject.
type matchFunc func(subject string) bool

var plainAlternation = regexp.MustCompile(`^[A-Za-z0-9_]+(\|[A-Za-z0-9_]+)*$`)

// compileMatcher turns a matcher pattern into a matchFunc. Empty and "*"
// match everything, plain names and "A|B" lists match exactly, and any other
// pattern is an anchored regular expression.
func compileMatcher(pattern string) (matchFunc, error) {
	if pattern == "" || pattern == "*" {
		return func(string) bool { return true }, nil
	}
	if plainAlternation.MatchString(pattern) {
		names := strings.Split(pattern, "|")

		return func(subject string) bool {
			for _, name := range names {
				if name == subject {
					return true
				}
			}

			return false
		}, nil
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("invalid hook matcher %q: %w", pattern, err)
	}

	return re.MatchString, nil
}
