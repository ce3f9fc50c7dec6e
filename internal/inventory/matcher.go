package inventory

import "strings"

// Matcher matches names of the form <Prefix><digits>.
type Matcher struct {
	Prefix string
}

// Match reports whether name is Prefix followed by one or more digits
// and nothing else.
func (m Matcher) Match(name string) bool {
	_, ok := m.MSIN(name)
	return ok
}

// MSIN returns the numeric suffix of name.
func (m Matcher) MSIN(name string) (string, bool) {
	if m.Prefix == "" || !strings.HasPrefix(name, m.Prefix) {
		return "", false
	}
	suffix := name[len(m.Prefix):]
	if suffix == "" {
		return "", false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return suffix, true
}

// Name builds the name for msin.
func (m Matcher) Name(msin string) string {
	return m.Prefix + msin
}
