package extract

import "regexp"

// Strategy is one way of extracting a value. It reports false when it found
// nothing so the next strategy gets a turn.
type Strategy[I, O any] struct {
	Name string
	Fn   func(I) (O, bool)
}

// Chain is an ordered list of strategies tried first to last.
type Chain[I, O any] []Strategy[I, O]

// First returns the value of the first strategy that succeeds and its name.
func (c Chain[I, O]) First(in I) (O, string, bool) {
	for _, s := range c {
		if out, ok := s.Fn(in); ok {
			return out, s.Name, true
		}
	}
	var zero O
	return zero, "", false
}

// regexStrategy returns the first capture group of the first match.
func regexStrategy(name string, re *regexp.Regexp) Strategy[string, string] {
	return Strategy[string, string]{
		Name: name,
		Fn: func(text string) (string, bool) {
			m := re.FindStringSubmatch(text)
			if len(m) < 2 {
				return "", false
			}
			v := flatten(m[1])
			return v, v != ""
		},
	}
}
