package action

import "fmt"

// Kind is the closed set of things a chord can do.
type Kind int

const (
	Screenshot Kind = iota + 1
	Quicksave
	Kill
)

var kindNames = map[Kind]string{
	Screenshot: "screenshot",
	Quicksave:  "quicksave",
	Kill:       "kill",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind is the inverse of String.
func ParseKind(s string) (Kind, error) {
	for k, n := range kindNames {
		if n == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}
