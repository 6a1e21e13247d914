package hrm

import "fmt"

type tokenKind uint8

const (
	tokenHomeRow tokenKind = iota + 1
	tokenDual
)

// token is the only identity a timer callback carries. It is checked
// against the key's kind, bounds and generation before use.
type token struct {
	kind  tokenKind
	index int
	gen   uint64
}

func (t token) String() string {
	return fmt.Sprintf("%d/%d/%d", t.kind, t.index, t.gen)
}
