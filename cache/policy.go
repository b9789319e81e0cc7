package cache

import (
	"fmt"
	"strings"
)

// Policy selects how a cache treats writes. It is fixed when the cache is
// built.
type Policy int

// Supported write policies. WriteBack is the zero value.
const (
	// WriteBack marks written blocks dirty and defers propagation until the
	// block is evicted.
	WriteBack Policy = iota
	// WriteThrough forwards every write to the next level immediately and
	// never marks blocks dirty.
	WriteThrough
)

// String returns the canonical name of the policy.
func (p Policy) String() string {
	switch p {
	case WriteBack:
		return "write-back"
	case WriteThrough:
		return "write-through"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Valid reports whether p is one of the supported policies.
func (p Policy) Valid() bool {
	return p == WriteBack || p == WriteThrough
}

// ParsePolicy accepts the canonical names and the "wb"/"wt" short forms.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "write-back", "writeback", "wb":
		return WriteBack, nil
	case "write-through", "writethrough", "wt":
		return WriteThrough, nil
	default:
		return 0, fmt.Errorf("%w: unknown write policy %q", ErrConfiguration, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: unknown write policy %d", ErrConfiguration, int(p))
	}

	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}

	*p = parsed

	return nil
}
